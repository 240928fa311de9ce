package api

import (
	"errors"
	"net/http"

	"github.com/scalehouse/weighbridge/internal/adapters/repository"
	sap "github.com/scalehouse/weighbridge/internal/adapters/sap"
	scale "github.com/scalehouse/weighbridge/internal/adapters/scale"
	service "github.com/scalehouse/weighbridge/internal/app"
)

// translate maps service errors onto HTTP status codes and stable error
// codes consumers can branch on.
func translate(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, service.ErrNoWeighings):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrAlreadySubmitted), errors.Is(err, sap.ErrAlreadySubmitted):
		return http.StatusConflict, "already_submitted"
	case errors.Is(err, service.ErrAlreadySent):
		return http.StatusConflict, "already_sent"
	case errors.Is(err, service.ErrNoStableReading):
		return http.StatusConflict, "scale_not_settled"
	case errors.Is(err, service.ErrNoTruckContext):
		return http.StatusConflict, "no_truck_context"
	case errors.Is(err, sap.ErrNotConnected), errors.Is(err, scale.ErrNotConnected):
		return http.StatusServiceUnavailable, "not_connected"
	case errors.Is(err, sap.ErrSubmit), errors.Is(err, sap.ErrConnect):
		return http.StatusBadGateway, "sync_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, code := translate(err)
	writeError(w, status, code, err)
}
