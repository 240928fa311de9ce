// Package api exposes the weighbridge operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/scalehouse/weighbridge/internal/app"
	"github.com/scalehouse/weighbridge/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the session controller.
type Dependencies interface {
	SetTruckContext(ctx context.Context, truckNumber, transporter, product string) error
	ClearSession()
	CaptureEntry(ctx context.Context) (model.Weighing, error)
	CaptureExit(ctx context.Context) (model.Weighing, error)
	SendLatest(ctx context.Context) (model.Weighing, error)
	Recent(ctx context.Context, limit int) ([]model.Weighing, error)
	Get(ctx context.Context, id int64) (model.Weighing, error)
	PairFor(ctx context.Context, truckNumber string) (model.Pair, error)
	UpdateNotes(ctx context.Context, id int64, notes string) error
	Status() service.Status
}

// Server wires HTTP routes for the weighbridge API.
type Server struct {
	sessionHandler   *SessionHandler
	captureHandler   *CaptureHandler
	syncHandler      *SyncHandler
	weighingsHandler *WeighingsHandler
	statusHandler    *StatusHandler
	healthHandler    *HealthHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		sessionHandler:   NewSessionHandler(deps),
		captureHandler:   NewCaptureHandler(deps),
		syncHandler:      NewSyncHandler(deps),
		weighingsHandler: NewWeighingsHandler(deps),
		statusHandler:    NewStatusHandler(deps),
		healthHandler:    NewHealthHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /status", MetricsMiddleware(s.statusHandler.HandleStatus, "status"))
	mux.HandleFunc("POST /session", MetricsMiddleware(s.sessionHandler.HandleStartSession, "session"))
	mux.HandleFunc("DELETE /session", MetricsMiddleware(s.sessionHandler.HandleClearSession, "session"))
	mux.HandleFunc("POST /capture/entry", MetricsMiddleware(s.captureHandler.HandleCaptureEntry, "capture_entry"))
	mux.HandleFunc("POST /capture/exit", MetricsMiddleware(s.captureHandler.HandleCaptureExit, "capture_exit"))
	mux.HandleFunc("POST /sync/latest", MetricsMiddleware(s.syncHandler.HandleSendLatest, "sync_latest"))
	mux.HandleFunc("GET /weighings", MetricsMiddleware(s.weighingsHandler.HandleListWeighings, "weighings"))
	mux.HandleFunc("GET /weighings/{id}", MetricsMiddleware(s.weighingsHandler.HandleGetWeighing, "weighing"))
	mux.HandleFunc("PATCH /weighings/{id}/notes", MetricsMiddleware(s.weighingsHandler.HandleUpdateNotes, "weighing_notes"))
	mux.HandleFunc("GET /pair/{truck}", MetricsMiddleware(s.weighingsHandler.HandleGetPair, "pair"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
