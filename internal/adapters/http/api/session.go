package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// SessionHandler manages the operator truck context.
type SessionHandler struct {
	deps Dependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps Dependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

type sessionRequest struct {
	TruckNumber string `json:"truck_number"`
	Transporter string `json:"transporter"`
	Product     string `json:"product"`
}

func (r sessionRequest) validate() error {
	if strings.TrimSpace(r.TruckNumber) == "" {
		return errors.New("missing truck_number")
	}
	return nil
}

// HandleStartSession handles POST /session requests.
func (h *SessionHandler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	if err := h.deps.SetTruckContext(r.Context(), req.TruckNumber, req.Transporter, req.Product); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.deps.Status())
}

// HandleClearSession handles DELETE /session requests.
func (h *SessionHandler) HandleClearSession(w http.ResponseWriter, _ *http.Request) {
	h.deps.ClearSession()
	writeJSON(w, http.StatusOK, h.deps.Status())
}
