package api

import (
	"context"
	"net/http"

	"github.com/scalehouse/weighbridge/internal/domain/model"
)

// CaptureHandler records entry and exit weighings for the current session.
type CaptureHandler struct {
	deps Dependencies
}

// NewCaptureHandler creates a new capture handler.
func NewCaptureHandler(deps Dependencies) *CaptureHandler {
	return &CaptureHandler{deps: deps}
}

// HandleCaptureEntry handles POST /capture/entry requests.
func (h *CaptureHandler) HandleCaptureEntry(w http.ResponseWriter, r *http.Request) {
	h.capture(w, r, h.deps.CaptureEntry)
}

// HandleCaptureExit handles POST /capture/exit requests.
func (h *CaptureHandler) HandleCaptureExit(w http.ResponseWriter, r *http.Request) {
	h.capture(w, r, h.deps.CaptureExit)
}

func (h *CaptureHandler) capture(w http.ResponseWriter, r *http.Request, fn func(context.Context) (model.Weighing, error)) {
	weighing, err := fn(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, weighing)
}
