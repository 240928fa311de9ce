package api

import "net/http"

// SyncHandler triggers submission of the latest weighing to SAP.
type SyncHandler struct {
	deps Dependencies
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(deps Dependencies) *SyncHandler {
	return &SyncHandler{deps: deps}
}

// HandleSendLatest handles POST /sync/latest requests.
func (h *SyncHandler) HandleSendLatest(w http.ResponseWriter, r *http.Request) {
	weighing, err := h.deps.SendLatest(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weighing)
}
