package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/scalehouse/weighbridge/internal/domain/model"
)

// pairResponse flattens the derived pair fields so consumers do not recompute
// them.
type pairResponse struct {
	Entry      model.Weighing  `json:"entry"`
	Exit       *model.Weighing `json:"exit,omitempty"`
	NetWeight  float64         `json:"net_weight"`
	DurationMS int64           `json:"duration_ms"`
	IsComplete bool            `json:"is_complete"`
}

// WeighingsHandler serves ledger queries and note edits.
type WeighingsHandler struct {
	deps Dependencies
}

// NewWeighingsHandler creates a new weighings handler.
func NewWeighingsHandler(deps Dependencies) *WeighingsHandler {
	return &WeighingsHandler{deps: deps}
}

// HandleListWeighings handles GET /weighings?limit= requests.
func (h *WeighingsHandler) HandleListWeighings(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	rows, err := h.deps.Recent(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if rows == nil {
		rows = []model.Weighing{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleGetWeighing handles GET /weighings/{id} requests.
func (h *WeighingsHandler) HandleGetWeighing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	weighing, err := h.deps.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weighing)
}

type notesRequest struct {
	Notes string `json:"notes"`
}

// HandleUpdateNotes handles PATCH /weighings/{id}/notes requests.
func (h *WeighingsHandler) HandleUpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req notesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	if err := h.deps.UpdateNotes(r.Context(), id, req.Notes); err != nil {
		writeServiceError(w, err)
		return
	}

	weighing, err := h.deps.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weighing)
}

// HandleGetPair handles GET /pair/{truck} requests.
func (h *WeighingsHandler) HandleGetPair(w http.ResponseWriter, r *http.Request) {
	truck := r.PathValue("truck")
	if truck == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing truck number"))
		return
	}

	pair, err := h.deps.PairFor(r.Context(), truck)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pairResponse{
		Entry:      pair.Entry,
		Exit:       pair.Exit,
		NetWeight:  pair.NetWeight(),
		DurationMS: pair.Duration().Milliseconds(),
		IsComplete: pair.IsComplete(),
	})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("id must be an integer"))
		return 0, false
	}
	return id, true
}
