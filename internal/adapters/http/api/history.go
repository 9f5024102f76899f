package api

import (
	"context"
	"net/http"

	"github.com/okian/tagrank/internal/domain/model"
)

// HistoryDependencies lists applied competitions.
type HistoryDependencies interface {
	History(ctx context.Context, tagID string, limit int) ([]model.Result, error)
}

// HistoryHandler handles history requests.
type HistoryHandler struct {
	deps     HistoryDependencies
	maxLimit int
	out      responder
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies, maxLimit int, out responder) *HistoryHandler {
	return &HistoryHandler{deps: deps, maxLimit: maxLimit, out: out}
}

// HandleGetHistory handles GET /history?tag=T&limit=N. Without a tag every
// tag is included.
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	n, err := parseLimit(r, h.maxLimit)
	if err != nil {
		h.out.fail(w, r, op, err)
		return
	}
	results, err := h.deps.History(r.Context(), r.URL.Query().Get("tag"), n)
	if err != nil {
		h.out.fail(w, r, op, err)
		return
	}
	out := make([]resultView, 0, len(results))
	for _, res := range results {
		out = append(out, newResultView(res))
	}
	writeJSON(w, http.StatusOK, out)
}
