package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// RankDependencies defines the interface for rank operations.
type RankDependencies interface {
	Position(ctx context.Context, tagID, competitorID string) (Entry, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
	out  responder
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies, out responder) *RankHandler {
	return &RankHandler{deps: deps, out: out}
}

// HandleGetRank handles GET /rank/{tag_id}/{competitor_id} requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/rank/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		h.out.fail(w, r, op, fmt.Errorf("%w: path must be /rank/{tag_id}/{competitor_id}", ErrBadRequest))
		return
	}
	entry, err := h.deps.Position(r.Context(), parts[0], parts[1])
	if err != nil {
		h.out.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
