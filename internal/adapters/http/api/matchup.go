package api

import (
	"context"
	"net/http"

	"github.com/okian/tagrank/internal/domain/selection"
)

// MatchupDependencies selects the next pair to compare.
type MatchupDependencies interface {
	NextMatchup(ctx context.Context) (selection.Pairing, error)
}

// MatchupHandler handles matchup requests.
type MatchupHandler struct {
	deps MatchupDependencies
	out  responder
}

// NewMatchupHandler creates a new matchup handler.
func NewMatchupHandler(deps MatchupDependencies, out responder) *MatchupHandler {
	return &MatchupHandler{deps: deps, out: out}
}

type matchupResponse struct {
	Tag tagView        `json:"tag"`
	A   competitorView `json:"a"`
	B   competitorView `json:"b"`
}

// HandleGetMatchup handles GET /matchup requests.
func (h *MatchupHandler) HandleGetMatchup(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_matchup"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	p, err := h.deps.NextMatchup(r.Context())
	if err != nil {
		h.out.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, matchupResponse{
		Tag: tagView{ID: p.Tag.ID, Name: p.Tag.Name},
		A:   newCompetitorView(p.A),
		B:   newCompetitorView(p.B),
	})
}
