package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/tagrank/internal/domain/model"
)

const timeFormat = time.RFC3339Nano

// CompetitionDependencies accepts competitions for asynchronous application.
type CompetitionDependencies interface {
	Submit(ctx context.Context, c model.Competition) (id string, duplicate bool, err error)
}

// CompetitionsHandler handles competition submissions.
type CompetitionsHandler struct {
	deps CompetitionDependencies
	out  responder
}

// NewCompetitionsHandler creates a new competitions handler.
func NewCompetitionsHandler(deps CompetitionDependencies, out responder) *CompetitionsHandler {
	return &CompetitionsHandler{deps: deps, out: out}
}

// competitionRequest is the body of POST /competitions. An empty winner
// lets the engine decide.
type competitionRequest struct {
	CompetitionID string `json:"competition_id"`
	TagID         string `json:"tag_id"`
	CompetitorA   string `json:"competitor_a"`
	CompetitorB   string `json:"competitor_b"`
	WinnerID      string `json:"winner_id"`
	TS            string `json:"ts"`
}

func (c competitionRequest) toModel() (model.Competition, error) {
	out := model.Competition{
		ID:          strings.TrimSpace(c.CompetitionID),
		TagID:       strings.TrimSpace(c.TagID),
		CompetitorA: strings.TrimSpace(c.CompetitorA),
		CompetitorB: strings.TrimSpace(c.CompetitorB),
		WinnerID:    strings.TrimSpace(c.WinnerID),
	}
	if c.TS != "" {
		ts, err := time.Parse(time.RFC3339, c.TS)
		if err != nil {
			return model.Competition{}, fmt.Errorf("%w: ts must be RFC3339", ErrBadRequest)
		}
		out.TS = ts
	}
	return out, nil
}

type ackResponse struct {
	Status        string `json:"status"`
	CompetitionID string `json:"competition_id"`
	Duplicate     bool   `json:"duplicate"`
}

// HandlePostCompetition handles POST /competitions requests.
func (h *CompetitionsHandler) HandlePostCompetition(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_competition"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req competitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.out.fail(w, r, op, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	c, err := req.toModel()
	if err != nil {
		h.out.fail(w, r, op, err)
		return
	}

	id, duplicate, err := h.deps.Submit(r.Context(), c)
	if err != nil {
		h.out.fail(w, r, op, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", CompetitionID: id, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", CompetitionID: id})
}
