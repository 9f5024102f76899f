package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

const defaultLimit = 10

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, tagID string, n int) ([]Entry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
	out      responder
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int, out responder) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, maxLimit: maxLimit, out: out}
}

// HandleGetLeaderboard handles GET /leaderboard?tag=T&limit=N requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		h.out.fail(w, r, op, fmt.Errorf("%w: tag is required", ErrBadRequest))
		return
	}
	n, err := parseLimit(r, h.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit_exceeded", err)
		return
	}
	entries, err := h.deps.Leaderboard(r.Context(), tag, n)
	if err != nil {
		h.out.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// parseLimit reads ?limit, defaulting to min(10, maxLimit) when absent.
func parseLimit(r *http.Request, maxLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return min(defaultLimit, maxLimit), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest)
	}
	if n > maxLimit {
		return 0, fmt.Errorf("%w: limit must not exceed %d", ErrBadRequest, maxLimit)
	}
	return n, nil
}
