// Package api exposes the rating service over HTTP with JSON bodies.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/tagrank/internal/app"
	"github.com/okian/tagrank/internal/adapters/repository"
	"github.com/okian/tagrank/internal/domain/model"
	"github.com/okian/tagrank/internal/domain/rating"
	"github.com/okian/tagrank/internal/domain/selection"
	"github.com/okian/tagrank/internal/domain/types"
	"github.com/okian/tagrank/pkg/logger"
)

// Dependencies bundles every operation the handlers need. *service.Service
// satisfies it.
type Dependencies interface {
	StatsProvider
	MatchupDependencies
	CompetitionDependencies
	LeaderboardDependencies
	RankDependencies
	CatalogDependencies
	HistoryDependencies
	EstimateDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

var _ Dependencies = (*service.Service)(nil)

// Server wires HTTP routes for the rating API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	matchupHandler      *MatchupHandler
	competitionsHandler *CompetitionsHandler
	leaderboardHandler  *LeaderboardHandler
	rankHandler         *RankHandler
	catalogHandler      *CatalogHandler
	historyHandler      *HistoryHandler
	estimateHandler     *EstimateHandler
}

// NewServer creates the API server. maxLimit caps ?limit on list endpoints.
func NewServer(deps Dependencies, maxLimit int, log logger.Logger) *Server {
	if log == nil {
		log = logger.Get().Named("api")
	}
	out := responder{log: log}
	return &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(deps),
		matchupHandler:      NewMatchupHandler(deps, out),
		competitionsHandler: NewCompetitionsHandler(deps, out),
		leaderboardHandler:  NewLeaderboardHandler(deps, maxLimit, out),
		rankHandler:         NewRankHandler(deps, out),
		catalogHandler:      NewCatalogHandler(deps, out),
		historyHandler:      NewHistoryHandler(deps, maxLimit, out),
		estimateHandler:     NewEstimateHandler(deps, out),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/matchup", MetricsMiddleware(s.matchupHandler.HandleGetMatchup, "matchup"))
	mux.HandleFunc("/competitions", MetricsMiddleware(s.competitionsHandler.HandlePostCompetition, "competitions"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/tags", MetricsMiddleware(s.catalogHandler.HandleTags, "tags"))
	mux.HandleFunc("/competitors", MetricsMiddleware(s.catalogHandler.HandleCompetitors, "competitors"))
	mux.HandleFunc("/history", MetricsMiddleware(s.historyHandler.HandleGetHistory, "history"))
	mux.HandleFunc("/estimate", MetricsMiddleware(s.estimateHandler.HandleGetEstimate, "estimate"))
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

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}

// statusFor maps sentinel errors onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidShape),
		errors.Is(err, model.ErrMissingField),
		errors.Is(err, model.ErrInvalidValue),
		errors.Is(err, rating.ErrInvalidCompetitor),
		errors.Is(err, repository.ErrInvalidLimit):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, selection.ErrEmptyInput):
		return http.StatusConflict, "empty_input"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrStopped):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, selection.ErrCorruptState):
		return http.StatusInternalServerError, "corrupt_state"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// responder writes error responses and logs server-side failures.
type responder struct {
	log logger.Logger
}

func (o responder) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		o.log.Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("code", code),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}

type tagView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type competitorView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	Rank        float64  `json:"rank,omitempty"`
	Uncertainty *float64 `json:"uncertainty,omitempty"`
}

func newCompetitorView(c model.Competitor) competitorView { //nolint:gocritic // hugeParam: value semantics
	v := competitorView{ID: c.ID, Name: c.Name, Rank: c.Rank}
	if model.ValidUncertainty(c.Uncertainty) {
		u := c.Uncertainty
		v.Uncertainty = &u
	}
	return v
}

type recordView struct {
	CompetitorID string   `json:"competitor_id"`
	Rank         float64  `json:"rank"`
	Uncertainty  *float64 `json:"uncertainty,omitempty"`
}

type resultView struct {
	CompetitionID string     `json:"competition_id"`
	TagID         string     `json:"tag_id"`
	A             recordView `json:"a"`
	B             recordView `json:"b"`
	WinnerID      string     `json:"winner_id"`
	Random        bool       `json:"random"`
	Upset         bool       `json:"upset"`
	TS            string     `json:"ts"`
}

func newRecordView(r model.RatingRecord) recordView {
	v := recordView{CompetitorID: r.CompetitorID, Rank: r.Rank}
	if r.HasUncertainty() {
		u := r.Uncertainty
		v.Uncertainty = &u
	}
	return v
}

func newResultView(r model.Result) resultView { //nolint:gocritic // hugeParam: value semantics
	return resultView{
		CompetitionID: r.CompetitionID,
		TagID:         r.TagID,
		A:             newRecordView(r.A),
		B:             newRecordView(r.B),
		WinnerID:      r.WinnerID,
		Random:        r.Random,
		Upset:         r.Upset,
		TS:            r.TS.UTC().Format(timeFormat),
	}
}
