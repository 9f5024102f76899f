package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/tagrank/internal/domain/model"
)

// CatalogDependencies manages tags and competitors.
type CatalogDependencies interface {
	CreateTag(ctx context.Context, t model.Tag) error
	CreateCompetitor(ctx context.Context, c model.Competitor) error
	Tags(ctx context.Context) ([]model.Tag, error)
	Competitors(ctx context.Context) ([]model.Competitor, error)
}

// CatalogHandler handles /tags and /competitors.
type CatalogHandler struct {
	deps CatalogDependencies
	out  responder
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps CatalogDependencies, out responder) *CatalogHandler {
	return &CatalogHandler{deps: deps, out: out}
}

type catalogRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func decodeCatalog(r *http.Request) (catalogRequest, error) {
	var req catalogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	req.ID = strings.TrimSpace(req.ID)
	return req, nil
}

// HandleTags handles GET and POST /tags.
func (h *CatalogHandler) HandleTags(w http.ResponseWriter, r *http.Request) {
	const op = "api.tags"
	switch r.Method {
	case http.MethodGet:
		tags, err := h.deps.Tags(r.Context())
		if err != nil {
			h.out.fail(w, r, op, err)
			return
		}
		out := make([]tagView, 0, len(tags))
		for _, t := range tags {
			out = append(out, tagView{ID: t.ID, Name: t.Name})
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		req, err := decodeCatalog(r)
		if err == nil {
			err = h.deps.CreateTag(r.Context(), model.Tag{ID: req.ID, Name: req.Name})
		}
		if err != nil {
			h.out.fail(w, r, op, err)
			return
		}
		writeJSON(w, http.StatusCreated, tagView(req))
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

// HandleCompetitors handles GET and POST /competitors.
func (h *CatalogHandler) HandleCompetitors(w http.ResponseWriter, r *http.Request) {
	const op = "api.competitors"
	switch r.Method {
	case http.MethodGet:
		comps, err := h.deps.Competitors(r.Context())
		if err != nil {
			h.out.fail(w, r, op, err)
			return
		}
		out := make([]competitorView, 0, len(comps))
		for _, c := range comps {
			out = append(out, competitorView{ID: c.ID, Name: c.Name})
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		req, err := decodeCatalog(r)
		if err == nil {
			err = h.deps.CreateCompetitor(r.Context(), model.Competitor{ID: req.ID, Name: req.Name})
		}
		if err != nil {
			h.out.fail(w, r, op, err)
			return
		}
		writeJSON(w, http.StatusCreated, competitorView{ID: req.ID, Name: req.Name})
	default:
		methodNotAllowed(w, "GET, POST")
	}
}
