package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/tagrank/internal/domain/estimate"
)

// EstimateDependencies fits batch ratings over a tag's history.
type EstimateDependencies interface {
	Estimate(ctx context.Context, tagID string) ([]estimate.Estimate, error)
}

// EstimateHandler handles estimate requests.
type EstimateHandler struct {
	deps EstimateDependencies
	out  responder
}

// NewEstimateHandler creates a new estimate handler.
func NewEstimateHandler(deps EstimateDependencies, out responder) *EstimateHandler {
	return &EstimateHandler{deps: deps, out: out}
}

// HandleGetEstimate handles GET /estimate?tag=T.
func (h *EstimateHandler) HandleGetEstimate(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_estimate"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		h.out.fail(w, r, op, fmt.Errorf("%w: tag is required", ErrBadRequest))
		return
	}
	est, err := h.deps.Estimate(r.Context(), tag)
	if err != nil {
		h.out.fail(w, r, op, err)
		return
	}
	if est == nil {
		est = []estimate.Estimate{}
	}
	writeJSON(w, http.StatusOK, est)
}
