package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/tagrank/internal/domain/model"
	"github.com/okian/tagrank/internal/domain/types"
	"github.com/okian/tagrank/pkg/metrics"
)

type recordKey struct {
	tag        string
	competitor string
}

// MemoryStore is an in-memory Store. Each tag keeps its own treap so
// leaderboard reads do not sort.
type MemoryStore struct {
	mu        sync.RWMutex
	tags      map[string]model.Tag
	tagOrder  []string
	comps     map[string]model.Competitor
	compOrder []string
	records   map[recordKey]model.RatingRecord
	boards    map[string]*node // tag id -> treap root
	results   []model.Result   // oldest first

	historyLimit          int
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an in-memory store and starts its metrics updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		tags:                  make(map[string]model.Tag),
		comps:                 make(map[string]model.Competitor),
		records:               make(map[recordKey]model.RatingRecord),
		boards:                make(map[string]*node),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) Tags(_ context.Context) ([]model.Tag, error) {
	defer observe("tags", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Tag, 0, len(s.tagOrder))
	for _, id := range s.tagOrder {
		out = append(out, s.tags[id])
	}
	return out, nil
}

func (s *MemoryStore) Competitors(_ context.Context) ([]model.Competitor, error) {
	defer observe("competitors", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Competitor, 0, len(s.compOrder))
	for _, id := range s.compOrder {
		out = append(out, s.comps[id])
	}
	return out, nil
}

// RatingRecords returns all records ordered by tag then competitor.
func (s *MemoryStore) RatingRecords(_ context.Context) ([]model.RatingRecord, error) {
	defer observe("rating_records", time.Now())
	s.mu.RLock()
	out := make([]model.RatingRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].TagID != out[j].TagID {
			return out[i].TagID < out[j].TagID
		}
		return out[i].CompetitorID < out[j].CompetitorID
	})
	return out, nil
}

func (s *MemoryStore) Tag(_ context.Context, id string) (model.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tags[id]
	if !ok {
		return model.Tag{}, fmt.Errorf("tag %q: %w", id, ErrNotFound)
	}
	return t, nil
}

func (s *MemoryStore) Competitor(_ context.Context, id string) (model.Competitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comps[id]
	if !ok {
		return model.Competitor{}, fmt.Errorf("competitor %q: %w", id, ErrNotFound)
	}
	return c, nil
}

func (s *MemoryStore) RatingRecordsFor(_ context.Context, tagID, competitorID string) ([]model.RatingRecord, error) {
	defer observe("rating_records_for", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.records[recordKey{tagID, competitorID}]; ok {
		return []model.RatingRecord{r}, nil
	}
	return nil, nil
}

// PutTag inserts or renames a tag.
func (s *MemoryStore) PutTag(_ context.Context, t model.Tag) error {
	if t.ID == "" {
		return fmt.Errorf("%w: tag id is required", model.ErrInvalidShape)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tags[t.ID]; !ok {
		s.tagOrder = append(s.tagOrder, t.ID)
	}
	s.tags[t.ID] = t
	return nil
}

// PutCompetitor inserts or renames a competitor. Per-tag rating state lives
// in rating records, so Rank and Uncertainty are not stored.
func (s *MemoryStore) PutCompetitor(_ context.Context, c model.Competitor) error {
	if c.ID == "" {
		return fmt.Errorf("%w: competitor id is required", model.ErrInvalidShape)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comps[c.ID]; !ok {
		s.compOrder = append(s.compOrder, c.ID)
	}
	s.comps[c.ID] = model.Competitor{ID: c.ID, Name: c.Name}
	return nil
}

// UpsertRatings writes all records under one lock, so a competition's two
// records become visible together.
func (s *MemoryStore) UpsertRatings(_ context.Context, records ...model.RatingRecord) error {
	defer observe("upsert", time.Now())
	if err := validateRecords(records); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(records)
	return nil
}

// ApplyResult writes both records of r and appends r to the history under
// one lock.
func (s *MemoryStore) ApplyResult(_ context.Context, r model.Result) error { //nolint:gocritic // hugeParam: value semantics
	defer observe("apply_result", time.Now())
	records := []model.RatingRecord{r.A, r.B}
	if err := validateRecords(records); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(records)
	s.appendLocked(r)
	return nil
}

func validateRecords(records []model.RatingRecord) error {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", r.TagID, r.CompetitorID, err)
		}
	}
	return nil
}

// upsertLocked must be called with s.mu held.
func (s *MemoryStore) upsertLocked(records []model.RatingRecord) {
	for _, r := range records {
		if !r.HasUncertainty() {
			r.Uncertainty = 0
		}
		k := recordKey{r.TagID, r.CompetitorID}
		root := s.boards[r.TagID]
		if old, ok := s.records[k]; ok {
			root = deleteNode(root, old.CompetitorID, old.Rank)
		}
		s.boards[r.TagID] = insert(root, r.CompetitorID, r.Rank)
		s.records[k] = r
	}
}

// appendLocked must be called with s.mu held.
func (s *MemoryStore) appendLocked(r model.Result) { //nolint:gocritic // hugeParam: value semantics
	s.results = append(s.results, r)
	if s.historyLimit > 0 && len(s.results) > s.historyLimit {
		drop := len(s.results) - s.historyLimit
		s.results = append(s.results[:0:0], s.results[drop:]...)
	}
}

func (s *MemoryStore) Results(_ context.Context, tagID string, limit int) ([]model.Result, error) {
	defer observe("results", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Result
	for i := len(s.results) - 1; i >= 0; i-- {
		r := s.results[i]
		if tagID != "" && r.TagID != tagID {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// TopN returns the best n competitors under a tag in O(log n + k).
func (s *MemoryStore) TopN(_ context.Context, tagID string, n int) ([]types.Entry, error) {
	defer observe("top_n", time.Now())
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Entry, 0, min(n, nsize(s.boards[tagID])))
	collectTopN(s.boards[tagID], n, &out)
	for i := range out {
		s.decorate(tagID, &out[i])
	}
	types.AssignPositions(out)
	return out, nil
}

func (s *MemoryStore) Position(_ context.Context, tagID, competitorID string) (types.Entry, error) {
	defer observe("position", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[recordKey{tagID, competitorID}]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return types.Entry{}, fmt.Errorf("competitor %q under tag %q: %w", competitorID, tagID, ErrNotFound)
	}
	e := types.Entry{
		Position:     densePosition(s.boards[tagID], competitorID, r.Rank),
		CompetitorID: competitorID,
		Rank:         r.Rank,
	}
	s.decorate(tagID, &e)
	return e, nil
}

// decorate fills name and uncertainty. Must be called with s.mu held.
func (s *MemoryStore) decorate(tagID string, e *types.Entry) {
	e.Name = s.comps[e.CompetitorID].Name
	e.Uncertainty = s.records[recordKey{tagID, e.CompetitorID}].Uncertainty
}

func (s *MemoryStore) Count(_ context.Context) (types.Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return types.Counts{
		Tags:        len(s.tags),
		Competitors: len(s.comps),
		Records:     len(s.records),
		Results:     len(s.results),
	}, nil
}

// startMetricsUpdater publishes store totals until Close or ctx is done.
func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				c, _ := s.Count(ctx)
				metrics.UpdateTotals(c.Tags, c.Competitors, c.Records)
			}
		}
	}()
}
