// Package service wires the store, the rating engine and the competition
// queue into the operations exposed over HTTP and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	competitionqueue "github.com/okian/tagrank/internal/adapters/mq/queue"
	workerpool "github.com/okian/tagrank/internal/adapters/mq/worker"
	"github.com/okian/tagrank/internal/adapters/repository"
	"github.com/okian/tagrank/internal/domain/dedupe"
	"github.com/okian/tagrank/internal/domain/estimate"
	"github.com/okian/tagrank/internal/domain/model"
	"github.com/okian/tagrank/internal/domain/rating"
	"github.com/okian/tagrank/internal/domain/selection"
	"github.com/okian/tagrank/internal/domain/types"
	"github.com/okian/tagrank/pkg/logger"
	"github.com/okian/tagrank/pkg/metrics"
)

// lockedRand shares one *rand.Rand between goroutines.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// tagLocks serialises Apply calls per tag.
type tagLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (t *tagLocks) lock(tagID string) (unlock func()) {
	t.mu.Lock()
	l, ok := t.locks[tagID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[tagID] = l
	}
	t.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Service implements the rating operations.
//
// Apply, Play and the read operations work without Start. Start adds the
// asynchronous path: Submit queues competitions that a worker pool applies.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	ownsStore bool
	engine    *rating.Engine
	rng       *lockedRand
	defaults  selection.Defaults
	params    rating.Params
	tags      tagLocks

	deduper dedupe.Deduper
	queue   *competitionqueue.InMemoryQueue
	pool    *workerpool.Pool

	workerCount int
	queueSize   int
	dedupeSize  int

	started bool
	stopped bool

	logger logger.Logger
}

var _ workerpool.Applier = (*Service)(nil)

// New constructs a Service. Without WithStore it keeps state in memory.
func New(opts ...Option) *Service {
	s := &Service{
		defaults:    selection.DefaultDefaults(),
		params:      rating.DefaultParams(),
		workerCount: runtime.NumCPU(),
		queueSize:   10000,
		dedupeSize:  100000,
		tags:        tagLocks{locks: make(map[string]*sync.Mutex)},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.rng == nil {
		s.rng = &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(context.Background())
		s.ownsStore = true
	}
	s.engine = rating.NewEngine(rating.WithRand(s.rng), rating.WithParams(s.params))
	s.params = s.engine.Params()
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start launches the queue and worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.stopped {
		return ErrStopped
	}

	s.logger.Info(ctx, "starting rating service...")
	s.queue = competitionqueue.NewInMemoryQueue(competitionqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s)
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains queued competitions, then closes a store the service created.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.logger.Info(ctx, "stopping rating service...")

	var errs []error
	if s.started && s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	s.started = false
	s.stopped = true
	s.logger.Info(ctx, "rating service stopped")
	return errors.Join(errs...)
}

// Params returns the engine's update parameters.
func (s *Service) Params() rating.Params { return s.params }

// Defaults returns the rating state used for pairs that never competed.
func (s *Service) Defaults() selection.Defaults { return s.defaults }

// NextMatchup picks a tag and two distinct competitors from the current
// store snapshot.
func (s *Service) NextMatchup(ctx context.Context) (selection.Pairing, error) {
	tags, err := s.store.Tags(ctx)
	if err != nil {
		return selection.Pairing{}, fmt.Errorf("load tags: %w", err)
	}
	comps, err := s.store.Competitors(ctx)
	if err != nil {
		return selection.Pairing{}, fmt.Errorf("load competitors: %w", err)
	}
	records, err := s.store.RatingRecords(ctx)
	if err != nil {
		return selection.Pairing{}, fmt.Errorf("load rating records: %w", err)
	}

	p, err := selection.SelectPair(tags, comps, records, s.rng, s.defaults)
	if err != nil {
		s.selectionFailed(ctx, err)
		return selection.Pairing{}, err
	}
	metrics.RecordMatchupServed()
	return p, nil
}

func (s *Service) selectionFailed(ctx context.Context, err error) {
	switch {
	case errors.Is(err, selection.ErrCorruptState):
		metrics.RecordSelectionFailure("corrupt_state")
		metrics.RecordCorruptState()
		s.logger.Error(ctx, "rating state is corrupt", logger.Error(err))
	case errors.Is(err, selection.ErrEmptyInput):
		metrics.RecordSelectionFailure("empty_input")
	default:
		metrics.RecordSelectionFailure("other")
	}
}

// validate checks the shape of a competition. The winner may be empty, in
// which case the engine decides.
func validate(c model.Competition) error { //nolint:gocritic // hugeParam: value semantics
	switch {
	case c.TagID == "":
		return fmt.Errorf("%w: tag_id", model.ErrMissingField)
	case c.CompetitorA == "" || c.CompetitorB == "":
		return fmt.Errorf("%w: competitor ids", model.ErrMissingField)
	case c.CompetitorA == c.CompetitorB:
		return fmt.Errorf("%w: a competitor cannot compete with itself", model.ErrInvalidValue)
	case c.WinnerID != "" && c.WinnerID != c.CompetitorA && c.WinnerID != c.CompetitorB:
		return fmt.Errorf("%w: winner %q is not part of the competition", model.ErrInvalidValue, c.WinnerID)
	}
	return nil
}

// Submit queues a competition for a worker to apply and returns its id.
// A competition id seen before is reported as a duplicate and not queued
// again.
func (s *Service) Submit(ctx context.Context, c model.Competition) (id string, duplicate bool, err error) { //nolint:gocritic // hugeParam: value semantics
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", false, ErrNotStarted
	}
	if err := validate(c); err != nil {
		return "", false, err
	}
	if err := s.checkExists(ctx, c); err != nil {
		return "", false, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.TS.IsZero() {
		c.TS = time.Now().UTC()
	}

	if s.deduper.SeenAndRecord(ctx, c.ID) {
		metrics.RecordCompetitionDuplicate()
		s.logger.Debug(ctx, "duplicate competition", logger.String("competition_id", c.ID))
		return c.ID, true, nil
	}
	if !s.queue.Enqueue(ctx, c) {
		s.deduper.Unrecord(ctx, c.ID)
		return "", false, ErrBackpressure
	}
	return c.ID, false, nil
}

func (s *Service) checkExists(ctx context.Context, c model.Competition) error { //nolint:gocritic // hugeParam: value semantics
	if _, err := s.store.Tag(ctx, c.TagID); err != nil {
		return err
	}
	for _, id := range []string{c.CompetitorA, c.CompetitorB} {
		if _, err := s.store.Competitor(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Apply resolves a competition against the stored rating state, writes both
// updated records and appends the result to history. Applies under the same
// tag are serialised.
func (s *Service) Apply(ctx context.Context, c model.Competition) (model.Result, error) { //nolint:gocritic // hugeParam: value semantics
	start := time.Now()
	defer func() {
		metrics.RecordCompeteLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	res, err := s.apply(ctx, c)
	if err != nil {
		metrics.RecordCompeteError()
		if errors.Is(err, selection.ErrCorruptState) {
			metrics.RecordCorruptState()
			s.logger.Error(ctx, "rating state is corrupt",
				logger.String("tag_id", c.TagID),
				logger.Error(err),
			)
		}
		return model.Result{}, err
	}

	resolution := "explicit"
	if res.Random {
		resolution = "random"
	}
	metrics.RecordCompetitionApplied(resolution)
	if res.Upset {
		metrics.RecordUpset()
	}
	return res, nil
}

func (s *Service) apply(ctx context.Context, c model.Competition) (model.Result, error) { //nolint:gocritic // hugeParam: value semantics
	if err := validate(c); err != nil {
		return model.Result{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	tag, err := s.store.Tag(ctx, c.TagID)
	if err != nil {
		return model.Result{}, err
	}
	unlock := s.tags.lock(tag.ID)
	defer unlock()

	a, err := s.resolve(ctx, tag.ID, c.CompetitorA)
	if err != nil {
		return model.Result{}, err
	}
	b, err := s.resolve(ctx, tag.ID, c.CompetitorB)
	if err != nil {
		return model.Result{}, err
	}

	ca, cb := selection.Pairing{Tag: tag, A: a, B: b}.Contenders()
	out, err := s.engine.Compete(ca, cb, c.WinnerID)
	if err != nil {
		return model.Result{}, err
	}

	res := model.Result{
		CompetitionID: c.ID,
		TagID:         tag.ID,
		A:             record(tag.ID, out.A),
		B:             record(tag.ID, out.B),
		WinnerID:      out.WinnerID,
		Random:        out.Random,
		Upset:         out.Upset,
		TS:            time.Now().UTC(),
	}
	if err := s.store.ApplyResult(ctx, res); err != nil {
		return model.Result{}, fmt.Errorf("store result: %w", err)
	}
	metrics.RecordRankSwing(math.Abs(out.A.Rank - ca.Rank))
	s.logger.Debug(ctx, "competition applied",
		logger.String("competition_id", res.CompetitionID),
		logger.String("tag_id", res.TagID),
		logger.String("winner_id", res.WinnerID),
		logger.Bool("random", res.Random),
	)
	return res, nil
}

func (s *Service) resolve(ctx context.Context, tagID, competitorID string) (model.Competitor, error) {
	comp, err := s.store.Competitor(ctx, competitorID)
	if err != nil {
		return model.Competitor{}, err
	}
	found, err := s.store.RatingRecordsFor(ctx, tagID, competitorID)
	if err != nil {
		return model.Competitor{}, fmt.Errorf("load rating records: %w", err)
	}
	return selection.Resolve(tagID, comp, found, s.defaults)
}

func record(tagID string, c rating.Contender) model.RatingRecord {
	return model.RatingRecord{TagID: tagID, CompetitorID: c.ID, Rank: c.Rank, Uncertainty: c.Uncertainty}
}

// Play selects a random matchup and lets the engine decide it.
func (s *Service) Play(ctx context.Context) (model.Result, error) {
	p, err := s.NextMatchup(ctx)
	if err != nil {
		return model.Result{}, err
	}
	return s.Apply(ctx, model.Competition{
		TagID:       p.Tag.ID,
		CompetitorA: p.A.ID,
		CompetitorB: p.B.ID,
		TS:          time.Now().UTC(),
	})
}

// CreateTag adds or renames a tag.
func (s *Service) CreateTag(ctx context.Context, t model.Tag) error {
	if t.ID == "" {
		return fmt.Errorf("%w: tag id", model.ErrMissingField)
	}
	return s.store.PutTag(ctx, t)
}

// CreateCompetitor adds or renames a competitor.
func (s *Service) CreateCompetitor(ctx context.Context, c model.Competitor) error { //nolint:gocritic // hugeParam: value semantics
	if c.ID == "" {
		return fmt.Errorf("%w: competitor id", model.ErrMissingField)
	}
	return s.store.PutCompetitor(ctx, c)
}

func (s *Service) Tags(ctx context.Context) ([]model.Tag, error) {
	return s.store.Tags(ctx)
}

func (s *Service) Competitors(ctx context.Context) ([]model.Competitor, error) {
	return s.store.Competitors(ctx)
}

// Leaderboard returns the top n competitors under a tag.
func (s *Service) Leaderboard(ctx context.Context, tagID string, n int) ([]types.Entry, error) {
	if _, err := s.store.Tag(ctx, tagID); err != nil {
		return nil, err
	}
	return s.store.TopN(ctx, tagID, n)
}

// Position returns one competitor's leaderboard entry under a tag.
func (s *Service) Position(ctx context.Context, tagID, competitorID string) (types.Entry, error) {
	return s.store.Position(ctx, tagID, competitorID)
}

// History returns applied results, newest first.
func (s *Service) History(ctx context.Context, tagID string, limit int) ([]model.Result, error) {
	return s.store.Results(ctx, tagID, limit)
}

// Estimate fits the tag's whole history and returns the batch ratings.
func (s *Service) Estimate(ctx context.Context, tagID string) ([]estimate.Estimate, error) {
	if _, err := s.store.Tag(ctx, tagID); err != nil {
		return nil, err
	}
	results, err := s.store.Results(ctx, tagID, 0)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	return estimate.Fit(estimate.FromResults(results), estimate.Options{}), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"dedupeSeen":  s.deduper.Size(),
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["busyWorkers"] = s.pool.Busy()
	}
	if c, err := s.store.Count(ctx); err == nil {
		stats["tags"] = c.Tags
		stats["competitors"] = c.Competitors
		stats["records"] = c.Records
		stats["results"] = c.Results
		metrics.UpdateTotals(c.Tags, c.Competitors, c.Records)
	}
	return stats
}
