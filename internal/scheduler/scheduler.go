// Package scheduler plays random competitions on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/tagrank/internal/domain/model"
	"github.com/okian/tagrank/internal/domain/selection"
	"github.com/okian/tagrank/pkg/logger"
	"github.com/okian/tagrank/pkg/metrics"
	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is returned for a cron spec that does not parse.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Player runs one engine-resolved competition.
type Player interface {
	Play(ctx context.Context) (model.Result, error)
}

// Scheduler runs Player.Play on a cron spec. A run that is still going when
// the next tick fires causes that tick to be skipped.
type Scheduler struct {
	cron    *cron.Cron
	player  Player
	spec    string
	timeout time.Duration
	logger  logger.Logger
	ctx     context.Context
}

// New parses spec and prepares a scheduler. Standard five-field specs and
// descriptors such as "@every 30s" are accepted.
func New(spec string, player Player, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		player:  player,
		spec:    spec,
		timeout: 10 * time.Second,
		logger:  logger.Get().Named("scheduler"),
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}

	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidSchedule, spec, err)
	}
	adapter := cronLogger{l: s.logger}
	s.cron = cron.New(
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)
	s.cron.Schedule(schedule, cron.FuncJob(func() { s.run(s.ctx) }))
	return s, nil
}

// Start begins firing in the background. Runs use ctx without its
// cancellation so an in-flight competition is not cut short by shutdown.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = context.WithoutCancel(ctx)
	s.logger.Info(ctx, "autoplay scheduled", logger.String("spec", s.spec))
	s.cron.Start()
}

// Stop halts the schedule and waits for a running competition or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next reports when the schedule fires next; zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.player.Play(ctx)
	switch {
	case errors.Is(err, selection.ErrEmptyInput):
		metrics.RecordAutoplayRun("skipped")
		s.logger.Debug(ctx, "autoplay skipped", logger.Error(err))
	case err != nil:
		metrics.RecordAutoplayRun("error")
		s.logger.Error(ctx, "autoplay failed", logger.Error(err))
	default:
		metrics.RecordAutoplayRun("ok")
		s.logger.Info(ctx, "autoplay competition applied",
			logger.String("tag_id", res.TagID),
			logger.String("winner_id", res.WinnerID),
			logger.String("loser_id", res.LoserID()),
			logger.Bool("upset", res.Upset),
		)
	}
}

// cronLogger adapts logger.Logger to cron's logr-style interface.
type cronLogger struct {
	l logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(context.Background(), msg, fields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(context.Background(), msg, append(fields(keysAndValues), logger.Error(err))...)
}

func fields(kv []any) []logger.Field {
	out := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
