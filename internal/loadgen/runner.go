package loadgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/okian/tagrank/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// ErrNothingToPlay is returned when the server has no tag with two
// competitors.
var ErrNothingToPlay = errors.New("server has nothing to play")

const pollInterval = 100 * time.Millisecond

// Run executes a complete load run and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Get().Named("loadgen")
	stats := &Stats{StartTime: time.Now(), Leaderboards: make(map[string][]Entry)}
	c := newClient(cfg)

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("competitions", cfg.Competitions),
		logger.Int("workers", cfg.Workers),
		logger.String("mode", cfg.Mode),
	)

	if err := c.get(ctx, "/healthz", nil); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}
	if err := seedCatalog(ctx, c, cfg); err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}

	tags, err := submit(ctx, c, cfg, stats)
	if err != nil {
		return stats, err
	}

	if err := waitForDrain(ctx, c, cfg.Settle); err != nil {
		log.Warn(ctx, "queue did not drain", logger.Error(err))
	}

	for _, tag := range tags {
		var entries []Entry
		if err := c.get(ctx, "/leaderboard?tag="+tag+"&limit="+strconv.Itoa(cfg.TopN), &entries); err != nil {
			return stats, fmt.Errorf("leaderboard %s: %w", tag, err)
		}
		if err := verifyLeaderboard(entries); err != nil {
			return stats, fmt.Errorf("tag %s: %w", tag, err)
		}
		stats.Leaderboards[tag] = entries
	}

	stats.Duration = time.Since(stats.StartTime)
	report(ctx, log, stats)
	return stats, nil
}

// seedCatalog creates tag-N and competitor-N ids when asked to.
func seedCatalog(ctx context.Context, c *client, cfg *Config) error {
	for i := 1; i <= cfg.Tags; i++ {
		id := "tag-" + strconv.Itoa(i)
		if status, err := c.post(ctx, "/tags", named{ID: id, Name: "Tag " + strconv.Itoa(i)}, nil); err != nil || status != http.StatusCreated {
			return fmt.Errorf("create %s: status %d: %w", id, status, errors.Join(err, ErrUnexpectedStatus))
		}
	}
	for i := 1; i <= cfg.Competitors; i++ {
		id := "competitor-" + strconv.Itoa(i)
		if status, err := c.post(ctx, "/competitors", named{ID: id, Name: "Competitor " + strconv.Itoa(i)}, nil); err != nil || status != http.StatusCreated {
			return fmt.Errorf("create %s: status %d: %w", id, status, errors.Join(err, ErrUnexpectedStatus))
		}
	}
	return nil
}

// submit plays cfg.Competitions matchups from a bounded worker group and
// returns the tags that were touched.
func submit(ctx context.Context, c *client, cfg *Config, stats *Stats) ([]string, error) {
	var (
		mu      sync.Mutex
		touched = make(map[string]struct{})
		order   []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for i := 0; i < cfg.Competitions; i++ {
		rng := rand.New(rand.NewSource(cfg.Seed + int64(i))) //nolint:gosec // load shaping only
		g.Go(func() error {
			var m matchup
			if err := c.get(gctx, "/matchup", &m); err != nil {
				if errors.Is(err, ErrUnexpectedStatus) {
					return fmt.Errorf("%w: %w", ErrNothingToPlay, err)
				}
				return err
			}
			req, favored := decide(cfg, rng, m)

			var a ack
			status, err := c.post(gctx, "/competitions", req, &a)

			mu.Lock()
			defer mu.Unlock()
			stats.Submitted++
			if _, ok := touched[m.Tag.ID]; !ok {
				touched[m.Tag.ID] = struct{}{}
				order = append(order, m.Tag.ID)
			}
			switch {
			case err != nil:
				stats.Failed++
			case status == http.StatusAccepted:
				stats.Accepted++
				if favored {
					stats.Favored++
				}
			case status == http.StatusOK:
				stats.Duplicate++
			case status == http.StatusTooManyRequests:
				stats.Backpressure++
			default:
				stats.Failed++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return order, err
	}
	return order, nil
}

// decide builds the competition for a matchup. In favored mode the
// higher-ranked side wins with cfg.FavoredProbability; a tie favors B.
func decide(cfg *Config, rng *rand.Rand, m matchup) (competitionRequest, bool) {
	req := competitionRequest{TagID: m.Tag.ID, CompetitorA: m.A.ID, CompetitorB: m.B.ID}
	if cfg.Mode == ModeRandom {
		return req, false
	}
	favored, underdog := m.B.ID, m.A.ID
	if m.A.Rank > m.B.Rank {
		favored, underdog = m.A.ID, m.B.ID
	}
	if rng.Float64() < cfg.FavoredProbability {
		req.WinnerID = favored
		return req, true
	}
	req.WinnerID = underdog
	return req, false
}

// waitForDrain polls /stats until the queue is empty and no worker is busy.
func waitForDrain(ctx context.Context, c *client, settle time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, settle)
	defer cancel()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		var s struct {
			QueueLength int `json:"queueLength"`
			BusyWorkers int `json:"busyWorkers"`
		}
		if err := c.get(ctx, "/stats", &s); err == nil && s.QueueLength == 0 && s.BusyWorkers == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func report(ctx context.Context, log logger.Logger, stats *Stats) {
	perSecond := 0.0
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("backpressure", stats.Backpressure),
		logger.Int("failed", stats.Failed),
		logger.Int("favoredWins", stats.Favored),
		logger.Duration("duration", stats.Duration),
		logger.Float64("competitionsPerSecond", perSecond),
	)
	for tag, entries := range stats.Leaderboards {
		if len(entries) == 0 {
			continue
		}
		top := entries[0]
		log.Info(ctx, "leaderboard leader",
			logger.String("tag", tag),
			logger.String("competitor", top.CompetitorID),
			logger.Float64("rank", top.Rank),
			logger.Int("entries", len(entries)),
		)
	}
}
