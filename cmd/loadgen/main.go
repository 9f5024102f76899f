// Command loadgen drives a running tagrank server with competitions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/tagrank/internal/loadgen"
	"github.com/okian/tagrank/pkg/logger"
	"github.com/urfave/cli/v3"
)

const (
	defaultCompetitions = 10000
	defaultTopN         = 50
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultSettle       = 2 * time.Minute
	defaultRunTimeout   = 10 * time.Minute
)

func main() {
	cmd := &cli.Command{
		Name:  "loadgen",
		Usage: "submit competitions to a tagrank server and verify its leaderboards",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:9080", Usage: "base URL of the service"},
			&cli.IntFlag{Name: "competitions", Aliases: []string{"n"}, Value: defaultCompetitions, Usage: "competitions to submit"},
			&cli.IntFlag{Name: "workers", Value: runtime.NumCPU() * defaultWorkers, Usage: "concurrent submitters"},
			&cli.IntFlag{Name: "tags", Usage: "tags to create before the run"},
			&cli.IntFlag{Name: "competitors", Usage: "competitors to create before the run"},
			&cli.StringFlag{Name: "mode", Value: loadgen.ModeFavored, Usage: "winner selection: random or favored"},
			&cli.FloatFlag{Name: "favored", Value: 0.7, Usage: "probability that the higher-ranked side wins in favored mode"},
			&cli.IntFlag{Name: "top", Value: defaultTopN, Usage: "leaderboard entries to read back per tag"},
			&cli.DurationFlag{Name: "timeout", Value: defaultTimeout, Usage: "HTTP request timeout"},
			&cli.DurationFlag{Name: "settle", Value: defaultSettle, Usage: "how long to wait for the queue to drain"},
			&cli.Int64Flag{Name: "seed", Value: time.Now().UnixNano(), Usage: "seed for winner decisions"},
			&cli.BoolFlag{Name: "verbose", Usage: "enable debug logging"},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := cmd.Run(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "load run failed:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if cmd.Bool("verbose") {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	_, err := loadgen.Run(ctx, &loadgen.Config{
		BaseURL:            cmd.String("url"),
		Competitions:       cmd.Int("competitions"),
		Workers:            cmd.Int("workers"),
		Tags:               cmd.Int("tags"),
		Competitors:        cmd.Int("competitors"),
		Mode:               cmd.String("mode"),
		FavoredProbability: cmd.Float("favored"),
		TopN:               cmd.Int("top"),
		Timeout:            cmd.Duration("timeout"),
		Settle:             cmd.Duration("settle"),
		Seed:               cmd.Int64("seed"),
	})
	return err
}
