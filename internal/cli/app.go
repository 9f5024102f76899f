// Package cli implements the tagrank command line. Every command runs the
// rating service synchronously against a SQLite file.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/okian/tagrank/internal/adapters/repository/sqlite"
	service "github.com/okian/tagrank/internal/app"
	"github.com/okian/tagrank/internal/config"
	"github.com/okian/tagrank/pkg/logger"
	"github.com/urfave/cli/v3"
)

// ErrUsage marks invalid command line input.
var ErrUsage = errors.New("usage error")

// app holds what the root Before hook opens for the subcommands.
type app struct {
	store  *sqlite.Store
	svc    *service.Service
	format string
	out    io.Writer
}

// DefaultDBPath returns ~/.tagrank/data.db, or a file in the working
// directory when the home directory is unknown.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".tagrank", "data.db")
	}
	return filepath.Join(home, ".tagrank", "data.db")
}

// New builds the root command. Command output goes to out, logs to stderr.
func New(out io.Writer) *cli.Command {
	a := &app{out: out}
	return &cli.Command{
		Name:   "tagrank",
		Usage:  "rate competitors pairwise under tags",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db",
				Value: DefaultDBPath(),
				Usage: "SQLite database file",
			},
			&cli.StringFlag{
				Name:  "format",
				Value: formatJSON,
				Usage: "output format: json or yaml",
				Validator: func(s string) error {
					if s != formatJSON && s != formatYAML {
						return fmt.Errorf("%w: format must be %s or %s", ErrUsage, formatJSON, formatYAML)
					}
					return nil
				},
			},
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "debug, info, warn or error"},
		},
		Before: a.open,
		After:  a.close,
		Commands: []*cli.Command{
			a.seedCommand(),
			a.tagCommand(),
			a.competitorCommand(),
			a.matchupCommand(),
			a.competeCommand(),
			a.playCommand(),
			a.leaderboardCommand(),
			a.historyCommand(),
			a.estimateCommand(),
		},
	}
}

// open loads config, opens the store and builds the service.
func (a *app) open(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := logger.InitWithWriter(os.Stderr); err != nil {
		return ctx, fmt.Errorf("init logger: %w", err)
	}
	if err := logger.SetLevelString(cmd.String("log-level")); err != nil {
		return ctx, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return ctx, err
	}
	path := cmd.String("db")
	if !cmd.IsSet("db") && cfg.DBPath != "" {
		path = cfg.DBPath
	}

	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return ctx, fmt.Errorf("open %s: %w", path, err)
	}
	a.store = store
	a.format = cmd.String("format")
	a.svc = service.New(
		service.WithStore(store),
		service.WithRand(cfg.NewRand()),
		service.WithDefaults(cfg.Defaults()),
		service.WithParams(cfg.Params()),
		service.WithLogger(logger.Get().Named("cli")),
	)
	return ctx, nil
}

func (a *app) close(_ context.Context, _ *cli.Command) error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func (a *app) render(v any) error {
	return render(a.out, a.format, v)
}
