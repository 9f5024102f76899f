package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/tagrank/internal/domain/model"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const defaultLimit = 10

func (a *app) tagCommand() *cli.Command {
	return &cli.Command{
		Name:  "tag",
		Usage: "manage tags",
		Commands: []*cli.Command{{
			Name:  "add",
			Usage: "create or rename a tag",
			Flags: catalogFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				t := model.Tag{ID: cmd.String("id"), Name: cmd.String("name")}
				if err := a.svc.CreateTag(ctx, t); err != nil {
					return err
				}
				return a.render(t.ToMap())
			},
		}, {
			Name:  "list",
			Usage: "list tags",
			Action: func(ctx context.Context, _ *cli.Command) error {
				tags, err := a.svc.Tags(ctx)
				if err != nil {
					return err
				}
				out := make([]map[string]any, 0, len(tags))
				for _, t := range tags {
					out = append(out, t.ToMap())
				}
				return a.render(out)
			},
		}},
	}
}

func (a *app) competitorCommand() *cli.Command {
	return &cli.Command{
		Name:  "competitor",
		Usage: "manage competitors",
		Commands: []*cli.Command{{
			Name:  "add",
			Usage: "create or rename a competitor",
			Flags: catalogFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				c := model.Competitor{ID: cmd.String("id"), Name: cmd.String("name")}
				if err := a.svc.CreateCompetitor(ctx, c); err != nil {
					return err
				}
				return a.render(c.ToMap())
			},
		}, {
			Name:  "list",
			Usage: "list competitors",
			Action: func(ctx context.Context, _ *cli.Command) error {
				comps, err := a.svc.Competitors(ctx)
				if err != nil {
					return err
				}
				out := make([]map[string]any, 0, len(comps))
				for _, c := range comps {
					out = append(out, c.ToMap())
				}
				return a.render(out)
			},
		}},
	}
}

func catalogFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "id", Required: true},
		&cli.StringFlag{Name: "name"},
	}
}

func (a *app) matchupCommand() *cli.Command {
	return &cli.Command{
		Name:  "matchup",
		Usage: "pick a random tag and two competitors",
		Action: func(ctx context.Context, _ *cli.Command) error {
			p, err := a.svc.NextMatchup(ctx)
			if err != nil {
				return err
			}
			return a.render(pairingMap(p))
		},
	}
}

func (a *app) competeCommand() *cli.Command {
	return &cli.Command{
		Name:  "compete",
		Usage: "apply one competition; without --winner the engine draws one",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tag", Required: true},
			&cli.StringFlag{Name: "a", Required: true},
			&cli.StringFlag{Name: "b", Required: true},
			&cli.StringFlag{Name: "winner"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			res, err := a.svc.Apply(ctx, model.Competition{
				TagID:       cmd.String("tag"),
				CompetitorA: cmd.String("a"),
				CompetitorB: cmd.String("b"),
				WinnerID:    cmd.String("winner"),
			})
			if err != nil {
				return err
			}
			return a.render(resultMap(res))
		},
	}
}

type playSummary struct {
	Played  int              `json:"played" yaml:"played"`
	Upsets  int              `json:"upsets" yaml:"upsets"`
	Results []map[string]any `json:"results" yaml:"results"`
}

func (a *app) playCommand() *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "play random matchups decided by the engine",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 1},
			&cli.IntFlag{Name: "parallel", Aliases: []string{"p"}, Value: 1},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			count, parallel := cmd.Int("count"), cmd.Int("parallel")
			if count < 1 || parallel < 1 {
				return fmt.Errorf("%w: count and parallel must be positive", ErrUsage)
			}

			var (
				mu      sync.Mutex
				results = make([]model.Result, 0, count)
			)
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(parallel)
			for i := 0; i < count; i++ {
				g.Go(func() error {
					res, err := a.svc.Play(gctx)
					if err != nil {
						return err
					}
					mu.Lock()
					results = append(results, res)
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			summary := playSummary{Played: len(results), Results: resultMaps(results)}
			for _, r := range results {
				if r.Upset {
					summary.Upsets++
				}
			}
			return a.render(summary)
		},
	}
}

func (a *app) leaderboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "leaderboard",
		Usage: "show the top competitors under a tag",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tag", Required: true},
			&cli.IntFlag{Name: "limit", Value: defaultLimit},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			entries, err := a.svc.Leaderboard(ctx, cmd.String("tag"), cmd.Int("limit"))
			if err != nil {
				return err
			}
			return a.render(entries)
		},
	}
}

func (a *app) historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "list applied competitions, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tag"},
			&cli.IntFlag{Name: "limit", Value: defaultLimit},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			results, err := a.svc.History(ctx, cmd.String("tag"), cmd.Int("limit"))
			if err != nil {
				return err
			}
			return a.render(resultMaps(results))
		},
	}
}

func (a *app) estimateCommand() *cli.Command {
	return &cli.Command{
		Name:  "estimate",
		Usage: "fit batch Bradley-Terry ratings over a tag's history",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tag", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			est, err := a.svc.Estimate(ctx, cmd.String("tag"))
			if err != nil {
				return err
			}
			return a.render(est)
		},
	}
}
