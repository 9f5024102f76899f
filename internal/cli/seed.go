package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/okian/tagrank/internal/domain/model"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML layout accepted by `tagrank seed`:
//
//	tags:
//	  - {id: support, name: Support}
//	competitors:
//	  - {id: braum, name: Braum}
//	ratings:
//	  - {tag_id: support, competitor_id: braum, rank: 1620, uncertainty: 0.12}
type seedFile struct {
	Tags        []map[string]any `yaml:"tags"`
	Competitors []map[string]any `yaml:"competitors"`
	Ratings     []map[string]any `yaml:"ratings"`
}

type seedSummary struct {
	Tags        int `json:"tags" yaml:"tags"`
	Competitors int `json:"competitors" yaml:"competitors"`
	Ratings     int `json:"ratings" yaml:"ratings"`
}

func (a *app) seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "load tags, competitors and ratings from a YAML file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "YAML seed file"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			raw, err := os.ReadFile(cmd.String("file"))
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			summary, err := a.seed(ctx, raw)
			if err != nil {
				return err
			}
			return a.render(summary)
		},
	}
}

// seed validates every entry before writing any of them.
func (a *app) seed(ctx context.Context, raw []byte) (seedSummary, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return seedSummary{}, fmt.Errorf("parse seed file: %w", err)
	}

	tags := make([]model.Tag, 0, len(f.Tags))
	for i, m := range f.Tags {
		t, err := model.TagFromMap(m)
		if err != nil {
			return seedSummary{}, fmt.Errorf("tags[%d]: %w", i, err)
		}
		tags = append(tags, t)
	}
	comps := make([]model.Competitor, 0, len(f.Competitors))
	for i, m := range f.Competitors {
		c, err := model.CompetitorFromMap(m)
		if err != nil {
			return seedSummary{}, fmt.Errorf("competitors[%d]: %w", i, err)
		}
		comps = append(comps, c)
	}
	records := make([]model.RatingRecord, 0, len(f.Ratings))
	for i, m := range f.Ratings {
		r, err := model.RatingRecordFromMap(m)
		if err != nil {
			return seedSummary{}, fmt.Errorf("ratings[%d]: %w", i, err)
		}
		records = append(records, r)
	}

	for _, t := range tags {
		if err := a.svc.CreateTag(ctx, t); err != nil {
			return seedSummary{}, err
		}
	}
	for _, c := range comps {
		if err := a.svc.CreateCompetitor(ctx, c); err != nil {
			return seedSummary{}, err
		}
	}
	if len(records) > 0 {
		if err := a.store.UpsertRatings(ctx, records...); err != nil {
			return seedSummary{}, err
		}
	}
	return seedSummary{Tags: len(tags), Competitors: len(comps), Ratings: len(records)}, nil
}
