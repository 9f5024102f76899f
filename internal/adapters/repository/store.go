// Package repository holds tags, competitors, rating records and applied
// results, and answers leaderboard queries over them.
package repository

import (
	"context"

	"github.com/okian/tagrank/internal/domain/model"
	"github.com/okian/tagrank/internal/domain/types"
)

// Store provides read/write access to the rating state.
//
// Leaderboards are ordered by rank DESC then competitor id ASC; positions
// are dense. Writes for the same (tag, competitor) are last-writer-wins.
type Store interface {
	// Tags, Competitors and RatingRecords return materialised snapshots.
	Tags(ctx context.Context) ([]model.Tag, error)
	Competitors(ctx context.Context) ([]model.Competitor, error)
	RatingRecords(ctx context.Context) ([]model.RatingRecord, error)

	// Tag and Competitor return ErrNotFound for unknown ids.
	Tag(ctx context.Context, id string) (model.Tag, error)
	Competitor(ctx context.Context, id string) (model.Competitor, error)

	// RatingRecordsFor returns every record stored for the pair so that a
	// duplicate is visible to the caller.
	RatingRecordsFor(ctx context.Context, tagID, competitorID string) ([]model.RatingRecord, error)

	PutTag(ctx context.Context, t model.Tag) error
	PutCompetitor(ctx context.Context, c model.Competitor) error

	// UpsertRatings writes records keyed by (tag_id, competitor_id).
	UpsertRatings(ctx context.Context, records ...model.RatingRecord) error

	// ApplyResult writes r.A and r.B and appends r to the history as one
	// step: either all three writes land or none do.
	ApplyResult(ctx context.Context, r model.Result) error
	// Results returns the newest results first. An empty tagID means every
	// tag; limit <= 0 means no limit.
	Results(ctx context.Context, tagID string, limit int) ([]model.Result, error)

	// TopN returns the best n competitors under a tag. ErrInvalidLimit if n < 1.
	TopN(ctx context.Context, tagID string, n int) ([]types.Entry, error)
	// Position returns the competitor's entry under a tag, or ErrNotFound.
	Position(ctx context.Context, tagID, competitorID string) (types.Entry, error)

	Count(ctx context.Context) (types.Counts, error)
	Close() error
}
