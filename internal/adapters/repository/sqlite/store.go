// Package sqlite implements repository.Store on a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/tagrank/internal/adapters/repository"
	"github.com/okian/tagrank/internal/adapters/repository/sqlite/migrations"
	"github.com/okian/tagrank/internal/domain/model"
	"github.com/okian/tagrank/internal/domain/types"
	"github.com/okian/tagrank/pkg/metrics"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed rating persistence.
type Store struct {
	sqlDB *sql.DB
}

var _ repository.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency("sqlite_"+op, float64(time.Since(start).Microseconds())/1000)
}

func (s *Store) Tags(ctx context.Context) ([]model.Tag, error) {
	defer observe("tags", time.Now())
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var out []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) Competitors(ctx context.Context) ([]model.Competitor, error) {
	defer observe("competitors", time.Now())
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, name FROM competitors ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list competitors: %w", err)
	}
	defer rows.Close()

	var out []model.Competitor
	for rows.Next() {
		var c model.Competitor
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan competitor: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) RatingRecords(ctx context.Context) ([]model.RatingRecord, error) {
	defer observe("rating_records", time.Now())
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT tag_id, competitor_id, rank, uncertainty
FROM rating_records
ORDER BY tag_id, competitor_id`)
	if err != nil {
		return nil, fmt.Errorf("list rating records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) Tag(ctx context.Context, id string) (model.Tag, error) {
	t := model.Tag{ID: id}
	err := s.sqlDB.QueryRowContext(ctx, `SELECT name FROM tags WHERE id = ?`, id).Scan(&t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tag{}, fmt.Errorf("tag %q: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return model.Tag{}, fmt.Errorf("get tag: %w", err)
	}
	return t, nil
}

func (s *Store) Competitor(ctx context.Context, id string) (model.Competitor, error) {
	c := model.Competitor{ID: id}
	err := s.sqlDB.QueryRowContext(ctx, `SELECT name FROM competitors WHERE id = ?`, id).Scan(&c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Competitor{}, fmt.Errorf("competitor %q: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return model.Competitor{}, fmt.Errorf("get competitor: %w", err)
	}
	return c, nil
}

func (s *Store) RatingRecordsFor(ctx context.Context, tagID, competitorID string) ([]model.RatingRecord, error) {
	defer observe("rating_records_for", time.Now())
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT tag_id, competitor_id, rank, uncertainty
FROM rating_records
WHERE tag_id = ? AND competitor_id = ?`, tagID, competitorID)
	if err != nil {
		return nil, fmt.Errorf("get rating records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) PutTag(ctx context.Context, t model.Tag) error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: tag id is required", model.ErrInvalidShape)
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO tags (id, name) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name`, t.ID, t.Name)
	if err != nil {
		return fmt.Errorf("put tag: %w", err)
	}
	return nil
}

func (s *Store) PutCompetitor(ctx context.Context, c model.Competitor) error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: competitor id is required", model.ErrInvalidShape)
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO competitors (id, name) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name`, c.ID, c.Name)
	if err != nil {
		return fmt.Errorf("put competitor: %w", err)
	}
	return nil
}

// UpsertRatings writes all records in one transaction.
func (s *Store) UpsertRatings(ctx context.Context, records ...model.RatingRecord) error {
	defer observe("upsert", time.Now())
	if err := validateRecords(records); err != nil {
		return err
	}
	return s.inTx(ctx, "upsert", func(tx *sql.Tx) error {
		return upsertRecords(ctx, tx, records)
	})
}

// ApplyResult writes both rating records of r and appends r to the history
// in one transaction.
func (s *Store) ApplyResult(ctx context.Context, r model.Result) error { //nolint:gocritic // hugeParam: value semantics
	defer observe("apply_result", time.Now())
	records := []model.RatingRecord{r.A, r.B}
	if err := validateRecords(records); err != nil {
		return err
	}
	return s.inTx(ctx, "apply result", func(tx *sql.Tx) error {
		if err := upsertRecords(ctx, tx, records); err != nil {
			return err
		}
		return insertResult(ctx, tx, r)
	})
}

func validateRecords(records []model.RatingRecord) error {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", r.TagID, r.CompetitorID, err)
		}
	}
	return nil
}

// inTx runs fn in a transaction and commits when it returns nil.
func (s *Store) inTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", op, err)
	}
	return nil
}

func upsertRecords(ctx context.Context, tx *sql.Tx, records []model.RatingRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO rating_records (tag_id, competitor_id, rank, uncertainty)
VALUES (?, ?, ?, ?)
ON CONFLICT(tag_id, competitor_id) DO UPDATE SET
	rank = excluded.rank,
	uncertainty = excluded.uncertainty`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.TagID, r.CompetitorID, r.Rank, nullUncertainty(r.Uncertainty)); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", r.TagID, r.CompetitorID, err)
		}
	}
	return nil
}

func insertResult(ctx context.Context, tx *sql.Tx, r model.Result) error { //nolint:gocritic // hugeParam: value semantics
	ts := r.TS
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := tx.ExecContext(ctx, `
INSERT INTO results (
	competition_id,
	tag_id,
	competitor_a, rank_a, uncertainty_a,
	competitor_b, rank_b, uncertainty_b,
	winner_id,
	drawn,
	upset,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.CompetitionID,
		r.TagID,
		r.A.CompetitorID, r.A.Rank, nullUncertainty(r.A.Uncertainty),
		r.B.CompetitorID, r.B.Rank, nullUncertainty(r.B.Uncertainty),
		r.WinnerID,
		r.Random,
		r.Upset,
		ts.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

func (s *Store) Results(ctx context.Context, tagID string, limit int) ([]model.Result, error) {
	defer observe("results", time.Now())
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT
	competition_id,
	tag_id,
	competitor_a, rank_a, uncertainty_a,
	competitor_b, rank_b, uncertainty_b,
	winner_id,
	drawn,
	upset,
	created_at
FROM results
WHERE ? = '' OR tag_id = ?
ORDER BY id DESC
LIMIT ?`, tagID, tagID, limit)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []model.Result
	for rows.Next() {
		var (
			r      model.Result
			ua, ub sql.NullFloat64
			millis int64
		)
		if err := rows.Scan(
			&r.CompetitionID,
			&r.TagID,
			&r.A.CompetitorID, &r.A.Rank, &ua,
			&r.B.CompetitorID, &r.B.Rank, &ub,
			&r.WinnerID,
			&r.Random,
			&r.Upset,
			&millis,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.A.TagID, r.B.TagID = r.TagID, r.TagID
		r.A.Uncertainty = uncertainty(ua)
		r.B.Uncertainty = uncertainty(ub)
		r.TS = time.UnixMilli(millis).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) TopN(ctx context.Context, tagID string, n int) ([]types.Entry, error) {
	defer observe("top_n", time.Now())
	if n < 1 {
		return nil, repository.ErrInvalidLimit
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT r.competitor_id, COALESCE(c.name, ''), r.rank, r.uncertainty
FROM rating_records r
LEFT JOIN competitors c ON c.id = r.competitor_id
WHERE r.tag_id = ?
ORDER BY r.rank DESC, r.competitor_id ASC
LIMIT ?`, tagID, n)
	if err != nil {
		return nil, fmt.Errorf("top n: %w", err)
	}
	defer rows.Close()

	out := make([]types.Entry, 0, n)
	for rows.Next() {
		var (
			e types.Entry
			u sql.NullFloat64
		)
		if err := rows.Scan(&e.CompetitorID, &e.Name, &e.Rank, &u); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Uncertainty = uncertainty(u)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	types.AssignPositions(out)
	return out, nil
}

// Position counts the distinct ranks above the competitor's rank.
func (s *Store) Position(ctx context.Context, tagID, competitorID string) (types.Entry, error) {
	defer observe("position", time.Now())
	var (
		e     = types.Entry{CompetitorID: competitorID}
		u     sql.NullFloat64
		above int
	)
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT COALESCE(c.name, ''), r.rank, r.uncertainty,
	(SELECT COUNT(DISTINCT o.rank) FROM rating_records o WHERE o.tag_id = r.tag_id AND o.rank > r.rank)
FROM rating_records r
LEFT JOIN competitors c ON c.id = r.competitor_id
WHERE r.tag_id = ? AND r.competitor_id = ?`, tagID, competitorID).Scan(&e.Name, &e.Rank, &u, &above)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Entry{}, fmt.Errorf("competitor %q under tag %q: %w", competitorID, tagID, repository.ErrNotFound)
	}
	if err != nil {
		return types.Entry{}, fmt.Errorf("position: %w", err)
	}
	e.Uncertainty = uncertainty(u)
	e.Position = above + 1
	return e, nil
}

func (s *Store) Count(ctx context.Context) (types.Counts, error) {
	var c types.Counts
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT
	(SELECT COUNT(*) FROM tags),
	(SELECT COUNT(*) FROM competitors),
	(SELECT COUNT(*) FROM rating_records),
	(SELECT COUNT(*) FROM results)`).Scan(&c.Tags, &c.Competitors, &c.Records, &c.Results)
	if err != nil {
		return types.Counts{}, fmt.Errorf("count: %w", err)
	}
	return c, nil
}

func scanRecords(rows *sql.Rows) ([]model.RatingRecord, error) {
	var out []model.RatingRecord
	for rows.Next() {
		var (
			r model.RatingRecord
			u sql.NullFloat64
		)
		if err := rows.Scan(&r.TagID, &r.CompetitorID, &r.Rank, &u); err != nil {
			return nil, fmt.Errorf("scan rating record: %w", err)
		}
		r.Uncertainty = uncertainty(u)
		out = append(out, r)
	}
	return out, rows.Err()
}

// uncertainty reads a stored value; NULL or out of range means absent.
func uncertainty(u sql.NullFloat64) float64 {
	if !u.Valid || !model.ValidUncertainty(u.Float64) {
		return 0
	}
	return u.Float64
}

func nullUncertainty(u float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: u, Valid: model.ValidUncertainty(u)}
}
