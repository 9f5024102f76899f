package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/tagrank/internal/domain/model"
	"github.com/okian/tagrank/internal/domain/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const seedYAML = `
tags:
  - {id: support, name: Support}
competitors:
  - {id: braum, name: Braum}
  - {id: leona, name: Leona}
  - {id: 7, name: Numbered}
ratings:
  - {tag_id: support, competitor_id: braum, rank: 1620, uncertainty: 0.12}
`

func newDB(t *testing.T) string {
	t.Helper()
	t.Setenv("TAGRANK_CONFIG", "")
	t.Setenv("TAGRANK_DB_PATH", "")
	return filepath.Join(t.TempDir(), "data.db")
}

func run(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	argv := append([]string{"tagrank", "--db", db}, args...)
	err := New(&out).Run(context.Background(), argv)
	return out.String(), err
}

func mustRun(t *testing.T, db string, args ...string) string {
	t.Helper()
	out, err := run(t, db, args...)
	require.NoError(t, err, out)
	return out
}

func seed(t *testing.T, db string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))
	out := mustRun(t, db, "seed", "--file", path)

	var summary seedSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, seedSummary{Tags: 1, Competitors: 3, Ratings: 1}, summary)
}

func TestSeedAndLeaderboard(t *testing.T) {
	db := newDB(t)
	seed(t, db)

	var entries []struct {
		Position     int     `json:"position"`
		CompetitorID string  `json:"competitor_id"`
		Rank         float64 `json:"rank"`
	}
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, db, "leaderboard", "--tag", "support")), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "braum", entries[0].CompetitorID)
	assert.Equal(t, 1620.0, entries[0].Rank)

	var comps []map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, db, "competitor", "list")), &comps))
	require.Len(t, comps, 3)
	assert.Equal(t, "7", comps[2]["id"])
}

func TestSeedRejectsBadEntries(t *testing.T) {
	db := newDB(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tags:\n  - {id: t1}\nratings:\n  - {tag_id: t1, competitor_id: a, rank: -5}\n"), 0o600))

	_, err := run(t, db, "seed", "--file", path)
	require.ErrorIs(t, err, model.ErrInvalidValue)

	tags := mustRun(t, db, "tag", "list")
	assert.JSONEq(t, "[]", tags)
}

func TestCompete(t *testing.T) {
	db := newDB(t)
	mustRun(t, db, "tag", "add", "--id", "t1", "--name", "Support")
	mustRun(t, db, "competitor", "add", "--id", "a")
	mustRun(t, db, "competitor", "add", "--id", "b")

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, db, "compete", "--tag", "t1", "--a", "a", "--b", "b", "--winner", "a")), &res))
	assert.Equal(t, "a", res["winner_id"])
	assert.Equal(t, false, res["random"])
	a := res["a"].(map[string]any)
	b := res["b"].(map[string]any)
	assert.InDelta(t, 1725.0, a["rank"], 1e-9)
	assert.InDelta(t, 1275.0, b["rank"], 1e-9)
	assert.InDelta(t, 0.148, a["uncertainty"], 1e-9)

	_, err := run(t, db, "compete", "--tag", "t1", "--a", "a", "--b", "b", "--winner", "zed")
	assert.ErrorIs(t, err, model.ErrInvalidValue)

	var drawn map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, db, "compete", "--tag", "t1", "--a", "a", "--b", "b")), &drawn))
	assert.Equal(t, true, drawn["random"])

	var history []map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, db, "history", "--tag", "t1")), &history))
	assert.Len(t, history, 2)

	var est []map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, db, "estimate", "--tag", "t1")), &est))
	assert.Len(t, est, 2)
}

func TestPlayParallel(t *testing.T) {
	db := newDB(t)
	seed(t, db)

	var summary struct {
		Played  int              `json:"played"`
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, db, "play", "--count", "20", "--parallel", "4")), &summary))
	assert.Equal(t, 20, summary.Played)
	assert.Len(t, summary.Results, 20)

	var history []map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, db, "history", "--limit", "100")), &history))
	assert.Len(t, history, 20)

	_, err := run(t, db, "play", "--count", "0")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestMatchup(t *testing.T) {
	db := newDB(t)

	_, err := run(t, db, "matchup")
	assert.ErrorIs(t, err, selection.ErrEmptyInput)

	seed(t, db)
	var p struct {
		Tag map[string]any `json:"tag"`
		A   map[string]any `json:"a"`
		B   map[string]any `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, db, "matchup")), &p))
	assert.Equal(t, "support", p.Tag["id"])
	assert.NotEqual(t, p.A["id"], p.B["id"])
}

func TestYAMLOutput(t *testing.T) {
	db := newDB(t)
	mustRun(t, db, "tag", "add", "--id", "t1", "--name", "Support")

	out := mustRun(t, db, "--format", "yaml", "tag", "list")
	var tags []map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &tags))
	assert.Equal(t, []map[string]string{{"id": "t1", "name": "Support"}}, tags)

	_, err := run(t, db, "--format", "xml", "tag", "list")
	assert.Error(t, err)
}

func TestDefaultDBPath(t *testing.T) {
	assert.Equal(t, "data.db", filepath.Base(DefaultDBPath()))
	assert.Equal(t, ".tagrank", filepath.Base(filepath.Dir(DefaultDBPath())))
}
