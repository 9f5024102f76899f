package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/okian/tagrank/internal/domain/model"
	"github.com/okian/tagrank/internal/domain/selection"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func render(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
}

func pairingMap(p selection.Pairing) map[string]any {
	return map[string]any{
		"tag": p.Tag.ToMap(),
		"a":   p.A.ToMap(),
		"b":   p.B.ToMap(),
	}
}

func resultMap(r model.Result) map[string]any { //nolint:gocritic // hugeParam: value semantics
	out := map[string]any{
		"competition_id": r.CompetitionID,
		"tag_id":         r.TagID,
		"a":              r.A.ToMap(),
		"b":              r.B.ToMap(),
		"winner_id":      r.WinnerID,
		"random":         r.Random,
		"upset":          r.Upset,
	}
	if !r.TS.IsZero() {
		out["ts"] = r.TS.UTC().Format(time.RFC3339)
	}
	return out
}

func resultMaps(results []model.Result) []map[string]any {
	out := make([]map[string]any, 0, len(results))
	for _, r := range results {
		out = append(out, resultMap(r))
	}
	return out
}
