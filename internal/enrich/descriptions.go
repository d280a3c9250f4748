package enrich

import (
	"context"

	"github.com/KingRain/Parsec/internal/common/deadline"
	"github.com/KingRain/Parsec/internal/deps"
)

// Descriptions asks the Describer for descriptions in chunks of
// DescriptionChunkSize names, all within the description budget. Each
// answer is matched onto records by exact name; unknown names are ignored.
// The first failed chunk ends the stage; earlier chunks are kept.
func (e *Enricher) Descriptions(ctx context.Context, records []deps.Record) []deps.Record {
	out := deps.Clone(records)
	if e.describer == nil || len(out) == 0 {
		return out
	}
	ctx, cancel := context.WithTimeout(ctx, e.describe)
	defer cancel()

	var names []string
	seen := make(map[string]bool)
	for _, r := range out {
		if !seen[r.Name] {
			seen[r.Name] = true
			names = append(names, r.Name)
		}
	}

	for start := 0; start < len(names); start += DescriptionChunkSize {
		chunk := names[start:min(start+DescriptionChunkSize, len(names))]
		descs, err := deadline.Do(ctx, 0, func(ctx context.Context) (map[string]string, error) {
			return e.describer.Describe(ctx, chunk)
		})
		if err != nil {
			e.log.WithError(err).WithField("chunk", start/DescriptionChunkSize).Warn("description chunk failed")
			break
		}
		out = MergeDescriptions(out, descs)
	}
	return out
}

// MergeDescriptions returns a copy of records with LLMDescription set from
// descs for every record whose name has a non-empty entry.
func MergeDescriptions(records []deps.Record, descs map[string]string) []deps.Record {
	out := deps.Clone(records)
	for i := range out {
		if d := descs[out[i].Name]; d != "" {
			out[i].LLMDescription = d
		}
	}
	return out
}
