package enrich

import (
	"context"
	"iter"

	"github.com/sirupsen/logrus"

	"github.com/KingRain/Parsec/internal/deps"
)

// Stage names a point in the enrichment sequence.
type Stage string

const (
	StageExtracted    Stage = "extracted"
	StageMetadata     Stage = "metadata"
	StageDescriptions Stage = "descriptions"
	StageLogos        Stage = "logos"
)

// Snapshot is the state of every record after a stage. Records is never
// shared with another snapshot.
type Snapshot struct {
	Stage   Stage         `json:"stage"`
	Records []deps.Record `json:"records"`
}

// Run yields the extracted records at once, with placeholder logos, then one
// snapshot after each of the metadata, descriptions and logos stages. Once
// ctx is done nothing more is yielded and a stage it interrupted is dropped.
// Breaking out of the loop stops the remaining stages.
func (e *Enricher) Run(ctx context.Context, records []deps.Record) iter.Seq[Snapshot] {
	return func(yield func(Snapshot) bool) {
		cur := deps.Clone(records)
		for i := range cur {
			if cur[i].LogoURL == "" {
				cur[i].LogoURL = Placeholder
			}
		}
		if ctx.Err() != nil || !yield(Snapshot{Stage: StageExtracted, Records: deps.Clone(cur)}) {
			return
		}

		stages := []struct {
			stage Stage
			run   func(context.Context, []deps.Record) []deps.Record
		}{
			{StageMetadata, e.Metadata},
			{StageDescriptions, e.Descriptions},
			{StageLogos, e.Logos},
		}
		for _, s := range stages {
			next := s.run(ctx, cur)
			if ctx.Err() != nil {
				e.log.WithField("stage", s.stage).Debug("analysis canceled")
				return
			}
			cur = next
			e.log.WithFields(logrus.Fields{"stage": s.stage, "records": len(cur)}).Debug("stage complete")
			if !yield(Snapshot{Stage: s.stage, Records: deps.Clone(cur)}) {
				return
			}
		}
	}
}

// Final drains Run and returns its last snapshot.
func (e *Enricher) Final(ctx context.Context, records []deps.Record) (Snapshot, error) {
	var last Snapshot
	for snap := range e.Run(ctx, records) {
		last = snap
	}
	return last, ctx.Err()
}
