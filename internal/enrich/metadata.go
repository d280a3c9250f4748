package enrich

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/KingRain/Parsec/internal/common/deadline"
	"github.com/KingRain/Parsec/internal/deps"
	"github.com/KingRain/Parsec/internal/registry"
)

// Metadata looks every record up in the registry in strict batches of the
// configured concurrency: a batch fully settles before the next one starts.
// Failed lookups leave their record untouched. The result is a new slice in
// input order.
func (e *Enricher) Metadata(ctx context.Context, records []deps.Record) []deps.Record {
	out := deps.Clone(records)
	if e.registry == nil {
		return out
	}
	for start := 0; start < len(out); start += e.concurrency {
		if ctx.Err() != nil {
			break
		}
		end := min(start+e.concurrency, len(out))
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				name := out[i].Name
				m, err := deadline.Do(ctx, e.lookup, func(ctx context.Context) (*registry.Metadata, error) {
					return e.registry.Lookup(ctx, name)
				})
				if err != nil {
					e.log.WithField("package", name).WithError(err).Debug("metadata lookup failed")
					return nil
				}
				out[i] = applyMetadata(out[i], m)
				return nil
			})
		}
		_ = g.Wait()
	}
	return out
}

// applyMetadata sets only the fields the registry actually supplied.
func applyMetadata(r deps.Record, m *registry.Metadata) deps.Record {
	if m == nil {
		return r
	}
	if m.Description != "" {
		r.Description = m.Description
	}
	homepage := m.Homepage
	if homepage == "" {
		homepage = deps.NormalizeRepositoryURL(m.Repository)
	}
	if homepage != "" {
		r.Homepage = homepage
	}
	return r
}
