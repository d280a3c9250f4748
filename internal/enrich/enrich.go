// Package enrich fills dependency records in stages: registry metadata,
// generated descriptions and logos. Every stage is best effort; failures are
// logged and leave records as they were.
package enrich

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KingRain/Parsec/internal/registry"
)

const (
	DefaultConcurrency        = 6
	DefaultLookupTimeout      = 4 * time.Second
	DefaultDescriptionTimeout = 15 * time.Second
	DescriptionChunkSize      = 10
)

// Lookuper fetches registry metadata for one package.
type Lookuper interface {
	Lookup(ctx context.Context, name string) (*registry.Metadata, error)
}

// Describer returns short descriptions keyed by package name.
type Describer interface {
	Describe(ctx context.Context, names []string) (map[string]string, error)
}

// Options configures an Enricher. Zero values pick defaults; a nil Registry,
// Describer or Logos disables that stage.
type Options struct {
	Registry           Lookuper
	Describer          Describer
	Logos              *LogoResolver
	Concurrency        int
	LookupTimeout      time.Duration
	DescriptionTimeout time.Duration
	Logger             logrus.FieldLogger
}

// Enricher runs the enrichment stages.
type Enricher struct {
	registry    Lookuper
	describer   Describer
	logos       *LogoResolver
	concurrency int
	lookup      time.Duration
	describe    time.Duration
	log         logrus.FieldLogger
}

func New(opts Options) *Enricher {
	e := &Enricher{
		registry:    opts.Registry,
		describer:   opts.Describer,
		logos:       opts.Logos,
		concurrency: opts.Concurrency,
		lookup:      opts.LookupTimeout,
		describe:    opts.DescriptionTimeout,
		log:         opts.Logger,
	}
	if e.concurrency <= 0 {
		e.concurrency = DefaultConcurrency
	}
	if e.lookup <= 0 {
		e.lookup = DefaultLookupTimeout
	}
	if e.describe <= 0 {
		e.describe = DefaultDescriptionTimeout
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	e.log = e.log.WithField("component", "enrich")
	return e
}
