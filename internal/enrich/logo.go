package enrich

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/KingRain/Parsec/internal/common/deadline"
	"github.com/KingRain/Parsec/internal/deps"
)

// Placeholder is shown until a package's logo has been resolved.
const Placeholder = "https://raw.githubusercontent.com/npm/logos/master/npm%20logo/npm-logo-red.png"

const DefaultLogoBudget = 2500 * time.Millisecond

var errNoLogo = errors.New("enrich: no logo candidate answered")

// LogoOptions configures a LogoResolver. The base URLs exist so tests can
// point the probes at local servers.
type LogoOptions struct {
	HTTPClient  *http.Client
	Budget      time.Duration
	CacheSize   int
	JSDelivrURL string
	UnpkgURL    string
	ShieldsURL  string
	Logger      logrus.FieldLogger
}

// LogoResolver finds a logo URL for a package by probing CDN candidates.
type LogoResolver struct {
	http     *http.Client
	budget   time.Duration
	cache    *lru.Cache[string, string]
	jsdelivr string
	unpkg    string
	shields  string
	log      logrus.FieldLogger
}

func NewLogoResolver(opts LogoOptions) *LogoResolver {
	r := &LogoResolver{
		http:     opts.HTTPClient,
		budget:   opts.Budget,
		jsdelivr: strings.TrimRight(opts.JSDelivrURL, "/"),
		unpkg:    strings.TrimRight(opts.UnpkgURL, "/"),
		shields:  strings.TrimRight(opts.ShieldsURL, "/"),
		log:      opts.Logger,
	}
	if r.http == nil {
		r.http = &http.Client{}
	}
	if r.budget <= 0 {
		r.budget = DefaultLogoBudget
	}
	if r.jsdelivr == "" {
		r.jsdelivr = "https://cdn.jsdelivr.net"
	}
	if r.unpkg == "" {
		r.unpkg = "https://unpkg.com"
	}
	if r.shields == "" {
		r.shields = "https://img.shields.io"
	}
	if r.log == nil {
		r.log = logrus.StandardLogger()
	}
	size := opts.CacheSize
	if size <= 0 {
		size = 1024
	}
	r.cache, _ = lru.New[string, string](size)
	return r
}

// escapePath escapes each "/"-separated segment of a package name.
func escapePath(name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// simpleIconsSlug follows the simple-icons file naming: "@" dropped, "/"
// turned into "-", lowercase.
func simpleIconsSlug(name string) string {
	s := strings.ReplaceAll(name, "@", "")
	s = strings.ReplaceAll(s, "/", "-")
	return strings.ToLower(s)
}

// Candidates lists the probed logo URLs in priority order.
func (r *LogoResolver) Candidates(name string) []string {
	p := escapePath(name)
	return []string{
		r.jsdelivr + "/npm/" + p + "/logo.png",
		r.unpkg + "/" + p + "/logo.png",
		r.jsdelivr + "/gh/simple-icons/simple-icons/icons/" + url.PathEscape(simpleIconsSlug(name)) + ".svg",
	}
}

// Fallback is the npm version badge for name.
func (r *LogoResolver) Fallback(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "unknown"
	}
	return r.shields + "/npm/v/" + escapePath(name) + ".svg"
}

// Resolve returns the first candidate that answers a HEAD request with 2xx
// within the budget, or the badge fallback. It never returns "".
func (r *LogoResolver) Resolve(ctx context.Context, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return r.Fallback(name)
	}
	if u, ok := r.cache.Get(name); ok {
		return u
	}
	u, err := deadline.Do(ctx, r.budget, func(ctx context.Context) (string, error) {
		for _, c := range r.Candidates(name) {
			if r.probe(ctx, c) {
				return c, nil
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
		}
		return "", errNoLogo
	})
	if err != nil {
		r.log.WithField("package", name).WithError(err).Debug("logo fallback")
		return r.Fallback(name)
	}
	r.cache.Add(name, u)
	return u
}

func (r *LogoResolver) probe(ctx context.Context, u string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return false
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Logos resolves a logo for every record, at most concurrency probes at a
// time. Records sharing a name share one resolution.
func (e *Enricher) Logos(ctx context.Context, records []deps.Record) []deps.Record {
	out := deps.Clone(records)
	if e.logos == nil {
		return out
	}
	var names []string
	seen := make(map[string]bool)
	for _, r := range out {
		if !seen[r.Name] {
			seen[r.Name] = true
			names = append(names, r.Name)
		}
	}

	resolved := make([]string, len(names))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, name := range names {
		g.Go(func() error {
			resolved[i] = e.logos.Resolve(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	byName := make(map[string]string, len(names))
	for i, name := range names {
		byName[name] = resolved[i]
	}
	for i := range out {
		out[i].LogoURL = byName[out[i].Name]
	}
	return out
}
