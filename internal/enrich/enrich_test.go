package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KingRain/Parsec/internal/deps"
	"github.com/KingRain/Parsec/internal/registry"
)

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

type fakeRegistry struct {
	mu       sync.Mutex
	meta     map[string]*registry.Metadata
	delay    map[string]time.Duration
	block    bool
	inflight int
	peak     int
	started  map[string]time.Time
	calls    atomic.Int32
}

func (f *fakeRegistry) Lookup(ctx context.Context, name string) (*registry.Metadata, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.inflight++
	f.peak = max(f.peak, f.inflight)
	if f.started == nil {
		f.started = make(map[string]time.Time)
	}
	f.started[name] = time.Now()
	d := f.delay[name]
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if d > 0 {
		time.Sleep(d)
	}
	if m, ok := f.meta[name]; ok {
		return m, nil
	}
	return nil, &registry.StatusError{Name: name, Code: 404, Status: "404 Not Found"}
}

type fakeDescriber struct {
	mu     sync.Mutex
	descs  map[string]string
	failAt int
	chunks [][]string
}

func (f *fakeDescriber) Describe(ctx context.Context, names []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, names)
	if f.failAt > 0 && len(f.chunks) == f.failAt {
		return nil, errors.New("upstream failed")
	}
	out := make(map[string]string, len(names))
	for _, n := range names {
		if d, ok := f.descs[n]; ok {
			out[n] = d
		}
	}
	return out, nil
}

func TestMetadataTimeoutLeavesRecord(t *testing.T) {
	e := New(Options{Registry: &fakeRegistry{block: true}, LookupTimeout: 20 * time.Millisecond, Logger: quietLogger()})
	in := []deps.Record{{Name: "left-pad", Version: "^1.3.0", Type: deps.Dependencies}}

	out := e.Metadata(context.Background(), in)

	assert.Equal(t, in, out)
	assert.Empty(t, out[0].Description)
	assert.Empty(t, out[0].Homepage)
}

func TestMetadataAllFailuresEqualInput(t *testing.T) {
	e := New(Options{Registry: &fakeRegistry{}, Logger: quietLogger()})
	in := []deps.Record{
		{Name: "a", Version: "1", Type: deps.Dependencies, Description: "kept", LogoURL: Placeholder},
		{Name: "b", Version: "2", Type: deps.DevDependencies, Homepage: "https://b.dev"},
	}
	assert.Equal(t, in, e.Metadata(context.Background(), in))
}

func TestMetadataNeverRemovesFields(t *testing.T) {
	reg := &fakeRegistry{meta: map[string]*registry.Metadata{
		"axios": {Description: "Promise based HTTP client", Repository: "git+https://github.com/axios/axios.git"},
		"empty": {},
		"home":  {Homepage: "https://home.dev", Repository: "git+https://github.com/x/home.git"},
	}}
	e := New(Options{Registry: reg, Logger: quietLogger()})
	in := []deps.Record{
		{Name: "axios", Type: deps.Dependencies},
		{Name: "empty", Type: deps.Dependencies, Description: "old", Homepage: "https://old.dev"},
		{Name: "home", Type: deps.Dependencies},
	}

	out := e.Metadata(context.Background(), in)

	require.Len(t, out, 3)
	assert.Equal(t, "Promise based HTTP client", out[0].Description)
	assert.Equal(t, "https://github.com/axios/axios", out[0].Homepage)
	assert.Equal(t, "old", out[1].Description)
	assert.Equal(t, "https://old.dev", out[1].Homepage)
	assert.Equal(t, "https://home.dev", out[2].Homepage)
	assert.Empty(t, in[0].Description, "input must not be mutated")
}

func TestMetadataStrictBatches(t *testing.T) {
	reg := &fakeRegistry{
		meta:  map[string]*registry.Metadata{},
		delay: map[string]time.Duration{"a": 60 * time.Millisecond, "b": 5 * time.Millisecond},
	}
	e := New(Options{Registry: reg, Concurrency: 2, Logger: quietLogger()})
	var in []deps.Record
	for _, n := range []string{"a", "b", "c", "d", "e"} {
		in = append(in, deps.Record{Name: n, Type: deps.Dependencies})
	}

	start := time.Now()
	e.Metadata(context.Background(), in)

	assert.Equal(t, int32(5), reg.calls.Load())
	assert.LessOrEqual(t, reg.peak, 2)
	assert.GreaterOrEqual(t, reg.started["c"].Sub(start), 55*time.Millisecond, "second batch started before the first settled")
}

func TestDescriptionsMatchByName(t *testing.T) {
	d := &fakeDescriber{descs: map[string]string{"axios": "HTTP client", "lodash": "Utility library"}}
	e := New(Options{Describer: d, Logger: quietLogger()})

	out := e.Descriptions(context.Background(), []deps.Record{{Name: "axios", Type: deps.Dependencies}})

	require.Len(t, out, 1)
	assert.Equal(t, "HTTP client", out[0].LLMDescription)
}

func TestDescriptionsAcrossClasses(t *testing.T) {
	d := &fakeDescriber{descs: map[string]string{"react": "UI library"}}
	e := New(Options{Describer: d, Logger: quietLogger()})

	out := e.Descriptions(context.Background(), []deps.Record{
		{Name: "react", Type: deps.Dependencies},
		{Name: "react", Type: deps.PeerDependencies},
		{Name: "vite", Type: deps.DevDependencies},
	})

	assert.Equal(t, "UI library", out[0].LLMDescription)
	assert.Equal(t, "UI library", out[1].LLMDescription)
	assert.Empty(t, out[2].LLMDescription)
	require.Len(t, d.chunks, 1)
	assert.Equal(t, []string{"react", "vite"}, d.chunks[0])
}

func TestDescriptionsChunksAndPartialFailure(t *testing.T) {
	descs := map[string]string{}
	var in []deps.Record
	for i := 0; i < 25; i++ {
		name := fmt.Sprintf("pkg%d", i)
		descs[name] = "desc " + name
		in = append(in, deps.Record{Name: name, Type: deps.Dependencies})
	}
	d := &fakeDescriber{descs: descs, failAt: 2}
	e := New(Options{Describer: d, Logger: quietLogger()})

	out := e.Descriptions(context.Background(), in)

	require.Len(t, d.chunks, 2)
	assert.Len(t, d.chunks[0], 10)
	assert.Equal(t, "desc pkg9", out[9].LLMDescription)
	assert.Empty(t, out[10].LLMDescription)
	assert.Empty(t, out[24].LLMDescription)
}

func TestDescriptionsFirstChunkFailureReturnsInput(t *testing.T) {
	in := []deps.Record{
		{Name: "react", Version: "^18", Type: deps.Dependencies, Description: "registry text"},
		{Name: "vite", Version: "5", Type: deps.DevDependencies},
	}
	d := &fakeDescriber{descs: map[string]string{"react": "UI library", "vite": "Build tool"}, failAt: 1}
	e := New(Options{Describer: d, Logger: quietLogger()})

	out := e.Descriptions(context.Background(), in)

	assert.Equal(t, in, out)
	require.Len(t, d.chunks, 1)
}

func TestDescriptionsChunkSizes(t *testing.T) {
	var in []deps.Record
	for i := 0; i < 25; i++ {
		in = append(in, deps.Record{Name: fmt.Sprintf("p%d", i)})
	}
	d := &fakeDescriber{descs: map[string]string{}}
	New(Options{Describer: d, Logger: quietLogger()}).Descriptions(context.Background(), in)

	require.Len(t, d.chunks, 3)
	assert.Len(t, d.chunks[2], 5)
}

func TestMergeDescriptionsIgnoresEmpty(t *testing.T) {
	in := []deps.Record{{Name: "a", LLMDescription: "keep"}}
	out := MergeDescriptions(in, map[string]string{"a": ""})
	assert.Equal(t, "keep", out[0].LLMDescription)
}

// logoServer answers 200 only for paths in ok.
func logoServer(t *testing.T, ok ...string) (*httptest.Server, *atomic.Int32) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodHead, r.Method)
		for _, p := range ok {
			if r.URL.EscapedPath() == p {
				w.WriteHeader(http.StatusOK)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestResolvePrefersFirstHit(t *testing.T) {
	srv, hits := logoServer(t, "/gh/simple-icons/simple-icons/icons/babel-core.svg", "/@babel/core/logo.png")
	r := NewLogoResolver(LogoOptions{JSDelivrURL: srv.URL, UnpkgURL: srv.URL, ShieldsURL: "https://badges.test", Logger: quietLogger()})

	got := r.Resolve(context.Background(), "@babel/core")
	assert.Equal(t, srv.URL+"/@babel/core/logo.png", got)
	assert.Equal(t, int32(2), hits.Load())

	assert.Equal(t, got, r.Resolve(context.Background(), "@babel/core"))
	assert.Equal(t, int32(2), hits.Load(), "resolved logos are cached")
}

func TestResolveFallsBackToBadge(t *testing.T) {
	srv, _ := logoServer(t)
	r := NewLogoResolver(LogoOptions{JSDelivrURL: srv.URL, UnpkgURL: srv.URL, ShieldsURL: "https://badges.test", Logger: quietLogger()})

	assert.Equal(t, "https://badges.test/npm/v/definitely-not-a-package-xyz.svg", r.Resolve(context.Background(), "definitely-not-a-package-xyz"))
	assert.Equal(t, "https://badges.test/npm/v/unknown.svg", r.Resolve(context.Background(), ""))
	assert.Equal(t, "https://badges.test/npm/v/a%20b.svg", r.Resolve(context.Background(), "a b"))
}

func TestResolveWithinBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	r := NewLogoResolver(LogoOptions{JSDelivrURL: srv.URL, UnpkgURL: srv.URL, Budget: 50 * time.Millisecond, Logger: quietLogger()})

	start := time.Now()
	got := r.Resolve(context.Background(), "slow")
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, strings.HasPrefix(got, "https://img.shields.io/npm/v/slow"), got)
}

func TestResolveTotal(t *testing.T) {
	r := NewLogoResolver(LogoOptions{JSDelivrURL: "http://127.0.0.1:1", UnpkgURL: "http://127.0.0.1:1", Budget: 200 * time.Millisecond, Logger: quietLogger()})
	for _, name := range []string{"", " ", "@", "@/", "%%%", "💥", "a/b/c", strings.Repeat("x", 300)} {
		got := r.Resolve(context.Background(), name)
		assert.NotEmpty(t, got, name)
		assert.True(t, strings.HasPrefix(got, "https://"), got)
	}
}

func TestCandidates(t *testing.T) {
	r := NewLogoResolver(LogoOptions{})
	assert.Equal(t, []string{
		"https://cdn.jsdelivr.net/npm/@types/node/logo.png",
		"https://unpkg.com/@types/node/logo.png",
		"https://cdn.jsdelivr.net/gh/simple-icons/simple-icons/icons/types-node.svg",
	}, r.Candidates("@types/node"))
}

func TestLogosSharesResolution(t *testing.T) {
	srv, hits := logoServer(t, "/npm/react/logo.png")
	r := NewLogoResolver(LogoOptions{JSDelivrURL: srv.URL, UnpkgURL: srv.URL, Logger: quietLogger()})
	e := New(Options{Logos: r, Logger: quietLogger()})

	out := e.Logos(context.Background(), []deps.Record{
		{Name: "react", Type: deps.Dependencies},
		{Name: "react", Type: deps.PeerDependencies},
	})

	assert.Equal(t, srv.URL+"/npm/react/logo.png", out[0].LogoURL)
	assert.Equal(t, out[0].LogoURL, out[1].LogoURL)
	assert.Equal(t, int32(1), hits.Load())
}

func newPipeline(t *testing.T) (*Enricher, *fakeRegistry) {
	srv, _ := logoServer(t, "/npm/react/logo.png")
	reg := &fakeRegistry{meta: map[string]*registry.Metadata{
		"react": {Description: "React is a JavaScript library", Homepage: "https://react.dev"},
	}}
	e := New(Options{
		Registry:  reg,
		Describer: &fakeDescriber{descs: map[string]string{"react": "UI library"}},
		Logos:     NewLogoResolver(LogoOptions{JSDelivrURL: srv.URL, UnpkgURL: srv.URL, ShieldsURL: "https://badges.test", Logger: quietLogger()}),
		Logger:    quietLogger(),
	})
	return e, reg
}

func TestRunYieldsStagesInOrder(t *testing.T) {
	e, _ := newPipeline(t)
	in := deps.ExtractJSON([]byte(`{"dependencies":{"react":"^18.0.0"},"devDependencies":{"eslint":"^9.0.0"}}`))

	var snaps []Snapshot
	for s := range e.Run(context.Background(), in) {
		snaps = append(snaps, s)
	}

	require.Len(t, snaps, 4)
	assert.Equal(t, []Stage{StageExtracted, StageMetadata, StageDescriptions, StageLogos},
		[]Stage{snaps[0].Stage, snaps[1].Stage, snaps[2].Stage, snaps[3].Stage})

	assert.Equal(t, Placeholder, snaps[0].Records[0].LogoURL)
	assert.Empty(t, snaps[0].Records[0].Description)
	assert.Equal(t, "React is a JavaScript library", snaps[1].Records[0].Description)
	assert.Equal(t, "UI library", snaps[2].Records[0].LLMDescription)
	assert.Equal(t, Placeholder, snaps[2].Records[0].LogoURL)

	final := snaps[3].Records
	assert.True(t, strings.HasSuffix(final[0].LogoURL, "/npm/react/logo.png"))
	assert.Equal(t, "https://badges.test/npm/v/eslint.svg", final[1].LogoURL)
	assert.Equal(t, "https://react.dev", final[0].Homepage)

	snaps[0].Records[0].Name = "mutated"
	assert.Equal(t, "react", snaps[1].Records[0].Name)
	assert.Equal(t, "react", in[0].Name)
}

func TestRunStopsWhenConsumerBreaks(t *testing.T) {
	e, reg := newPipeline(t)
	for range e.Run(context.Background(), []deps.Record{{Name: "react"}}) {
		break
	}
	assert.Equal(t, int32(0), reg.calls.Load())
}

func TestRunDropsCanceledStages(t *testing.T) {
	e, _ := newPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stages []Stage
	for s := range e.Run(ctx, []deps.Record{{Name: "react"}}) {
		stages = append(stages, s.Stage)
		cancel()
	}
	assert.Equal(t, []Stage{StageExtracted}, stages)
}

func TestRunCanceledBeforeStart(t *testing.T) {
	e, _ := newPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := 0
	for range e.Run(ctx, []deps.Record{{Name: "react"}}) {
		n++
	}
	assert.Zero(t, n)
}

func TestFinal(t *testing.T) {
	e, _ := newPipeline(t)
	snap, err := e.Final(context.Background(), []deps.Record{{Name: "react", Type: deps.Dependencies}})

	require.NoError(t, err)
	assert.Equal(t, StageLogos, snap.Stage)
	assert.Equal(t, "UI library", snap.Records[0].DisplayDescription())
}

func TestStagesWithoutCollaborators(t *testing.T) {
	e := New(Options{Logger: quietLogger()})
	in := []deps.Record{{Name: "x"}}
	ctx := context.Background()

	assert.Equal(t, in, e.Metadata(ctx, in))
	assert.Equal(t, in, e.Descriptions(ctx, in))
	assert.Equal(t, in, e.Logos(ctx, in))
}
