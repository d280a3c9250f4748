// Package handler serves the JSON and WebSocket endpoints of the gateway.
package handler

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/KingRain/Parsec/internal/deps"
	"github.com/KingRain/Parsec/internal/diagram"
	"github.com/KingRain/Parsec/internal/enrich"
	"github.com/KingRain/Parsec/internal/github"
	"github.com/KingRain/Parsec/internal/util/jsonutil"
)

// GitHub is the part of *github.Client the handlers use.
type GitHub interface {
	Contents(ctx context.Context, owner, repo, path string) (*github.Contents, error)
	FetchManifest(ctx context.Context, owner, repo string) ([]byte, error)
	ListFiles(ctx context.Context, owner, repo string, maxFiles int) ([]github.FileItem, error)
	ListRepos(ctx context.Context) ([]github.Repo, error)
	User(ctx context.Context) (*github.User, error)
	Languages(ctx context.Context, owner, repo string) ([]github.LanguageShare, error)
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
}

// Pipeline is the dependency enrichment pipeline.
type Pipeline interface {
	Run(ctx context.Context, records []deps.Record) iter.Seq[enrich.Snapshot]
	Final(ctx context.Context, records []deps.Record) (enrich.Snapshot, error)
}

type Describer interface {
	Describe(ctx context.Context, names []string) (map[string]string, error)
}

type Diagrams interface {
	Architecture(ctx context.Context, req diagram.ArchitectureRequest) (string, error)
	File(ctx context.Context, req diagram.FileRequest) (string, error)
}

type Options struct {
	GitHub        GitHub
	Pipeline      Pipeline
	Describer     Describer
	Diagrams      Diagrams
	SecureCookies bool
	MaxFiles      int
	Logger        logrus.FieldLogger
}

type Handler struct {
	gh            GitHub
	pipeline      Pipeline
	describer     Describer
	diagrams      Diagrams
	secureCookies bool
	maxFiles      int
	log           logrus.FieldLogger
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		gh:            opts.GitHub,
		pipeline:      opts.Pipeline,
		describer:     opts.Describer,
		diagrams:      opts.Diagrams,
		secureCookies: opts.SecureCookies,
		maxFiles:      opts.MaxFiles,
		log:           logger.WithField("component", "gateway"),
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := jsonutil.MarshalNoEscape(v)
	if err != nil {
		http.Error(w, `{"error":"Internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// repoParams reads owner and repo from the query string.
func repoParams(r *http.Request) (owner, repo string, err error) {
	q := r.URL.Query()
	owner, repo = strings.TrimSpace(q.Get("owner")), strings.TrimSpace(q.Get("repo"))
	return owner, repo, github.ValidateRepo(owner, repo)
}

// githubStatus maps a GitHub client error onto a status code and a short
// message. fallback is used for anything unexpected.
func githubStatus(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, github.ErrMissingRepo):
		return http.StatusBadRequest, "Missing owner or repo parameter"
	case errors.Is(err, github.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, github.ErrFileTooLarge.Error()
	case errors.Is(err, github.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, github.ErrNotFound):
		return http.StatusNotFound, "Not found"
	}
	return http.StatusInternalServerError, fallback
}
