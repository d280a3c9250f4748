// Package github reads repository contents, languages and user data from
// the GitHub REST API and performs the OAuth code exchange.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultAPIURL          = "https://api.github.com"
	DefaultOAuthURL        = "https://github.com"
	DefaultSearchDepth     = 3
	DefaultManifestTimeout = 10 * time.Second
	DefaultMaxFiles        = 500
	MaxFileSize            = 1_000_000

	acceptV3 = "application/vnd.github.v3+json"
)

var (
	ErrMissingRepo      = errors.New("github: owner and repo are required")
	ErrFileTooLarge     = errors.New("File is too large to display (>1MB)")
	ErrManifestNotFound = errors.New("github: package.json not found")
	ErrUnauthorized     = errors.New("github: unauthorized")
	ErrNotFound         = errors.New("github: not found")
	ErrNotDirectory     = errors.New("github: path is not a directory")
	ErrNotFile          = errors.New("github: path is not a file")
)

// StatusError reports a non-2xx API response. It matches ErrUnauthorized
// for 401 and ErrNotFound for 404 under errors.Is.
type StatusError struct {
	Path   string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github: %s: unexpected status %s", e.Path, e.Status)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	}
	return false
}

type Options struct {
	APIURL          string
	OAuthURL        string
	ClientID        string
	ClientSecret    string
	RedirectURL     string
	HTTPClient      *http.Client
	ManifestTimeout time.Duration
	Logger          logrus.FieldLogger
}

type Client struct {
	api             string
	oauth           string
	clientID        string
	clientSecret    string
	redirectURL     string
	http            *http.Client
	manifestTimeout time.Duration
	log             logrus.FieldLogger
}

func New(opts Options) *Client {
	api := strings.TrimRight(strings.TrimSpace(opts.APIURL), "/")
	if api == "" {
		api = DefaultAPIURL
	}
	oauth := strings.TrimRight(strings.TrimSpace(opts.OAuthURL), "/")
	if oauth == "" {
		oauth = DefaultOAuthURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	mt := opts.ManifestTimeout
	if mt <= 0 {
		mt = DefaultManifestTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		api:             api,
		oauth:           oauth,
		clientID:        opts.ClientID,
		clientSecret:    opts.ClientSecret,
		redirectURL:     opts.RedirectURL,
		http:            hc,
		manifestTimeout: mt,
		log:             logger.WithField("component", "github"),
	}
}

type tokenKey struct{}

// WithToken attaches a user access token to ctx. Requests made with that
// ctx authenticate as the user instead of the OAuth app.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

func TokenFrom(ctx context.Context) string {
	s, _ := ctx.Value(tokenKey{}).(string)
	return s
}

// ValidateRepo checks owner and repo are single non-empty path segments.
func ValidateRepo(owner, repo string) error {
	for _, s := range []string{owner, repo} {
		s = strings.TrimSpace(s)
		if s == "" || s == "." || s == ".." || strings.ContainsAny(s, "/\\?#") {
			return ErrMissingRepo
		}
	}
	return nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) {
	if tok := TokenFrom(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
		return
	}
	if c.clientID != "" && c.clientSecret != "" {
		req.SetBasicAuth(c.clientID, c.clientSecret)
	}
}

// get issues an authenticated GET against the API and decodes JSON into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.api + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", acceptV3)
	c.authorize(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github: %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{Path: path, Code: resp.StatusCode, Status: resp.Status}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("github: %s: decode: %w", path, err)
	}
	return nil
}

func repoPath(owner, repo string) string {
	return "/repos/" + url.PathEscape(strings.TrimSpace(owner)) + "/" + url.PathEscape(strings.TrimSpace(repo))
}

// escapePath escapes each segment of a slash separated repository path.
func escapePath(p string) string {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
