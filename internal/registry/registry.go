// Package registry reads package metadata from an npm-compatible registry.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
)

const DefaultBaseURL = "https://registry.npmjs.org"

// Metadata is the subset of a registry document the enricher uses.
type Metadata struct {
	Name        string
	Description string
	Homepage    string
	Repository  string
}

// StatusError reports a non-2xx registry response.
type StatusError struct {
	Name   string
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("registry: %s: unexpected status %s", e.Name, e.Status)
}

// Options configures a Client. Zero values pick defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	CacheSize  int
	CacheTTL   time.Duration
	Logger     logrus.FieldLogger
}

// Client looks packages up and remembers successful answers for CacheTTL.
type Client struct {
	base  string
	http  *http.Client
	cache *expirable.LRU[string, *Metadata]
	log   logrus.FieldLogger
}

func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	size := opts.CacheSize
	if size <= 0 {
		size = 2048
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		base:  base,
		http:  hc,
		cache: expirable.NewLRU[string, *Metadata](size, nil, ttl),
		log:   logger.WithField("component", "registry"),
	}
}

// EscapeName renders a package name as a registry path segment. Scoped
// names keep their "@" and escape the slash: "@scope%2Fname".
func EscapeName(name string) string {
	if strings.HasPrefix(name, "@") {
		if scope, pkg, ok := strings.Cut(name[1:], "/"); ok {
			return "@" + url.PathEscape(scope) + "%2F" + url.PathEscape(pkg)
		}
	}
	return url.PathEscape(name)
}

type document struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Homepage    string          `json:"homepage"`
	Repository  json.RawMessage `json:"repository"`
}

// Lookup fetches the registry document for name.
func (c *Client) Lookup(ctx context.Context, name string) (*Metadata, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("registry: empty package name")
	}
	if m, ok := c.cache.Get(name); ok {
		return m, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/"+EscapeName(name), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry: %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &StatusError{Name: name, Code: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}

	var doc document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("registry: %s: decode: %w", name, err)
	}
	m := &Metadata{
		Name:        doc.Name,
		Description: strings.TrimSpace(doc.Description),
		Homepage:    strings.TrimSpace(doc.Homepage),
		Repository:  repositoryURL(doc.Repository),
	}
	if m.Name == "" {
		m.Name = name
	}
	c.cache.Add(name, m)
	c.log.WithField("package", name).Debug("registry lookup")
	return m, nil
}

// repositoryURL accepts both {"url": "..."} and the shorthand string form.
func repositoryURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.URL)
	}
	return ""
}

// Purge drops every cached answer.
func (c *Client) Purge() { c.cache.Purge() }
