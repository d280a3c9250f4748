// Package describe produces one-sentence package descriptions, from the
// text model when one is configured and from a curated table otherwise.
package describe

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/KingRain/Parsec/internal/llm"
)

var curated = map[string]string{
	"react":         "A JavaScript library for building user interfaces with a component-based architecture.",
	"next":          "React framework for production that enables server-side rendering and static site generation.",
	"axios":         "Promise based HTTP client for the browser and Node.js with an easy-to-use API.",
	"express":       "Fast, unopinionated, minimalist web framework for Node.js for building web applications and APIs.",
	"tailwindcss":   "A utility-first CSS framework for rapidly building custom user interfaces.",
	"typescript":    "A typed superset of JavaScript that compiles to plain JavaScript for improved developer experience.",
	"eslint":        "A pluggable and configurable linter tool for identifying and fixing problems in JavaScript code.",
	"dotenv":        "Zero-dependency module that loads environment variables from a .env file into process.env.",
	"cors":          "Node.js package for providing a Connect/Express middleware that enables CORS.",
	"cookie-parser": "Parse Cookie header and populate req.cookies with an object keyed by the cookie names.",
}

const prompt = `You are given a list of npm package names. For each package write one plain sentence describing what it does.
Respond with JSON only, shaped exactly as {"descriptions": {"<package>": "<sentence>"}}, using the package names verbatim as keys.

Packages: %s`

// Static returns the curated description for name, or a generic sentence.
func Static(name string) string {
	if d, ok := curated[name]; ok {
		return d
	}
	return fmt.Sprintf("Package that provides functionality related to %s.", name)
}

// ParseList splits a comma separated package list, trimming blanks and
// dropping empty and repeated names.
func ParseList(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

type Service struct {
	client llm.TextClient
	log    logrus.FieldLogger
}

// New returns a Service. A nil client serves the static table only.
func New(client llm.TextClient, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{client: client, log: logger.WithField("component", "describe")}
}

// Describe returns a description for every name. Names the model skipped,
// or all of them when the model fails, get the static description. Only a
// done ctx is reported as an error.
func (s *Service) Describe(ctx context.Context, names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	if len(names) == 0 {
		return out, nil
	}
	if s.client != nil {
		var resp struct {
			Descriptions map[string]string `json:"descriptions"`
		}
		err := llm.GenerateJSON(ctx, s.client, fmt.Sprintf(prompt, strings.Join(names, ",")), &resp)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.WithError(err).WithField("packages", len(names)).Warn("model descriptions failed; using static table")
		}
		for _, n := range names {
			if d := strings.TrimSpace(resp.Descriptions[n]); d != "" {
				out[n] = d
			}
		}
	}
	for _, n := range names {
		if _, ok := out[n]; !ok {
			out[n] = Static(n)
		}
	}
	return out, nil
}
