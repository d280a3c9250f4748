// Package diagram asks the text model for Mermaid diagrams of a whole
// repository layout or of a single source file. Output is raw model text;
// callers run it through the mermaid sanitizer.
package diagram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/KingRain/Parsec/internal/llm"
)

const (
	MaxContentChars = 20000
	truncatedSuffix = "\n\n... (content truncated for length)"
)

var (
	ErrNoFiles   = errors.New("diagram: no file paths to analyze")
	ErrNoContent = errors.New("diagram: file content is required")
	ErrNoModel   = errors.New("diagram: no text model configured")
)

// GenerationError reports a failed model call for Op.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string { return "diagram " + e.Op + ": " + e.Err.Error() }
func (e *GenerationError) Unwrap() error { return e.Err }

type DetailLevel string

const (
	Simple   DetailLevel = "simple"
	Detailed DetailLevel = "detailed"
)

// ParseDetailLevel maps anything other than "detailed" to Simple.
func ParseDetailLevel(s string) DetailLevel {
	if strings.EqualFold(strings.TrimSpace(s), string(Detailed)) {
		return Detailed
	}
	return Simple
}

type ArchitectureRequest struct {
	FilePaths   []string
	DetailLevel DetailLevel
}

type FileRequest struct {
	Content string
	Name    string
	Type    string
}

type Generator struct {
	client llm.TextClient
	log    logrus.FieldLogger
}

func New(client llm.TextClient, logger logrus.FieldLogger) *Generator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Generator{client: client, log: logger.WithField("component", "diagram")}
}

// Architecture predicts a flat flowchart of the repository from its file
// paths alone.
func (g *Generator) Architecture(ctx context.Context, req ArchitectureRequest) (string, error) {
	paths := make([]string, 0, len(req.FilePaths))
	for _, p := range req.FilePaths {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return "", ErrNoFiles
	}
	tmpl := simplePrompt
	if req.DetailLevel == Detailed {
		tmpl = detailedPrompt
	}
	g.log.WithFields(logrus.Fields{"files": len(paths), "detail": req.DetailLevel}).Debug("architecture diagram requested")
	return g.generate(ctx, "architecture", fmt.Sprintf(tmpl, strings.Join(paths, "\n")))
}

// File diagrams one source file. Content beyond MaxContentChars is cut.
func (g *Generator) File(ctx context.Context, req FileRequest) (string, error) {
	if strings.TrimSpace(req.Content) == "" {
		return "", ErrNoContent
	}
	content := Truncate(req.Content)
	name, typ := req.Name, req.Type
	if name == "" {
		name = "unknown"
	}
	if typ == "" {
		typ = "unknown"
	}
	kind := ChooseKind(content)
	g.log.WithFields(logrus.Fields{"file": name, "kind": kind}).Debug("file diagram requested")
	return g.generate(ctx, "file", fmt.Sprintf(filePrompt, kind, kind.header(), name, typ, content))
}

func (g *Generator) generate(ctx context.Context, op string, prompt string) (string, error) {
	if g.client == nil {
		return "", &GenerationError{Op: op, Err: ErrNoModel}
	}
	out, err := g.client.GenerateText(ctx, prompt)
	if err != nil {
		return "", &GenerationError{Op: op, Err: err}
	}
	if strings.TrimSpace(out) == "" {
		return "", &GenerationError{Op: op, Err: llm.ErrEmptyResponse}
	}
	return out, nil
}

// Truncate cuts s to MaxContentChars characters and marks the cut.
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= MaxContentChars {
		return s
	}
	return string(r[:MaxContentChars]) + truncatedSuffix
}
