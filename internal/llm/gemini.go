package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	genai "google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

// Config is the explicit configuration of a model client.
type Config struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float32
	RPS         float64
	Burst       int
}

// GeminiClient is a thin wrapper around the official genai client. Retries,
// rate limiting and logging are applied via Middleware.
type GeminiClient struct {
	cli     *genai.Client
	model   string
	timeout time.Duration
	temp    float32
}

func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm: missing Gemini API key")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &GeminiClient{cli: cli, model: model, timeout: cfg.Timeout, temp: cfg.Temperature}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// GenerateText sends prompt as a single user turn and joins the text parts of
// the first candidate.
func (g *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{Temperature: genai.Ptr(g.temp)},
	)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

// classify marks client-side API failures as permanent so Retry gives up.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return NewPermanentError(fmt.Errorf("gemini: %w", err))
		}
	}
	return fmt.Errorf("gemini: %w", err)
}

// New builds the production client: Gemini wrapped with logging, rate
// limiting and retries according to cfg.
func New(ctx context.Context, cfg Config, logger logrus.FieldLogger) (TextClient, error) {
	g, err := NewGeminiClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return Wrap(g,
		WithLogging(logger),
		Retry(cfg.MaxRetries, 300*time.Millisecond),
		RateLimit(cfg.RPS, cfg.Burst),
	), nil
}
