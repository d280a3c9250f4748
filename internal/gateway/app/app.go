package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/KingRain/Parsec/internal/describe"
	"github.com/KingRain/Parsec/internal/diagram"
	"github.com/KingRain/Parsec/internal/enrich"
	"github.com/KingRain/Parsec/internal/gateway/config"
	"github.com/KingRain/Parsec/internal/gateway/handler"
	"github.com/KingRain/Parsec/internal/gateway/server"
	"github.com/KingRain/Parsec/internal/github"
	"github.com/KingRain/Parsec/internal/llm"
	"github.com/KingRain/Parsec/internal/logging"
	"github.com/KingRain/Parsec/internal/registry"
)

type App struct {
	server *server.Server
	model  llm.TextClient
	log    logrus.FieldLogger
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.Init(cfg.Log)
	return NewWithConfig(context.Background(), cfg, logger)
}

// NewWithConfig builds the dependency graph for cfg.
func NewWithConfig(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*App, error) {
	deps, err := Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	h := handler.New(handler.Options{
		GitHub:        deps.GitHub,
		Pipeline:      deps.Enricher,
		Describer:     deps.Describer,
		Diagrams:      deps.Diagrams,
		SecureCookies: cfg.Production(),
		MaxFiles:      cfg.GitHub.MaxFiles,
		Logger:        logger,
	})
	return &App{
		server: server.New(cfg.Port, server.NewRouter(h, logger), logger),
		model:  deps.Model,
		log:    logger,
	}, nil
}

// Deps are the long-lived clients shared by the gateway and the CLI.
type Deps struct {
	GitHub    *github.Client
	Model     llm.TextClient
	Describer *describe.Service
	Diagrams  *diagram.Generator
	Enricher  *enrich.Enricher
}

// Build constructs every client once. Without an API key the model is
// left nil: descriptions come from the static table and diagram requests
// answer with fallbacks.
func Build(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*Deps, error) {
	gh := github.New(github.Options{
		APIURL:          cfg.GitHub.APIURL,
		ClientID:        cfg.GitHub.ClientID,
		ClientSecret:    cfg.GitHub.ClientSecret,
		RedirectURL:     cfg.RedirectURL(),
		ManifestTimeout: cfg.GitHub.ManifestTimeout,
		Logger:          logger,
	})

	var model llm.TextClient
	if cfg.LLM.APIKey != "" {
		m, err := llm.New(ctx, llm.Config{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Timeout:     cfg.LLM.Timeout,
			MaxRetries:  cfg.LLM.MaxRetries,
			Temperature: 0.2,
			RPS:         cfg.LLM.RPS,
			Burst:       cfg.LLM.Burst,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create model client: %w", err)
		}
		model = m
	} else {
		logger.Warn("GEMINI_API_KEY not set; using static descriptions and fallback diagrams")
	}

	describer := describe.New(model, logger)
	enricher := enrich.New(enrich.Options{
		Registry: registry.New(registry.Options{
			BaseURL:    cfg.Registry.URL,
			HTTPClient: &http.Client{},
			Logger:     logger,
		}),
		Describer:          describer,
		Logos:              enrich.NewLogoResolver(enrich.LogoOptions{Budget: cfg.Enrich.LogoBudget, Logger: logger}),
		Concurrency:        cfg.Enrich.Concurrency,
		LookupTimeout:      cfg.Enrich.LookupTimeout,
		DescriptionTimeout: cfg.Enrich.DescriptionTimeout,
		Logger:             logger,
	})
	return &Deps{
		GitHub:    gh,
		Model:     model,
		Describer: describer,
		Diagrams:  diagram.New(model, logger),
		Enricher:  enricher,
	}, nil
}

// Close releases the model client.
func (d *Deps) Close() error {
	if d.Model == nil {
		return nil
	}
	return d.Model.Close()
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if a.model != nil {
		if cerr := a.model.Close(); cerr != nil {
			a.log.WithError(cerr).Warn("close model client")
		}
	}
	return err
}
