package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/KingRain/Parsec/internal/gateway/handler"
	"github.com/KingRain/Parsec/internal/gateway/middleware"
)

// NewRouter mounts every endpoint. Access logs go to logger.
func NewRouter(h *handler.Handler, logger logrus.FieldLogger) http.Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestLogger(&chimiddleware.DefaultLogFormatter{Logger: logger, NoColor: true}))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS)
	r.Use(middleware.Session)

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/auth/login", h.Login)
		r.Get("/auth/callback", h.Callback)
		r.Post("/auth/logout", h.Logout)

		r.Get("/user", h.User)
		r.Get("/repos", h.Repos)
		r.Get("/languages", h.Languages)
		r.Get("/contents", h.Contents)

		r.Get("/dependencies", h.Dependencies)
		r.Get("/dependencies/stream", h.DependenciesStream)
		r.Post("/package-descriptions", h.PackageDescriptions)

		r.Post("/generate-diagram", h.GenerateDiagram)
		r.Post("/architecture", h.Architecture)
	})

	return r
}
