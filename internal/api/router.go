// ABOUTME: Chi routes and middleware stack for the experiment API.
// ABOUTME: CORS, rate limiting, request IDs, metrics and panic recovery.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler builds the routed http.Handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         86400,
	}))

	r.Get("/", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/experimentos", func(r chi.Router) {
		if s.cfg.Server.RateLimit > 0 {
			r.Use(httprate.LimitByIP(s.cfg.Server.RateLimit, time.Minute))
		}
		r.Use(RequestMetrics())

		r.Get("/", s.handleListExperiments)
		r.Post("/novo", s.handleCreateExperiment)
		r.Get("/download-csv/{id}", s.handleDownloadCSV)
		r.Get("/{id}", s.handleGetExperiment)
		r.Put("/{id}", s.handleReplaceExperiment)
		r.Delete("/{id}", s.handleDeleteExperiment)
	})

	return r
}
