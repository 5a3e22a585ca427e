package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aadjones/kent-repertory-etl/internal/config"
	"github.com/aadjones/kent-repertory-etl/internal/db"
	"github.com/aadjones/kent-repertory-etl/internal/fetch"
	"github.com/aadjones/kent-repertory-etl/internal/pipeline"
)

// Server is the HTTP API server for the repertory ETL.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	fetcher      *fetch.Client
	database     *db.DB // nil when no DATABASE_URL is configured
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, fetcher *fetch.Client, database *db.DB, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		fetcher:      fetcher,
		database:     database,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/chapters", s.handleBuild)
		r.Post("/api/chapters/batch", s.handleBatchBuild)
		r.Post("/api/chapters/fetch", s.handleFetchBuild)
		r.Get("/api/chapters/{jobID}/status", s.handleBuildStatus)
		r.Get("/api/chapters/{jobID}/document", s.handleDocument)
		r.Get("/api/chapters", s.handleListChapters)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
