// Package server exposes the enrichment pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-enricher/internal/config"
	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/pipeline"
)

// Enricher is the pipeline surface the handlers call.
type Enricher interface {
	Enrich(ctx context.Context, username string, opts pipeline.Options) (*model.RunReport, error)
	EnrichProfile(ctx context.Context, username string) (*model.Lead, *pipeline.StageOutcome, error)
	RunStage(ctx context.Context, leadID string, name model.StageName, opts pipeline.Options) (*pipeline.StageOutcome, error)
	Lead(ctx context.Context, idOrUsername string) (*model.Lead, error)
}

// Starter launches a background enrichment. It is optional; without it
// async requests are rejected.
type Starter interface {
	StartEnrichment(ctx context.Context, username string, opts pipeline.Options) (workflowID, runID string, err error)
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	cfg      config.ServerConfig
	enricher Enricher
	starter  Starter
	validate *validator.Validate
}

// New creates a Server. starter may be nil.
func New(cfg config.ServerConfig, enricher Enricher, starter Starter) *Server {
	return &Server{
		cfg:      cfg,
		enricher: enricher,
		starter:  starter,
		validate: newValidator(),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.RequestTimeoutSecs > 0 {
			r.Use(middleware.Timeout(time.Duration(s.cfg.RequestTimeoutSecs) * time.Second))
		}
		if !s.cfg.AuthDisabled {
			r.Use(s.authenticate)
		}
		r.Route("/v1", func(r chi.Router) {
			r.Post("/enrich", s.handleEnrich)
			r.Post("/enrich/profile", s.handleEnrichProfile)
			r.Post("/enrich/reels", s.stageHandler(model.StageReels))
			r.Post("/enrich/website", s.stageHandler(model.StageWebsite))
			r.Post("/enrich/summary", s.stageHandler(model.StageSummary))
			r.Get("/leads/{id}", s.handleGetLead)
		})
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// ListenAndServe serves until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("starting server", zap.Int("port", s.cfg.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server listen")
	}
	return nil
}
