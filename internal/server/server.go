// Package server exposes the workflow and the review services over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jfowler-cloud/scaffold-ai/internal/blueprint"
	"github.com/jfowler-cloud/scaffold-ai/internal/codegen"
	"github.com/jfowler-cloud/scaffold-ai/internal/store"
	"github.com/jfowler-cloud/scaffold-ai/internal/workflow"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

type Config struct {
	Addr    string
	Engine  *workflow.Engine
	Sharing *store.Sharing
	History *store.History
	Catalog *blueprint.Catalog
	Dialect string
	Logger  *zap.Logger
	// Renderers defaults to codegen.Default.
	Renderers *codegen.Registry
}

type Server struct {
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Renderers == nil {
		cfg.Renderers = codegen.Default()
	}
	if cfg.Engine == nil {
		cfg.Engine = workflow.New(workflow.WithLogger(logger), workflow.WithRenderers(cfg.Renderers))
	}
	return &Server{cfg: cfg, logger: logger}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		s.requestLogger,
		middleware.Recoverer,
	)

	r.Get("/health", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.chat)
		r.Post("/review", s.review)
		r.Post("/fix", s.fix)
		r.Post("/score", s.score)
		r.Post("/generate", s.generate)
		r.Post("/cost", s.estimateCost)

		r.Get("/blueprints", s.listBlueprints)
		r.Get("/blueprints/{id}", s.getBlueprint)

		r.Post("/share", s.createShare)
		r.Get("/share", s.listShares)
		r.Get("/share/{id}", s.getShare)

		r.Get("/history/{id}", s.getHistory)
		r.Post("/history/{id}", s.recordHistory)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Serve listens on Config.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting API server", zap.String("addr", s.cfg.Addr))

	eg, egctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
