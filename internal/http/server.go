// Package http exposes the resolver over HTTP.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"linkbridge/internal/core"
	"linkbridge/pkg/musiclink"
)

const shutdownTimeout = 10 * time.Second

// Resolver is the resolution core behind the HTTP routes.
type Resolver interface {
	SearchTrack(ctx context.Context, target musiclink.Platform, artist, title string) (string, error)
	GetLink(ctx context.Context, link string, target musiclink.Platform) (string, error)
	Platforms() []musiclink.Platform
}

type Server struct {
	config   *core.ServerConfig
	logger   *zap.Logger
	server   *http.Server
	router   chi.Router
	resolver Resolver
	metrics  *Metrics
}

func NewServer(config *core.ServerConfig, resolver Resolver, metrics *Metrics, logger *zap.Logger) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}

	s := &Server{
		config:   config,
		logger:   logger,
		router:   chi.NewRouter(),
		resolver: resolver,
		metrics:  metrics,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = createHTTPServer(config, s.router)
	return s
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/search_track", s.handleSearchTrack)
	s.router.Get("/get_link", s.handleGetLink)
	s.router.Get("/get_redirect_link", s.handleGetRedirectLink)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	s.router.Get("/", s.handleIndex)
}

// Handler returns the routed handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// requestLogger logs one structured line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()

			defer func() {
				logger.Info("Handled request",
					zap.String("requestID", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("elapsed", time.Since(started)))
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
