// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/envelope/internal/config"
	envelopeHTTP "github.com/allisson/envelope/internal/envelope/http"
	keyringHTTP "github.com/allisson/envelope/internal/keyring/http"
	"github.com/allisson/envelope/internal/metrics"
)

// ReadinessCheck reports whether the key store can serve requests.
type ReadinessCheck func(ctx context.Context) error

// Server represents the HTTP server
type Server struct {
	server         *http.Server
	router         *gin.Engine
	logger         *slog.Logger
	readinessCheck ReadinessCheck
}

// NewServer creates a new HTTP server
func NewServer(
	readinessCheck ReadinessCheck,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		logger:         logger,
		readinessCheck: readinessCheck,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the API router. Background work started by middleware
// stops when ctx is done.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	envelopeHandler *envelopeHTTP.EnvelopeHandler,
	keyHandler *keyringHTTP.KeyHandler,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	if cfg.RateLimitEnabled {
		v1.Use(RateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	envelopes := v1.Group("/envelopes")
	envelopes.POST("/encrypt", envelopeHandler.EncryptHandler)
	envelopes.POST("/decrypt", envelopeHandler.DecryptHandler)
	envelopes.POST("/decrypt-batch", envelopeHandler.DecryptBatchHandler)
	envelopes.POST("/re-encrypt", envelopeHandler.ReEncryptHandler)
	envelopes.POST("/re-encrypt-batch", envelopeHandler.ReEncryptBatchHandler)

	keys := v1.Group("/keys")
	keys.GET("", keyHandler.ListHandler)
	keys.POST("", keyHandler.CreateHandler)
	keys.POST("/rotate", keyHandler.RotateHandler)

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the key store is reachable.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.readinessCheck == nil {
		s.notReady(c, fmt.Errorf("no key store configured"))
		return
	}
	if err := s.readinessCheck(ctx); err != nil {
		s.notReady(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"key_store": "ok"},
	})
}

func (s *Server) notReady(c *gin.Context, err error) {
	s.logger.Warn("readiness check failed", slog.Any("error", err))
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"status":     "not_ready",
		"components": gin.H{"key_store": "error"},
	})
}
