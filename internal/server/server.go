// Package server exposes the callguard engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Veraticus/callguard/internal/guidance"
	"github.com/Veraticus/callguard/internal/metrics"
	"github.com/Veraticus/callguard/internal/model"
	"github.com/Veraticus/callguard/internal/monitor"
	"github.com/Veraticus/callguard/internal/service"
	"github.com/Veraticus/callguard/internal/source"
)

// DefaultMaxUploadBytes bounds uploaded audio.
const DefaultMaxUploadBytes = 25 << 20

// Assessor classifies a transcript and reports remote failures.
type Assessor interface {
	Assess(ctx context.Context, transcript, locale string) (model.AnalysisResult, error)
	Fallback(locale string) model.AnalysisResult
}

// Config wires the server's collaborators.
type Config struct {
	Controller      *monitor.Controller
	Assessor        Assessor
	Feed            *source.StaticFeed
	History         service.HistoryReader
	Guidance        *guidance.Generator
	Gatherer        prometheus.Gatherer
	Logger          *slog.Logger
	Addr            string
	Locale          string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
}

// Server is the HTTP API.
type Server struct {
	cfg    Config
	router *gin.Engine
	hub    *Hub
	logger *slog.Logger
}

// New builds the server and its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Controller == nil {
		return nil, errors.New("server requires a monitor controller")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Guidance == nil {
		cfg.Guidance = guidance.MustDefault()
	}
	if cfg.Feed == nil {
		cfg.Feed = source.NewStaticFeed()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Locale == "" {
		cfg.Locale = cfg.Guidance.DefaultLocale()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}

	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger,
		hub:    NewHub(cfg.Logger),
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("panic recovered", "error", recovered, "path", c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred"})
	}))
	s.router.Use(corsMiddleware())
	s.router.Use(metrics.Middleware())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/metrics", metrics.Handler(s.cfg.Gatherer))
	s.router.GET("/v1/stream", func(c *gin.Context) {
		s.hub.HandleWebSocket(c.Writer, c.Request)
	})

	v1 := s.router.Group("/v1")
	v1.POST("/analyze", s.analyzeHandler)
	v1.POST("/upload", s.uploadHandler)
	v1.GET("/history", s.historyHandler)
	v1.GET("/indicators", s.indicatorsHandler)
	v1.GET("/guidance/:level", s.guidanceHandler)
	v1.GET("/tips", s.tipsHandler)

	mon := v1.Group("/monitor")
	mon.POST("/start", s.startHandler)
	mon.POST("/stop", s.stopHandler)
	mon.GET("/current", s.currentHandler)
	mon.POST("/transcript", s.transcriptHandler)
}

// Router returns the gin router for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Hub returns the live stream hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run serves until ctx is canceled, then shuts down gracefully. A running
// monitoring session is stopped and recorded on the way out.
func (s *Server) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.hub.Run(runCtx)
	unsubscribe := s.forwardResults()
	defer unsubscribe()

	httpSrv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer shutdownCancel()

	if s.cfg.Controller.State() == monitor.StateMonitoring {
		if _, err := s.cfg.Controller.Stop(shutdownCtx); err != nil {
			s.logger.Warn("failed to stop monitoring during shutdown", "error", err)
		}
	}

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// forwardResults pushes every installed monitor result to the stream hub.
func (s *Server) forwardResults() func() {
	results, unsubscribe := s.cfg.Controller.Subscribe(16)
	go func() {
		for result := range results {
			s.hub.Broadcast(Event{Type: EventAnalysis, Timestamp: result.Timestamp, Data: result})
		}
	}()
	return unsubscribe
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		}
		switch {
		case status >= 500:
			s.logger.Error("request completed", append(args, "client_ip", c.ClientIP())...)
		case status >= 400:
			s.logger.Warn("request completed", args...)
		default:
			s.logger.Debug("request completed", args...)
		}
	}
}
