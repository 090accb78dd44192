// Package server exposes the classification pipeline over HTTP.
//
// Every endpoint is stateless: requests carry the messages, transactions
// and patterns to score, and nothing is read from or written to a store.
//
//	POST /api/v1/classify           classify a message and extract its transaction
//	POST /api/v1/fingerprint        fingerprint a transaction
//	POST /api/v1/duplicates/score   score two transactions as duplicates
//	POST /api/v1/patterns/build     learn an exclusion pattern from a transaction
//	POST /api/v1/patterns/score     score a transaction against a pattern
//	GET  /healthz                   liveness
//	GET  /metrics                   Prometheus metrics
package server

import (
	"context"
	"fmt"
	"time"

	"sms-expense-tracker/internal/pipeline"
	"sms-expense-tracker/pkg/errors"
	"sms-expense-tracker/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Config configures the HTTP server
type Config struct {
	Addr            string        `json:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	// BodyLimit is the largest accepted request body in bytes
	BodyLimit int    `json:"body_limit" yaml:"body_limit"`
	Version   string `json:"-" yaml:"-"`
}

// DefaultConfig listens on :8080 with 1 MiB bodies
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		BodyLimit:       1 << 20,
		Version:         "dev",
	}
}

// Validate checks the server settings
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("read and write timeouts must be positive")
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown timeout cannot be negative")
	}
	if c.BodyLimit < 1024 {
		return fmt.Errorf("body limit must be at least 1024 bytes, got %d", c.BodyLimit)
	}
	return nil
}

// Server is the HTTP API
type Server struct {
	app      *fiber.App
	pipeline *pipeline.Pipeline
	metrics  *Metrics
	config   *Config
	logger   logger.Logger
}

// New builds the API around p. Nil arguments take their defaults.
func New(p *pipeline.Pipeline, config *Config) *Server {
	if p == nil {
		p = pipeline.Default()
	}
	if config == nil {
		config = DefaultConfig()
	}

	s := &Server{
		pipeline: p,
		metrics:  NewMetrics(),
		config:   config,
		logger:   logger.GetGlobalLogger().WithComponent("server"),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "sms-expense-tracker",
		DisableStartupMessage: true,
		ReadTimeout:           config.ReadTimeout,
		WriteTimeout:          config.WriteTimeout,
		BodyLimit:             config.BodyLimit,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Use(recover.New())
	s.app.Use(s.metrics.Middleware)
	s.app.Use(s.logRequest)

	s.app.Get("/healthz", s.handleHealth)
	s.app.Get("/metrics", s.metrics.Handler())

	api := s.app.Group("/api/v1")
	api.Post("/classify", s.handleClassify)
	api.Post("/fingerprint", s.handleFingerprint)
	api.Post("/duplicates/score", s.handleDuplicateScore)
	api.Post("/patterns/build", s.handleBuildPattern)
	api.Post("/patterns/score", s.handlePatternScore)
}

// App returns the underlying fiber application
func (s *Server) App() *fiber.App {
	return s.app
}

// Metrics returns the server's collectors
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.config.Addr).Info("HTTP server listening")
		errCh <- s.app.Listen(s.config.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.InternalError(errors.CodeUnexpectedError, "listen", err).
				WithContext("addr", s.config.Addr).
				WithSuggestion("Check that the address is free or choose another with --addr")
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "shutdown", err)
	}
	return <-errCh
}

func (s *Server) logRequest(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = statusOf(err)
	}
	s.logger.WithFields(logger.Fields{
		"method":   c.Method(),
		"path":     c.Path(),
		"status":   status,
		"duration": time.Since(start).String(),
	}).Debug("Handled request")
	return err
}

// errorResponse is the body of every failed request
type errorResponse struct {
	Error      string                 `json:"error"`
	Message    string                 `json:"message"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := statusOf(err)
	body := errorResponse{Error: "internal_error", Message: err.Error()}

	if te, ok := errors.AsTrackerError(err); ok {
		body = errorResponse{
			Error:      string(te.Code),
			Message:    te.Message,
			Suggestion: te.Suggestion,
			Context:    te.Context,
		}
	} else if fe, ok := err.(*fiber.Error); ok {
		body = errorResponse{Error: "http_error", Message: fe.Message}
	}

	if status >= fiber.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", c.Path()).Error("Request failed")
	}
	return c.Status(status).JSON(body)
}
