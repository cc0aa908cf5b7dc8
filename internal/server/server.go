// Package server exposes the fact-check pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/validate"
)

// Analyzer is the orchestrator surface served over HTTP
type Analyzer interface {
	AnalyzeClaim(ctx context.Context, text string) (*model.AnalysisResult, error)
	GetAnalysis(ctx context.Context, id string) (*model.AnalysisResult, error)
}

// Config configures the HTTP server
type Config struct {
	Addr            string
	BodyLimit       string
	ShutdownTimeout time.Duration
}

// ConfigFromModel derives server settings from the app config
func ConfigFromModel(cfg *model.Config) Config {
	return Config{
		Addr:            cfg.Server.Addr,
		BodyLimit:       cfg.Server.BodyLimit,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
}

// AnalyzeRequest is the body of POST /api/v1/analyze
type AnalyzeRequest struct {
	Claim string `json:"claim"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string          `json:"error"`
	Kind  model.ErrorKind `json:"kind"`
}

// Server is the HTTP boundary
type Server struct {
	echo     *echo.Echo
	analyzer Analyzer
	config   Config
	logger   *slog.Logger
	ready    *readiness
}

// Option configures optional server behavior
type Option func(*Server)

// WithReadiness serves GET /readyz from check. A result is reused for
// cacheFor so health checkers do not call upstream providers on every request.
func WithReadiness(check func(ctx context.Context) bool, cacheFor time.Duration) Option {
	return func(s *Server) {
		s.ready = &readiness{check: check, cacheFor: cacheFor, now: time.Now}
	}
}

// readiness memoizes an upstream availability check
type readiness struct {
	mu        sync.Mutex
	check     func(ctx context.Context) bool
	cacheFor  time.Duration
	now       func() time.Time
	checkedAt time.Time
	ok        bool
}

func (r *readiness) Ready(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if !r.checkedAt.IsZero() && now.Sub(r.checkedAt) < r.cacheFor {
		return r.ok
	}
	r.ok = r.check(ctx)
	r.checkedAt = now
	return r.ok
}

// New builds the server and registers routes
func New(analyzer Analyzer, config Config, logger *slog.Logger, opts ...Option) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.BodyLimit == "" {
		config.BodyLimit = "16K"
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, analyzer: analyzer, config: config, logger: logger}
	for _, opt := range opts {
		opt(s)
	}

	e.Use(middleware.Recover())
	e.Use(s.requestLogger())
	e.Use(recordRequests)
	e.Use(middleware.BodyLimit(config.BodyLimit))

	api := e.Group("/api/v1")
	api.POST("/analyze", s.handleAnalyze)
	api.GET("/analyses/:id", s.handleGetAnalysis)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.ready != nil {
		e.GET("/readyz", s.handleReady)
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.config.Addr)
		if err := s.echo.Start(s.config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

func (s *Server) handleAnalyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, model.NewError(model.KindValidation, "invalid request body", err))
	}

	claim, err := validate.Claim(req.Claim)
	if err != nil {
		return s.fail(c, err)
	}

	result, err := s.analyzer.AnalyzeClaim(c.Request().Context(), claim)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetAnalysis(c echo.Context) error {
	result, err := s.analyzer.GetAnalysis(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleReady(c echo.Context) error {
	if !s.ready.Ready(c.Request().Context()) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// fail logs err and writes the sanitized error response
func (s *Server) fail(c echo.Context, err error) error {
	kind := model.KindOf(err)
	status := model.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "kind", kind, "error", err)
	} else {
		s.logger.Info("request rejected", "path", c.Path(), "kind", kind, "error", err)
	}
	return c.JSON(status, ErrorResponse{Error: model.UserMessage(err), Kind: kind})
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds())
			return nil
		},
	})
}

// recordRequests counts requests by route pattern and status code
func recordRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		code := c.Response().Status
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
		return err
	}
}
