// Package health serves the liveness, readiness and metrics endpoints of the daemon.
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded means only optional dependencies fail
	StatusDegraded Status = "degraded"
)

// CheckResult represents the result of a health check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Response represents a health check response
type Response struct {
	Status     Status                 `json:"status"`
	Uptime     string                 `json:"uptime,omitempty"`
	Checks     map[string]CheckResult `json:"checks,omitempty"`
	ReportedAt time.Time              `json:"reported_at"`
}

// Pinger is a dependency that can be probed for readiness
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// Checker provides health check functionality
type Checker struct {
	deps      map[string]Pinger
	optional  map[string]bool
	startTime time.Time
	mu        sync.RWMutex
	ready     bool
}

// NewChecker creates a checker over the named dependencies. Nil dependencies are ignored.
func NewChecker(deps map[string]Pinger) *Checker {
	checked := make(map[string]Pinger, len(deps))
	for name, dep := range deps {
		if dep != nil {
			checked[name] = dep
		}
	}
	return &Checker{
		deps:      checked,
		optional:  map[string]bool{},
		startTime: time.Now(),
	}
}

// Optional marks dependencies whose failure degrades the service without making it unready
func (c *Checker) Optional(names ...string) *Checker {
	for _, name := range names {
		c.optional[name] = true
	}
	return c
}

// SetReady marks the service as ready to receive traffic
func (c *Checker) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

func (c *Checker) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// LivenessHandler reports that the process is running
func (c *Checker) LivenessHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, Response{
		Status:     StatusHealthy,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
		ReportedAt: time.Now(),
	})
}

// ReadinessHandler reports whether start-up finished and every dependency answers
func (c *Checker) ReadinessHandler(ctx echo.Context) error {
	if !c.IsReady() {
		return ctx.JSON(http.StatusServiceUnavailable, Response{
			Status:     StatusUnhealthy,
			ReportedAt: time.Now(),
			Checks: map[string]CheckResult{
				"startup": {Status: StatusUnhealthy, Message: "service is still starting up"},
			},
		})
	}

	checks := c.runChecks(ctx.Request().Context())
	status := c.overall(checks)

	code := http.StatusOK
	if status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, Response{
		Status:     status,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
		Checks:     checks,
		ReportedAt: time.Now(),
	})
}

func (c *Checker) overall(checks map[string]CheckResult) Status {
	status := StatusHealthy
	for name, check := range checks {
		if check.Status != StatusUnhealthy {
			continue
		}
		if !c.optional[name] {
			return StatusUnhealthy
		}
		status = StatusDegraded
	}
	return status
}

// runChecks pings every dependency concurrently
func (c *Checker) runChecks(ctx context.Context) map[string]CheckResult {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, len(c.deps))
	)
	for name, dep := range c.deps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := check(ctx, dep)
			mu.Lock()
			checks[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()
	return checks
}

func check(ctx context.Context, dep Pinger) CheckResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := dep.PingContext(ctx); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: err.Error(),
			Latency: time.Since(start).String(),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Latency: time.Since(start).String(),
	}
}

// RegisterRoutes registers /health, /ready and /metrics
func (c *Checker) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", c.LivenessHandler)
	e.GET("/ready", c.ReadinessHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Server runs the health endpoints on their own port
type Server struct {
	echo   *echo.Echo
	port   int
	logger ectologger.Logger
}

func NewServer(checker *Checker, port int, serviceName string, logger ectologger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(otelecho.Middleware(serviceName))
	checker.RegisterRoutes(e)

	return &Server{echo: e, port: port, logger: logger}
}

// Start serves in the background
func (s *Server) Start() {
	go func() {
		addr := fmt.Sprintf(":%d", s.port)
		s.logger.Infof("Health server listening on %s", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Health server stopped")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
