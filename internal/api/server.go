package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	apimiddleware "github.com/tsanders-rh/costctl/internal/api/middleware"
	"github.com/tsanders-rh/costctl/internal/auth"
	"github.com/tsanders-rh/costctl/internal/cache"
	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/internal/store"
)

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	EnableAuth      bool
	JWTSecret       string
	JWTTokenTTL     time.Duration
	MaxBodySize     string
	RateLimitRPS    float64
	RateLimitBurst  int
	RequestTimeout  time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            8080,
		ShutdownTimeout: 10 * time.Second,
		EnableAuth:      false,
		JWTSecret:       "change-me-in-production-min-32-chars",
		JWTTokenTTL:     time.Hour,
		MaxBodySize:     "1M",
		RateLimitRPS:    10,
		RateLimitBurst:  30,
		RequestTimeout:  60 * time.Second,
	}
}

// Deps bundles the server's collaborators. Store and Runner are required;
// Cache is optional.
type Deps struct {
	Store      *store.Store
	Cache      cache.Cache
	Registry   *fleet.Registry
	Runner     CycleRunner
	Assemblers AssemblerFactory
	Appliers   ApplierFactory
}

// Server represents the HTTP API server
type Server struct {
	echo   *echo.Echo
	config *ServerConfig
	deps   Deps
	auth   *auth.Auth
}

// NewServer creates a new API server
func NewServer(config *ServerConfig, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Disable Echo's default logger, we'll use our own
	e.Logger.SetOutput(io.Discard)

	e.Validator = NewValidator()

	s := &Server{
		echo:   e,
		config: config,
		deps:   deps,
		auth:   auth.NewAuth(config.JWTSecret, config.JWTTokenTTL),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware stack
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(apimiddleware.Logger())
	s.echo.Use(apimiddleware.RateLimit(rate.Limit(s.config.RateLimitRPS), s.config.RateLimitBurst))
	s.echo.Use(middleware.BodyLimit(s.config.MaxBodySize))
	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: s.config.RequestTimeout,
	}))
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	// Health checks (no auth required)
	s.echo.GET("/healthz", s.healthCheck)
	s.echo.GET("/readyz", s.readyCheck)

	v1 := s.echo.Group("/api/v1")

	readAuth := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	operateAuth := readAuth
	if s.config.EnableAuth {
		readAuth = auth.RequireAuth(s.auth)
		operateAuth = auth.RequireScope(auth.ScopeOperate)
	}

	fleetHandler := NewFleetHandler(s.deps.Registry)
	fleetsGroup := v1.Group("/fleets", readAuth)
	fleetsGroup.GET("", fleetHandler.List)
	fleetsGroup.GET("/:name", fleetHandler.Get)

	reportHandler := NewReportHandler(s.deps.Store, s.deps.Cache, s.deps.Registry, s.deps.Runner)
	reportsGroup := v1.Group("/reports", readAuth)
	reportsGroup.GET("", reportHandler.List)
	reportsGroup.GET("/latest", reportHandler.Latest)
	reportsGroup.GET("/:id", reportHandler.Get)
	reportsGroup.POST("", reportHandler.Run, operateAuth)

	diagnosticsHandler := NewDiagnosticsHandler(s.deps.Registry, s.deps.Assemblers)
	v1.GET("/diagnostics/:stage", diagnosticsHandler.Get, readAuth)

	scalingHandler := NewScalingHandler(s.deps.Registry, s.deps.Appliers)
	v1.POST("/scaling/apply", scalingHandler.Apply, readAuth, operateAuth)
}

// healthCheck returns basic health status
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// readyCheck checks if server is ready to handle requests
func (s *Server) readyCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.deps.Store.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "database unavailable",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	fmt.Printf("Starting API server on %s\n", addr)
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance for testing
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
