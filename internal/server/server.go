package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/chew-z/bypass-proxy/internal/config"
	"github.com/chew-z/bypass-proxy/internal/local"
	"github.com/chew-z/bypass-proxy/internal/metrics"
	"github.com/chew-z/bypass-proxy/internal/remote"
	"github.com/chew-z/bypass-proxy/internal/router"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server
type Server struct {
	config  *config.Config
	router  *gin.Engine
	server  *http.Server
	route   *router.Router
	local   *local.Adapter
	remote  *remote.Adapter
	metrics *metrics.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, host string, port int) *Server {
	// Set Gin mode based on config
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup logging
	if cfg.Debug {
		// Log to file in $TMPDIR
		logPath := filepath.Join(os.TempDir(), "bypass-proxy.log")
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Printf("Warning: Could not create log file %s: %v", logPath, err)
		} else {
			// Write to both file and stdout
			gin.DefaultWriter = io.MultiWriter(logFile, os.Stdout)
			gin.DefaultErrorWriter = io.MultiWriter(logFile, os.Stderr)
			slog.SetDefault(slog.New(slog.NewTextHandler(
				io.MultiWriter(logFile, os.Stderr),
				&slog.HandlerOptions{Level: slog.LevelDebug},
			)))
			log.Printf("Logging to %s", logPath)
		}
	} else {
		// In release mode, disable console color for cleaner logs
		gin.DisableConsoleColor()
	}

	// Create router
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestIDMiddleware())

	if len(cfg.CORSOrigins) > 0 {
		engine.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	}

	// Add logger middleware in debug mode
	if cfg.Debug {
		engine.Use(gin.Logger())
	}

	// Shared upstream client. Timeout 0 leaves cancellation to the request context.
	client := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 50, // Default is 2, way too low for concurrent requests
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: cfg.UpstreamTimeout,
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    getAddr(host, port),
		Handler: engine,
	}

	server := &Server{
		config:  cfg,
		router:  engine,
		server:  srv,
		route:   router.New(cfg.BypassTable()),
		local:   local.New(cfg.LocalBaseURL, client),
		remote:  remote.New(cfg.RemoteBaseURL, cfg.APIKey, client),
		metrics: metrics.New(),
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// CreateShutdownContext creates a context for graceful shutdown
func CreateShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// setupRoutes sets up all the routes for the server
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleRoot)

	// Catalog and status endpoints
	s.router.GET("/api/tags", s.handleTags)
	s.router.GET("/api/list", s.handleTags) // Alias for /api/tags
	s.router.GET("/api/version", s.handleVersion)
	s.router.GET("/api/ps", s.handlePs)

	// Proxy endpoints
	s.router.POST("/api/chat", s.handleChat)
	s.router.POST("/v1/chat/completions", s.handleChat) // Alias for /api/chat
	s.router.POST("/api/embeddings", s.handleEmbeddings)

	// Optional health check endpoint
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))
}

// getAddr returns the address string from host and port
func getAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}

func corsConfig(origins []string) cors.Config {
	cc := cors.DefaultConfig()
	cc.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cc.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", requestIDHeader}
	cc.ExposeHeaders = []string{requestIDHeader}
	for _, o := range origins {
		if o == "*" {
			cc.AllowAllOrigins = true
			return cc
		}
	}
	cc.AllowOrigins = origins
	return cc
}

// handleHealth is a simple health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
