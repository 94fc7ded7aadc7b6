package cmd

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chew-z/bypass-proxy/internal/config"
	"github.com/chew-z/bypass-proxy/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the proxy server",
	Long: `Start the proxy server that listens for Ollama chat and embeddings
requests and routes them to the local or remote backend.`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Add flags for serve command
	serveCmd.Flags().StringP("host", "H", "127.0.0.1", "Host to bind the server to")
	serveCmd.Flags().IntP("port", "p", 11434, "Port to listen on")
	serveCmd.Flags().BoolP("debug", "d", false, "Enable debug mode (verbose logging)")
	serveCmd.Flags().BoolP("verbose", "v", false, "Enable terminal output (default: warnings only)")
}

func runServe(cmd *cobra.Command, args []string) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags override config only when explicitly set
	if cmd.Flags().Changed("host") {
		if cfg.Host, err = cmd.Flags().GetString("host"); err != nil {
			log.Fatalf("Failed to get host flag: %v", err)
		}
	}
	if cmd.Flags().Changed("port") {
		if cfg.Port, err = cmd.Flags().GetInt("port"); err != nil {
			log.Fatalf("Failed to get port flag: %v", err)
		}
	}

	// Get debug flag (CLI flag overrides config)
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		log.Fatalf("Failed to get debug flag: %v", err)
	}
	if debug {
		cfg.Debug = true
	}

	// Get verbose flag (CLI flag overrides config)
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		log.Fatalf("Failed to get verbose flag: %v", err)
	}
	if verbose {
		cfg.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	setupLogging(cfg)

	// The local backend needs no key; only remote requests will fail without one.
	if cfg.APIKey == "" {
		slog.Warn("API key is not configured; remote requests will be rejected. Run 'bypass-proxy config set api_key YOUR_API_KEY' or set OPENROUTER_API_KEY.")
	}

	// Create and start server
	srv := server.NewServer(cfg, cfg.Host, cfg.Port)

	// Start server in a goroutine
	go func() {
		slog.Info("Starting server",
			"host", cfg.Host,
			"port", cfg.Port,
			"local", cfg.LocalBaseURL,
			"remote", cfg.RemoteBaseURL,
			"bypass_chat", cfg.Bypass.Chat,
			"bypass_embeddings", cfg.Bypass.Embeddings,
		)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")

	// Create a deadline for graceful shutdown
	ctx, cancel := server.CreateShutdownContext(30 * time.Second)
	defer cancel()

	// Gracefully shutdown the server
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	slog.Info("Server exited gracefully")
}

// setupLogging installs the default slog handler. Debug mode is handled by
// the server, which also tees logs to a file.
func setupLogging(cfg *config.Config) {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
