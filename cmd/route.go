package cmd

import (
	"fmt"
	"log"

	"github.com/chew-z/bypass-proxy/internal/api"
	"github.com/chew-z/bypass-proxy/internal/config"
	"github.com/chew-z/bypass-proxy/internal/router"
	"github.com/spf13/cobra"
)

var routeCmd = &cobra.Command{
	Use:   "route [model]",
	Short: "Show which backend serves a model",
	Long: `Show which backend a request for the given model would be routed to,
using the bypass lists from the current configuration.`,
	Args: cobra.ExactArgs(1),
	Run:  runRoute,
}

func init() {
	rootCmd.AddCommand(routeCmd)
	routeCmd.Flags().BoolP("embeddings", "e", false, "Route an embeddings request instead of chat")
}

func runRoute(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	embeddings, err := cmd.Flags().GetBool("embeddings")
	if err != nil {
		log.Fatalf("Failed to get embeddings flag: %v", err)
	}
	capability := api.Chat
	if embeddings {
		capability = api.Embeddings
	}

	backend := router.New(cfg.BypassTable()).Decide(capability, args[0])
	target := cfg.RemoteBaseURL
	if backend == router.Local {
		target = cfg.LocalBaseURL
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s (%s)\n", capability, args[0], backend, target)
}
