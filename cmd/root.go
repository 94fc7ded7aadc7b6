package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bypass-proxy",
	Short: "An Ollama-compatible gateway that routes models between a local server and a remote API",
	Long: `Bypass Proxy is a single-binary gateway that speaks the Ollama chat and
embeddings API. Models on the bypass list are served by the local Ollama
server; every other chat model is forwarded to an OpenRouter-style remote API.

It acts as a drop-in replacement for Ollama, listening on port 11434 by default.`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is fine; real environment variables still apply.
		_ = godotenv.Load()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
