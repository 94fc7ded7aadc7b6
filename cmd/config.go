package cmd

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chew-z/bypass-proxy/internal/config"
	"github.com/spf13/cobra"
)

const supportedKeys = `- api_key: Your remote backend API key
- remote_base_url: Remote backend base URL (default: https://openrouter.ai/api/v1)
- local_base_url: Local Ollama server URL (default: http://localhost:11435)
- host: Host to bind server to (default: 127.0.0.1)
- port: Port to listen on (default: 11434)
- upstream_timeout: Upstream request timeout, e.g. 5m (default: 0, no timeout)
- bypass.chat: Comma-separated chat models served locally
- bypass.embeddings: Comma-separated embedding models served locally`

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage configuration settings for the bypass-proxy.`,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Supported keys:\n" + supportedKeys,
	Args:  cobra.ExactArgs(2),
	Run:   runConfigSet,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value",
	Long:  "Get a configuration value. Supported keys:\n" + supportedKeys,
	Args:  cobra.ExactArgs(1),
	Run:   runConfigGet,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
}

// configKeys maps each supported key to its setter and getter.
var configKeys = map[string]struct {
	set func(cfg *config.Config, value string) error
	get func(cfg *config.Config) string
}{
	"api_key": {
		set: func(cfg *config.Config, v string) error { cfg.APIKey = v; return nil },
		get: func(cfg *config.Config) string { return cfg.APIKey },
	},
	"remote_base_url": {
		set: func(cfg *config.Config, v string) error { cfg.RemoteBaseURL = v; return nil },
		get: func(cfg *config.Config) string { return cfg.RemoteBaseURL },
	},
	"local_base_url": {
		set: func(cfg *config.Config, v string) error { cfg.LocalBaseURL = v; return nil },
		get: func(cfg *config.Config) string { return cfg.LocalBaseURL },
	},
	"host": {
		set: func(cfg *config.Config, v string) error { cfg.Host = v; return nil },
		get: func(cfg *config.Config) string { return cfg.Host },
	},
	"port": {
		set: func(cfg *config.Config, v string) error {
			port, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid port value: %s. Must be an integer", v)
			}
			cfg.Port = port
			return nil
		},
		get: func(cfg *config.Config) string {
			if cfg.Port == 0 {
				return ""
			}
			return strconv.Itoa(cfg.Port)
		},
	},
	"upstream_timeout": {
		set: func(cfg *config.Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", v)
			}
			cfg.UpstreamTimeout = d
			return nil
		},
		get: func(cfg *config.Config) string { return cfg.UpstreamTimeout.String() },
	},
	"bypass.chat": {
		set: func(cfg *config.Config, v string) error { cfg.Bypass.Chat = splitList(v); return nil },
		get: func(cfg *config.Config) string { return strings.Join(cfg.Bypass.Chat, ",") },
	},
	"bypass.embeddings": {
		set: func(cfg *config.Config, v string) error { cfg.Bypass.Embeddings = splitList(v); return nil },
		get: func(cfg *config.Config) string { return strings.Join(cfg.Bypass.Embeddings, ",") },
	},
}

func validKeyList() string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

func runConfigSet(cmd *cobra.Command, args []string) {
	key := args[0]
	value := args[1]

	// Validate key
	entry, ok := configKeys[key]
	if !ok {
		log.Fatalf("Invalid key: %s. Valid keys are: %s", key, validKeyList())
	}

	// Load existing config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Update the config value
	if err := entry.set(cfg, value); err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Save the updated config
	if err := config.Save(cfg); err != nil {
		log.Fatalf("Failed to save configuration: %v", err)
	}

	fmt.Printf("Configuration updated: %s = %s\n", key, maskIfAPIKey(key, value))
}

func runConfigGet(cmd *cobra.Command, args []string) {
	key := args[0]

	entry, ok := configKeys[key]
	if !ok {
		log.Fatalf("Invalid key: %s. Valid keys are: %s", key, validKeyList())
	}

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	value := entry.get(cfg)
	if value == "" {
		fmt.Printf("%s is not set\n", key)
	} else {
		fmt.Printf("%s = %s\n", key, maskIfAPIKey(key, value))
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func maskIfAPIKey(key, value string) string {
	if key == "api_key" && value != "" {
		return "********"
	}
	return value
}
