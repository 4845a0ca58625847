// Package cmd implements the streamctl CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var (
	flagURL    string
	flagConfig string
)

// Config is the optional YAML configuration for streamctl.
type Config struct {
	URL          string `yaml:"url"`
	HistoryCount int    `yaml:"history_count"`
	// Secret enables client-side envelope verification when it matches the
	// server's signing secret.
	Secret string `yaml:"secret"`
}

var rootCmd = &cobra.Command{
	Use:   "streamctl",
	Short: "Client for the sandbox market feed",
	Long:  "streamctl follows the signed candle stream and inspects feed history.",
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "feed base URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config file")
}

// loadConfig merges defaults, the optional config file, and flags, in that
// order of precedence.
func loadConfig() (Config, error) {
	cfg := Config{
		URL:          "http://localhost:8080",
		HistoryCount: 360,
	}

	if flagConfig != "" {
		data, err := os.ReadFile(flagConfig)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if flagURL != "" {
		cfg.URL = flagURL
	}
	return cfg, nil
}
