package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hochfrequenz/ci-relay/internal/config"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "ci-relay",
		Short: "CI Run Relay - CI status ingestion and notification",
		Long: `CI Run Relay ingests CI pipeline status webhooks from heterogeneous
sources, normalizes them into canonical run records, persists them, and
fans failures out to a Cliq channel and live dashboard subscribers.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

func initLogger(cfg config.LoggingConfig) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	var h slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
