// Package cmd wires the affsync pipeline stages into a CLI.
package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"affsync/airtable"
	"affsync/config"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "affsync",
	Short:         "Sync blog posts from Airtable and inject affiliate links",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		cfg = config.Load()

		level := slog.LevelInfo
		if cfg.Debug {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(logger)
	},
}

// newAirtableClient builds the Airtable client the sync and inject stages
// share. The 60s timeout bounds a single page fetch, not the whole run.
func newAirtableClient() *airtable.Client {
	httpClient := &http.Client{Timeout: 60 * time.Second}
	return airtable.New(httpClient, cfg.APIBase, cfg.BaseID, cfg.Token, cfg.TimeZone, cfg.Locale, logger)
}

// Execute runs the root command. Any stage error terminates the process with
// a non-zero exit so CI treats the run as failed.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
