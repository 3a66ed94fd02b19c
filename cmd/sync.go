package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"affsync/airtable"
	"affsync/content"
	"affsync/storage"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Materialize post rows into Markdown files under the blog tree",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSync(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(ctx context.Context) error {
	if err := cfg.RequireRemote(cfg.Posts, "AIRTABLE_POSTS_TABLE_ID"); err != nil {
		return err
	}

	client := newAirtableClient()
	rows, err := client.FetchRows(ctx, cfg.Posts.TableID, cfg.Posts.ViewID, airtable.CellFormatString)
	if err != nil {
		return fmt.Errorf("fetch posts: %w", err)
	}

	m, err := content.New(cfg, logger).Materialize(rows)
	if err != nil {
		return err
	}
	return writeManifest(ctx, cfg.SyncManifestOut, m)
}

// writeManifest persists a run manifest locally or to the configured bucket.
func writeManifest(ctx context.Context, path string, m any) error {
	sink, err := storage.NewSink(ctx, cfg.ManifestBucket, []byte(cfg.CredentialsJSON), logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sink.Close(); closeErr != nil {
			logger.Warn("Failed to close manifest sink", "error", closeErr)
		}
	}()
	return sink.Write(ctx, path, m)
}
