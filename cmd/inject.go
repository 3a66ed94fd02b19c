package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"affsync/affiliate"
	"affsync/airtable"
	"affsync/inject"
)

var injectCmd = &cobra.Command{
	Use:   "inject",
	Short: "Rewrite affiliate tokens in the content tree into tracked links",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runInject(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(injectCmd)
}

func runInject(ctx context.Context) error {
	if err := cfg.RequireRemote(cfg.Links, "AIRTABLE_AFF_TABLE_ID"); err != nil {
		return err
	}

	client := newAirtableClient()

	// Link rows in string format so linked-record SKUs arrive as text.
	linkRows, err := client.FetchRows(ctx, cfg.Links.TableID, cfg.Links.ViewID, airtable.CellFormatString)
	if err != nil {
		return fmt.Errorf("fetch affiliate links: %w", err)
	}
	catalog := affiliate.NewCatalog(linkRows, cfg.AffFields)
	if cfg.Debug {
		logger.Debug("Fetched affiliate rows", "rows", catalog.Len(), "skus", catalog.SKUs())
	}

	// Product rows in raw format so attachment metadata survives.
	var products *affiliate.Products
	if cfg.Products.Configured() {
		prodRows, err := client.FetchRows(ctx, cfg.Products.TableID, cfg.Products.ViewID, airtable.CellFormatRaw)
		if err != nil {
			return fmt.Errorf("fetch products: %w", err)
		}
		products = affiliate.IndexProducts(prodRows, cfg.ProdFields, logger)
	}

	builder := affiliate.NewBuilder(cfg.AffFields, cfg.DefaultSource, cfg.DefaultMedium, cfg.DefaultCampaign)
	injector := inject.New(catalog, products, builder, cfg.Button, cfg.Card, logger)

	m, err := injector.Run(cfg.DataDir)
	if err != nil {
		return err
	}
	return writeManifest(ctx, cfg.InjectManifestOut, m)
}
