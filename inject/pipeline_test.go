package inject

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"affsync/airtable"
	"affsync/config"
	"affsync/content"
	"affsync/verify"
)

// TestMaterializeThenInject runs the sync and inject stages back to back: the
// card tokens the materializer appends must resolve on the following
// injection pass, and the verifier must then pass the tree.
func TestMaterializeThenInject(t *testing.T) {
	root := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{
		SyncRoot: root,
		PostFields: config.PostFields{
			Status:    "Status",
			Title:     "Title",
			Slug:      "Slug",
			Type:      "Post Type",
			Country:   "Country",
			Tags:      "Tags",
			Excerpt:   "Excerpt",
			BodyMD:    "Markdown",
			PublishAt: "Publish At",
			SKUs:      "SKUs",
		},
		AllowedStatuses:  []string{"Ready"},
		AutoInsertTokens: true,
		CardText:         "Se pris",
	}

	mz := content.New(cfg, logger)
	syncManifest, err := mz.Materialize([]airtable.Record{
		{ID: "rec1", Fields: map[string]any{
			"Status":     "Ready",
			"Title":      "Best Widgets",
			"Post Type":  "Roundup",
			"Country":    "DK",
			"Markdown":   "Intro.",
			"SKUs":       "SKU1",
			"Publish At": time.Now().UTC().Add(-time.Hour).Format("2006-01-02T15:04:05Z"),
		}},
	})
	if err != nil {
		t.Fatalf("Materialize() error: %v", err)
	}
	if len(syncManifest.Wrote) != 1 {
		t.Fatalf("wrote = %+v", syncManifest.Wrote)
	}

	blogRoot := filepath.Join(root, "blog")
	in := testInjector(t, []airtable.Record{
		affRow(map[string]any{
			"Product SKU": "SKU1",
			"Country":     "DK",
			"URL Base":    "https://shop.example.com/p/1",
		}),
	}, nil)

	injectManifest, err := in.Run(blogRoot)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(injectManifest.Missing) != 0 {
		t.Fatalf("auto-inserted token did not resolve: %+v", injectManifest.Missing)
	}
	if len(injectManifest.Replaced) != 1 || injectManifest.Replaced[0].Rendered != "html-card" {
		t.Fatalf("replaced = %+v", injectManifest.Replaced)
	}

	raw, err := os.ReadFile(syncManifest.Wrote[0].File)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		t.Fatal(err)
	}
	cta := doc.Find("div.aff-card a.cta")
	if cta.Length() != 1 {
		t.Fatalf("card cta missing in %q", raw)
	}
	if country, _ := cta.Attr("data-country"); country != "DK" {
		t.Errorf("data-country = %q", country)
	}

	if err := verify.New(true, logger).Run(blogRoot); err != nil {
		t.Errorf("verifier should pass the injected tree: %v", err)
	}
}
