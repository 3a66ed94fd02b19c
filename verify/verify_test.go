package verify

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunCleanTree(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "post.md", "---\ntitle: x\n---\n\nAll resolved: https://shop.example.com\n")
	write(t, dir, "notes.txt", "[AffiliateLink_IGNORED] non-markdown files are not scanned\n")

	if err := New(false, testLogger()).Run(dir); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

func TestRunFailsOnResidualTokens(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.md", "line one\n\n[AffiliateLink_SKU1] leftover\n")
	write(t, dir, filepath.Join("nested", "b.mdx"), "{{aff:SKU2|as=card}}\n")

	err := New(false, testLogger()).Run(dir)
	if err == nil {
		t.Fatal("Run() expected failure")
	}

	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error type = %T", err)
	}
	if len(failure.Files) != 2 {
		t.Fatalf("failure files = %+v", failure.Files)
	}

	first := failure.Files[0]
	if filepath.Base(first.File) != "a.md" {
		t.Errorf("first file = %q", first.File)
	}
	if len(first.Residuals) != 1 {
		t.Fatalf("residuals = %+v", first.Residuals)
	}
	if first.Residuals[0].Token != "[AffiliateLink_SKU1]" || first.Residuals[0].Line != 3 {
		t.Errorf("residual = %+v", first.Residuals[0])
	}

	msg := err.Error()
	for _, want := range []string{"a.md", "line 3", "[AffiliateLink_SKU1]", "{{aff:SKU2|as=card}}"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message missing %q:\n%s", want, msg)
		}
	}
}

func TestRunReportsRelativePaths(t *testing.T) {
	// t.TempDir returns an absolute path; the listing should still name
	// files relative to the working directory.
	dir := t.TempDir()
	write(t, dir, "post.md", "[AffiliateLink_SKU1]\n")

	err := New(false, testLogger()).Run(dir)
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("Run() error = %v", err)
	}

	got := failure.Files[0].File
	if filepath.IsAbs(got) {
		t.Errorf("reported path %q is absolute", got)
	}
	if filepath.Base(got) != "post.md" {
		t.Errorf("reported path = %q", got)
	}
}

func TestRunScansFrontMatterToo(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "post.md", "---\ntitle: \"[AffiliateLink_SKU1]\"\n---\n\nclean body\n")

	if err := New(false, testLogger()).Run(dir); err == nil {
		t.Fatal("token in front matter must fail verification")
	}
}

func TestStrictModeFlagsEmptyHref(t *testing.T) {
	dir := t.TempDir()
	content := "---\ntitle: x\n---\n\n" +
		`<a class="cta" href="" target="_blank" rel="nofollow" data-sku="SKU1" data-source="klartilalt" data-medium="affiliate" data-campaign="" data-country="" data-post="p">Buy</a>` + "\n"
	write(t, dir, "post.md", content)

	// Default mode ignores empty hrefs.
	if err := New(false, testLogger()).Run(dir); err != nil {
		t.Fatalf("default Run() error: %v", err)
	}

	err := New(true, testLogger()).Run(dir)
	if err == nil {
		t.Fatal("strict Run() expected failure")
	}
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error type = %T", err)
	}
	if len(failure.Files) != 1 || len(failure.Files[0].EmptyHref) != 1 {
		t.Fatalf("failure = %+v", failure)
	}
	got := failure.Files[0].EmptyHref[0]
	if got.SKU != "SKU1" || got.Text != "Buy" {
		t.Errorf("empty href finding = %+v", got)
	}
}

func TestStrictModeCardCTA(t *testing.T) {
	dir := t.TempDir()
	content := "---\ntitle: x\n---\n\n" +
		`<div class="aff-card aff-card--noimg" data-sku="SKU9"><div class="aff-card-body">` +
		`<a class="cta" href="" target="_blank" rel="nofollow" data-source="s" data-medium="m" data-campaign="" data-country="" data-post="p">Se pris</a>` +
		`</div></div>` + "\n"
	write(t, dir, "post.md", content)

	err := New(true, testLogger()).Run(dir)
	if err == nil {
		t.Fatal("strict Run() expected failure")
	}
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error type = %T", err)
	}
	got := failure.Files[0].EmptyHref[0]
	if got.SKU != "SKU9" {
		t.Errorf("card cta sku = %q, want the container's data-sku", got.SKU)
	}
}

func TestStrictModeIgnoresHealthyAnchors(t *testing.T) {
	dir := t.TempDir()
	content := "---\ntitle: x\n---\n\n" +
		`<a class="cta" href="https://shop.example.com" data-source="s" data-medium="m" data-campaign="" data-country="" data-post="p">Buy</a>` + "\n"
	write(t, dir, "post.md", content)

	if err := New(true, testLogger()).Run(dir); err != nil {
		t.Fatalf("strict Run() error: %v", err)
	}
}
