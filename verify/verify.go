// Package verify gates publishing: it fails when unresolved affiliate tokens
// survive in the content tree after injection.
package verify

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"affsync/token"
)

// Residual is one leftover token occurrence.
type Residual struct {
	Token string `json:"token"`
	Line  int    `json:"line"`
}

// EmptyHref is an injected affiliate anchor whose href ended up empty. These
// are invisible to the token scan because the token was replaced; only strict
// mode reports them.
type EmptyHref struct {
	SKU  string `json:"sku"`
	Text string `json:"text"`
}

// FileReport collects findings for a single file.
type FileReport struct {
	File      string      `json:"file"`
	Residuals []Residual  `json:"residuals,omitempty"`
	EmptyHref []EmptyHref `json:"emptyHref,omitempty"`
}

// Failure is the terminal verification error. Callers should print it and
// exit non-zero so downstream publishing is blocked.
type Failure struct {
	Files []FileReport
}

func (e *Failure) Error() string {
	var b strings.Builder
	b.WriteString("unresolved affiliate tokens found:\n")
	for _, f := range e.Files {
		b.WriteString("  " + f.File + "\n")
		for _, r := range f.Residuals {
			fmt.Fprintf(&b, "    line %d: %s\n", r.Line, r.Token)
		}
		for _, a := range f.EmptyHref {
			fmt.Fprintf(&b, "    empty href: sku=%s text=%q\n", a.SKU, a.Text)
		}
	}
	b.WriteString("fix the SKUs in the affiliate table or update the posts, then re-run injection")
	return b.String()
}

// Verifier scans the content tree for leftover tokens. In strict mode it also
// parses rendered HTML and flags affiliate anchors with an empty href.
type Verifier struct {
	logger *slog.Logger
	strict bool
}

// New creates a verifier.
func New(strict bool, logger *slog.Logger) *Verifier {
	return &Verifier{logger: logger, strict: strict}
}

// Run checks every Markdown file under dataDir. A nil return means the tree
// is clean; a *Failure lists every finding per file and line.
func (v *Verifier) Run(dataDir string) error {
	var reports []FileReport
	wd, _ := os.Getwd()

	err := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".mdx", ".markdown":
		default:
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		report := v.checkFile(displayPath(wd, path), string(raw))
		if len(report.Residuals) > 0 || len(report.EmptyHref) > 0 {
			reports = append(reports, report)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", dataDir, err)
	}

	if len(reports) > 0 {
		return &Failure{Files: reports}
	}
	v.logger.Info("No unresolved affiliate tokens found")
	return nil
}

// displayPath rewrites a walk path relative to the working directory so the
// failure listing stays readable. The raw path is kept when that fails.
func displayPath(wd, path string) string {
	if wd == "" {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, abs)
	if err != nil {
		return path
	}
	return rel
}

// checkFile scans the raw file content, front matter included; a token that
// leaked into the header is just as much a publishing defect.
func (v *Verifier) checkFile(path, content string) FileReport {
	report := FileReport{File: path}

	for _, m := range token.Scan(content) {
		report.Residuals = append(report.Residuals, Residual{Token: m.Raw, Line: m.Line(content)})
	}

	if v.strict {
		report.EmptyHref = auditAnchors(content, v.logger)
	}
	return report
}

// auditAnchors parses the document as HTML and reports anchors that carry
// affiliate tracking attributes but no destination.
func auditAnchors(content string, logger *slog.Logger) []EmptyHref {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		logger.Warn("Skipping anchor audit", "error", err)
		return nil
	}

	var found []EmptyHref
	doc.Find(`a[data-source]`).Each(func(_ int, sel *goquery.Selection) {
		if href, _ := sel.Attr("href"); href != "" {
			return
		}
		sku, ok := sel.Attr("data-sku")
		if !ok {
			// Card CTAs keep the SKU on the enclosing container.
			sku, _ = sel.Closest("div[data-sku]").Attr("data-sku")
		}
		found = append(found, EmptyHref{SKU: sku, Text: strings.TrimSpace(sel.Text())})
	})
	return found
}
