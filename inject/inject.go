// Package inject rewrites affiliate placeholder tokens in the Markdown
// content tree into tracked outbound links, buttons, and product cards.
package inject

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"affsync/affiliate"
	"affsync/config"
	"affsync/frontmatter"
	"affsync/manifest"
	"affsync/token"
)

// Injector resolves tokens against a fetched catalog and rewrites documents
// in place. Unresolvable tokens are left verbatim for the verifier to catch.
type Injector struct {
	catalog  *affiliate.Catalog
	products *affiliate.Products
	builder  *affiliate.Builder
	render   renderer
	logger   *slog.Logger
}

// New creates an injector. products may be nil when no product table is
// configured; cards then render without image and title.
func New(catalog *affiliate.Catalog, products *affiliate.Products, builder *affiliate.Builder, button config.ButtonDefaults, card config.CardDefaults, logger *slog.Logger) *Injector {
	return &Injector{
		catalog:  catalog,
		products: products,
		builder:  builder,
		render:   renderer{button: button, card: card},
		logger:   logger,
	}
}

// Run rewrites every Markdown document under dataDir and returns the run
// manifest. Files whose bodies carry no resolvable token are never rewritten,
// so their modification times survive unchanged.
func (in *Injector) Run(dataDir string) (*manifest.Injection, error) {
	m := manifest.NewInjection()

	files, err := markdownFiles(dataDir)
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}

		out, changed, err := in.rewriteDocument(string(raw), file, m)
		if err != nil {
			return nil, err
		}
		if changed {
			if err := os.WriteFile(file, []byte(out), 0o644); err != nil {
				return nil, fmt.Errorf("write %s: %w", file, err)
			}
		}
		m.Files = append(m.Files, manifest.FileEntry{File: file, Changed: changed})
	}

	updated := 0
	for _, f := range m.Files {
		if f.Changed {
			updated++
		}
	}
	in.logger.Info("Affiliate injection finished",
		"updated", updated, "files", len(files),
		"replaced", len(m.Replaced), "missing", len(m.Missing))
	return m, nil
}

// rewriteDocument splits off the front matter, rewrites tokens in the body,
// and reassembles. The raw front matter block is carried through
// byte-for-byte; only the body ever changes.
func (in *Injector) rewriteDocument(content, file string, m *manifest.Injection) (string, bool, error) {
	front, body, _ := frontmatter.Split(content)

	fields, err := frontmatter.Parse(front)
	if err != nil {
		return "", false, fmt.Errorf("parse %s: %w", file, err)
	}

	ctx := affiliate.LinkContext{
		PostSlug: documentSlug(fields, file),
		Date:     documentDate(fields).UTC().Format("2006-01-02"),
	}

	newBody, changed := in.rewriteBody(body, file, ctx, m)
	if !changed {
		return content, false, nil
	}
	return front + newBody, true, nil
}

func (in *Injector) rewriteBody(body, file string, ctx affiliate.LinkContext, m *manifest.Injection) (string, bool) {
	matches := token.Scan(body)
	if len(matches) == 0 {
		return body, false
	}

	var out strings.Builder
	out.Grow(len(body))
	last := 0
	changed := false

	for _, match := range matches {
		out.WriteString(body[last:match.Start])
		last = match.End

		replacement, ok := in.resolve(match, file, match.Line(body), ctx, m)
		if !ok {
			out.WriteString(match.Raw)
			continue
		}
		out.WriteString(replacement)
		changed = true
	}
	out.WriteString(body[last:])
	return out.String(), changed
}

// resolve maps one token occurrence to its rendered replacement. ok=false
// means the token stays verbatim.
func (in *Injector) resolve(match token.Match, file string, line int, ctx affiliate.LinkContext, m *manifest.Injection) (string, bool) {
	sku := affiliate.NormalizeSKU(match.SKU)
	opts := token.ParseOptions(match.Options)

	row, found := in.catalog.Pick(sku, opts["country"])
	if !found {
		in.logger.Warn("Token references unknown SKU", "sku", sku, "file", file, "line", line)
		m.Missing = append(m.Missing, manifest.Miss{Token: match.Raw, Reason: "SKU not found", File: file})
		return "", false
	}

	link := in.builder.Build(row, ctx, affiliate.Overrides{
		Source:   opts["source"],
		Medium:   opts["medium"],
		Campaign: opts["campaign"],
		Country:  opts["country"],
	})
	if link.URL == "" {
		m.EmptyURL = append(m.EmptyURL, manifest.EmptyURL{Token: match.Raw, File: file})
	}

	var rendered, form string
	switch {
	case match.Kind == token.Bare:
		rendered, form = link.URL, renderedURL
	case strings.EqualFold(opts["as"], "link"):
		rendered, form = in.render.markdownLink(link, opts), renderedLink
	case strings.EqualFold(opts["as"], "button"):
		rendered, form = in.render.buttonHTML(link, sku, ctx.PostSlug, opts), renderedButton
	case strings.EqualFold(opts["as"], "card"):
		product, _ := in.products.Lookup(sku)
		rendered, form = in.render.cardHTML(link, sku, ctx.PostSlug, product, opts), renderedCard
	default:
		rendered, form = link.URL, renderedURL
	}

	m.Replaced = append(m.Replaced, manifest.Replacement{Token: match.Raw, URL: link.URL, File: file, Rendered: form})
	return rendered, true
}

// markdownFiles lists .md/.mdx/.markdown files under root in lexical order.
func markdownFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".mdx", ".markdown":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

// documentSlug prefers the front matter slug, falling back to the filename
// without its Markdown extension.
func documentSlug(fields map[string]any, file string) string {
	if s, ok := fields["slug"].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// documentDate reads pubDatetime from the front matter, accepting both parsed
// timestamps and date strings. Today is the fallback.
func documentDate(fields map[string]any) time.Time {
	switch v := fields["pubDatetime"].(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				return t
			}
		}
	}
	return time.Now()
}
