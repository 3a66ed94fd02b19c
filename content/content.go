// Package content materializes remote post rows into Markdown documents with
// YAML front matter under the blog tree.
package content

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"affsync/affiliate"
	"affsync/airtable"
	"affsync/config"
	"affsync/frontmatter"
	"affsync/manifest"
)

// FrontMatter is the serialized document header. Field order here is the
// order written to disk. ModDatetime stays null until an editor touches the
// file; Country and Lang are omitted entirely when empty.
type FrontMatter struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	PubDatetime string   `yaml:"pubDatetime"`
	ModDatetime *string  `yaml:"modDatetime"`
	Draft       bool     `yaml:"draft"`
	Tags        []string `yaml:"tags"`
	Slug        string   `yaml:"slug"`
	Country     string   `yaml:"country,omitempty"`
	Lang        string   `yaml:"lang,omitempty"`
}

// Materializer turns post rows into files. Existing files are always
// overwritten; files for rows that no longer pass inclusion are left behind.
type Materializer struct {
	logger           *slog.Logger
	fields           config.PostFields
	blogRoot         string
	allowedStatuses  []string
	cardText         string
	autoInsertTokens bool
	now              func() time.Time
}

// New creates a materializer writing under syncRoot/blog.
func New(cfg *config.Config, logger *slog.Logger) *Materializer {
	return &Materializer{
		logger:           logger,
		fields:           cfg.PostFields,
		blogRoot:         filepath.Join(cfg.SyncRoot, "blog"),
		allowedStatuses:  cfg.AllowedStatuses,
		cardText:         cfg.CardText,
		autoInsertTokens: cfg.AutoInsertTokens,
		now:              time.Now,
	}
}

// Materialize writes one Markdown file per included row and returns the run
// manifest.
func (mz *Materializer) Materialize(rows []airtable.Record) (*manifest.Sync, error) {
	m := manifest.NewSync()

	for _, row := range rows {
		included, reason := mz.include(row)
		if !included {
			m.Skipped = append(m.Skipped, manifest.Skipped{ID: row.ID, Reason: reason})
			continue
		}

		file, slug, err := mz.write(row)
		if err != nil {
			return nil, err
		}
		m.Wrote = append(m.Wrote, manifest.Wrote{File: file, Slug: slug})
	}

	mz.logger.Info("Content sync finished", "wrote", len(m.Wrote), "skipped", len(m.Skipped))
	return m, nil
}

// include evaluates the inclusion filter. With a status column configured the
// row's status must be in the allow-list; otherwise a publish flag (absent
// means true) and a publish timestamp not in the future decide.
func (mz *Materializer) include(row airtable.Record) (bool, string) {
	if mz.fields.Status != "" {
		status := strings.ToLower(row.String(mz.fields.Status))
		for _, allowed := range mz.allowedStatuses {
			if status == strings.ToLower(strings.TrimSpace(allowed)) {
				return true, ""
			}
		}
		return false, fmt.Sprintf("status %q not allowed", status)
	}

	if mz.fields.Published != "" {
		if v, ok := row.Get(mz.fields.Published); ok && !truthy(v) {
			return false, "publish flag false"
		}
	}
	if at, ok := mz.publishAt(row); ok && at.After(mz.now()) {
		return false, "publish date in future"
	}
	return true, ""
}

func (mz *Materializer) write(row airtable.Record) (string, string, error) {
	title := row.String(mz.fields.Title)
	slug := Slugify(row.String(mz.fields.Slug), title)

	outDir := filepath.Join(mz.blogRoot, dirForType(row.String(mz.fields.Type)))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create %s: %w", outDir, err)
	}

	fm := mz.frontMatter(row, title, slug)
	doc, err := frontmatter.Compose(fm, mz.body(row))
	if err != nil {
		return "", "", fmt.Errorf("compose %s: %w", slug, err)
	}

	file := filepath.Join(outDir, slug+".md")
	if err := os.WriteFile(file, []byte(doc), 0o644); err != nil {
		return "", "", fmt.Errorf("write %s: %w", file, err)
	}
	mz.logger.Debug("Post written", "file", file, "slug", slug)
	return file, slug, nil
}

func (mz *Materializer) frontMatter(row airtable.Record, title, slug string) FrontMatter {
	publishAt, hasDate := mz.publishAt(row)
	now := mz.now()
	if !hasDate {
		publishAt = now
	}

	tags := row.List(mz.fields.Tags)
	if tags == nil {
		// Serialize as an empty list, not null.
		tags = []string{}
	}

	return FrontMatter{
		Title:       title,
		Description: row.String(mz.fields.Excerpt),
		PubDatetime: publishAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Draft:       publishAt.After(now),
		Tags:        tags,
		Slug:        slug,
		Country:     row.String(mz.fields.Country),
		Lang:        row.String(mz.fields.Language),
	}
}

// body returns the row's Markdown, or a starter draft when the row has none,
// with card tokens appended for each linked SKU.
func (mz *Materializer) body(row airtable.Record) string {
	md := row.String(mz.fields.BodyMD)
	if md == "" {
		md = strings.Join([]string{
			"> (Auto-genereret udkast — opdater indledning).",
			"",
			"## Hvorfor stole på os?",
			"- Erfaring, test og objektiv vurdering.",
			"",
			"## Vores anbefalinger",
			"",
		}, "\n")
	}

	skus := row.List(mz.fields.SKUs)
	if !mz.autoInsertTokens || len(skus) == 0 {
		return md
	}

	country := row.String(mz.fields.Country)
	var b strings.Builder
	b.WriteString(md)
	b.WriteString("\n\n<!-- Auto: Affiliate-kort fra SKUs -->\n")
	for _, sku := range skus {
		b.WriteString("\n{{aff:" + affiliate.NormalizeSKU(sku) + "|as=card")
		if country != "" {
			b.WriteString("|country=" + country)
		}
		b.WriteString("|text=" + mz.cardText + "}}\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (mz *Materializer) publishAt(row airtable.Record) (time.Time, bool) {
	raw := row.String(mz.fields.PublishAt)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02", "2.1.2006 15:04", "2.1.2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	mz.logger.Warn("Unparseable publish date", "id", row.ID, "value", raw)
	return time.Time{}, false
}

// slugTransliterations maps letters outside a-z to ASCII before the hyphen
// collapse, so Danish titles keep their letters instead of losing them.
var slugTransliterations = strings.NewReplacer(
	"æ", "ae",
	"ø", "o",
	"å", "a",
	"ä", "a",
	"ö", "o",
	"ü", "u",
	"é", "e",
	"è", "e",
	"ß", "ss",
)

// Slugify picks the explicit slug when present, else derives one from the
// title. Either way the result is lowercased and transliterated, with
// non-alphanumeric runs collapsed to single hyphens and edge hyphens trimmed.
func Slugify(explicit, title string) string {
	s := strings.TrimSpace(explicit)
	if s == "" {
		s = strings.TrimSpace(title)
	}
	s = slugTransliterations.Replace(strings.ToLower(s))

	var b strings.Builder
	pending := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
		default:
			pending = true
		}
	}
	return b.String()
}

// dirForType routes posts into a subfolder by their type prefix; anything
// unrecognized lands in the blog root.
func dirForType(postType string) string {
	t := strings.ToLower(strings.TrimSpace(postType))
	switch {
	case strings.HasPrefix(t, "roundup"):
		return "roundups"
	case strings.HasPrefix(t, "review"):
		return "reviews"
	case strings.HasPrefix(t, "guide"):
		return "guides"
	default:
		return ""
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "checked" || s == "yes" || s == "1"
	case float64:
		return t != 0
	default:
		return v != nil
	}
}
