// Package config loads the pipeline configuration from the environment into
// an explicit struct that is passed to every component. Nothing outside this
// package reads process env directly.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const defaultAPIBase = "https://api.airtable.com/v0"

// TableConfig identifies one Airtable table plus an optional view.
type TableConfig struct {
	TableID string
	ViewID  string
}

// Configured reports whether the table is usable at all.
func (t TableConfig) Configured() bool { return t.TableID != "" }

// AffiliateFields maps logical affiliate-link columns to spreadsheet headers.
type AffiliateFields struct {
	SKU           string
	URLBase       string
	UTMSource     string
	UTMMedium     string
	UTMCampaign   string
	SubidTemplate string
	Country       string
	FullURL       string
}

// ProductFields maps logical product columns to spreadsheet headers.
type ProductFields struct {
	SKU   string
	Name  string
	Image string
}

// PostFields maps logical post columns to spreadsheet headers.
type PostFields struct {
	Status    string
	Title     string
	Slug      string
	Type      string
	Language  string
	Country   string
	Tags      string
	Excerpt   string
	BodyMD    string
	PublishAt string
	Published string
	SKUs      string
}

// ButtonDefaults style the rendered button/CTA anchors.
type ButtonDefaults struct {
	Class  string
	Target string
	Rel    string
	Text   string
}

// CardDefaults style the rendered product cards.
type CardDefaults struct {
	Class      string
	ImgClass   string
	BodyClass  string
	TitleClass string
	CTAClass   string
	ImgWidth   string
}

// Config is the whole configuration surface, constructed once at startup.
type Config struct {
	// Remote table API.
	APIBase  string
	Token    string
	BaseID   string
	Posts    TableConfig
	Links    TableConfig
	Products TableConfig
	TimeZone string
	Locale   string

	// Content tree and manifests.
	DataDir           string // root scanned by inject/verify, e.g. src/data/blog
	SyncRoot          string // root written by sync, blog lives under <SyncRoot>/blog
	InjectManifestOut string
	SyncManifestOut   string
	ManifestBucket    string // optional GCS bucket for manifest snapshots
	CredentialsJSON   string

	// Link defaults.
	DefaultSource   string
	DefaultMedium   string
	DefaultCampaign string

	Button ButtonDefaults
	Card   CardDefaults

	AffFields  AffiliateFields
	ProdFields ProductFields
	PostFields PostFields

	// Materializer behavior.
	AllowedStatuses  []string
	AutoInsertTokens bool
	CardText         string

	Debug        bool
	VerifyStrict bool
	CI           bool
}

// MissingError reports required configuration that was absent.
type MissingError struct {
	Vars []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Vars, ", "))
}

// Load reads .env (when present) and the process environment into a Config.
func Load() *Config {
	// Missing .env is fine; real env vars still apply.
	_ = godotenv.Load()

	cfg := &Config{
		APIBase:  getEnv("AIRTABLE_API_BASE", defaultAPIBase),
		Token:    os.Getenv("AIRTABLE_TOKEN"),
		BaseID:   os.Getenv("AIRTABLE_BASE_ID"),
		Posts:    TableConfig{TableID: os.Getenv("AIRTABLE_POSTS_TABLE_ID"), ViewID: os.Getenv("AIRTABLE_POSTS_VIEW_ID")},
		Links:    TableConfig{TableID: os.Getenv("AIRTABLE_AFF_TABLE_ID"), ViewID: os.Getenv("AIRTABLE_AFF_VIEW_ID")},
		Products: TableConfig{TableID: os.Getenv("AIRTABLE_PROD_TABLE_ID"), ViewID: os.Getenv("AIRTABLE_PROD_VIEW_ID")},
		TimeZone: getEnv("AFF_TIMEZONE", "Europe/Copenhagen"),
		Locale:   getEnv("AFF_LOCALE", "da-DK"),

		DataDir:           getEnv("AFF_DATA_DIR", "src/data/blog"),
		SyncRoot:          getEnv("AFF_SYNC_ROOT", "src/data"),
		InjectManifestOut: getEnv("AFF_MANIFEST_OUT", "tmp/affiliate-injection-manifest.json"),
		SyncManifestOut:   getEnv("SYNC_MANIFEST_OUT", "tmp/content-sync-manifest.json"),
		ManifestBucket:    os.Getenv("MANIFEST_BUCKET"),
		CredentialsJSON:   os.Getenv("GOOGLE_CREDENTIALS_JSON"),

		DefaultSource:   getEnv("AFF_DEFAULT_SOURCE", "klartilalt"),
		DefaultMedium:   getEnv("AFF_DEFAULT_MEDIUM", "affiliate"),
		DefaultCampaign: os.Getenv("AFF_DEFAULT_CAMPAIGN"),

		Button: ButtonDefaults{
			Class:  getEnv("AFF_BUTTON_CLASS", "cta cta-orange"),
			Target: getEnv("AFF_BUTTON_TARGET", "_blank"),
			Rel:    getEnv("AFF_BUTTON_REL", "nofollow sponsored noopener"),
			Text:   getEnv("AFF_BUTTON_TEXT", "Claim now"),
		},
		Card: CardDefaults{
			Class:      getEnv("AFF_CARD_CLASS", "aff-card"),
			ImgClass:   getEnv("AFF_CARD_IMG_CLASS", "aff-card-img"),
			BodyClass:  getEnv("AFF_CARD_BODY_CLASS", "aff-card-body"),
			TitleClass: getEnv("AFF_CARD_TITLE_CLASS", "aff-card-title"),
			CTAClass:   getEnv("AFF_CARD_CTA_CLASS", "cta cta-orange"),
			ImgWidth:   os.Getenv("AFF_CARD_IMG_WIDTH"),
		},

		AffFields: AffiliateFields{
			SKU:           getEnv("AFF_FIELD_SKU", "Product SKU"),
			URLBase:       getEnv("AFF_FIELD_URL_BASE", "URL Base"),
			UTMSource:     getEnv("AFF_FIELD_UTM_SOURCE", "UTM Source"),
			UTMMedium:     getEnv("AFF_FIELD_UTM_MEDIUM", "UTM Medium"),
			UTMCampaign:   getEnv("AFF_FIELD_UTM_CAMPAIGN", "UTM Campaign"),
			SubidTemplate: getEnv("AFF_FIELD_SUBID_TEMPLATE", "Subid Template"),
			Country:       getEnv("AFF_FIELD_COUNTRY", "Country"),
			FullURL:       getEnv("AFF_FIELD_FULL_URL", "Full Affiliate URL"),
		},
		ProdFields: ProductFields{
			SKU:   getEnv("PROD_FIELD_SKU", "SKU"),
			Name:  getEnv("PROD_FIELD_NAME", "Name"),
			Image: getEnv("PROD_FIELD_IMAGE", "Image"),
		},
		PostFields: PostFields{
			// Set-but-empty means "no status column": inclusion then runs in
			// publish-flag/date mode instead of status mode.
			Status:    lookupEnv("POSTS_FIELD_STATUS", "Status"),
			Title:     getEnv("POSTS_FIELD_TITLE", "Title"),
			Slug:      getEnv("POSTS_FIELD_SLUG", "Slug"),
			Type:      getEnv("POSTS_FIELD_TYPE", "Post Type"),
			Language:  getEnv("POSTS_FIELD_LANGUAGE", "Language"),
			Country:   getEnv("POSTS_FIELD_COUNTRY", "Country"),
			Tags:      getEnv("POSTS_FIELD_TAGS", "Tags"),
			Excerpt:   getEnv("POSTS_FIELD_EXCERPT", "Excerpt"),
			BodyMD:    getEnv("POSTS_FIELD_BODY_MD", "Markdown"),
			PublishAt: getEnv("POSTS_FIELD_PUBLISH_AT", "Publish At"),
			Published: os.Getenv("POSTS_FIELD_PUBLISHED"),
			SKUs:      getEnv("POSTS_FIELD_SKUS", "SKUs"),
		},

		AllowedStatuses:  splitList(getEnv("POSTS_ALLOWED_STATUSES", "Ready,Scheduled,Publish")),
		AutoInsertTokens: boolEnv("POSTS_AUTO_INSERT_TOKENS", true),
		CardText:         getEnv("POSTS_CARD_TEXT", "Se pris"),

		Debug:        boolEnv("AFF_DEBUG", false),
		VerifyStrict: boolEnv("AFF_VERIFY_STRICT", false),
		CI:           boolEnv("CI", false),
	}

	return cfg
}

// RequireRemote validates the credentials plus the given table before any I/O.
func (c *Config) RequireRemote(table TableConfig, tableVar string) error {
	var missing []string
	if c.Token == "" {
		missing = append(missing, "AIRTABLE_TOKEN")
	}
	if c.BaseID == "" {
		missing = append(missing, "AIRTABLE_BASE_ID")
	}
	if !table.Configured() {
		missing = append(missing, tableVar)
	}
	if len(missing) > 0 {
		return &MissingError{Vars: missing}
	}
	return nil
}

// HasRemote reports whether the minimum Airtable credentials are present.
// Used by the run command to skip silently in credential-less CI builds.
func (c *Config) HasRemote() bool {
	return c.Token != "" && c.BaseID != "" && c.Links.Configured()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// lookupEnv falls back only when the variable is absent; an explicitly empty
// value is kept.
func lookupEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	return v == "true" || v == "1" || v == "yes"
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
