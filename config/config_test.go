package config

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	// Pin the variables this test asserts on; getEnv treats empty as unset.
	for _, v := range []string{
		"AIRTABLE_API_BASE", "AFF_TIMEZONE", "AFF_LOCALE", "AFF_DATA_DIR",
		"AFF_FIELD_SKU", "AFF_BUTTON_TEXT", "POSTS_ALLOWED_STATUSES", "POSTS_AUTO_INSERT_TOKENS",
	} {
		t.Setenv(v, "")
	}

	cfg := Load()

	if cfg.APIBase != "https://api.airtable.com/v0" {
		t.Errorf("APIBase = %q", cfg.APIBase)
	}
	if cfg.TimeZone != "Europe/Copenhagen" || cfg.Locale != "da-DK" {
		t.Errorf("TimeZone/Locale = %q/%q", cfg.TimeZone, cfg.Locale)
	}
	if cfg.DataDir != "src/data/blog" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.AffFields.SKU != "Product SKU" {
		t.Errorf("AffFields.SKU = %q", cfg.AffFields.SKU)
	}
	if cfg.Button.Text != "Claim now" {
		t.Errorf("Button.Text = %q", cfg.Button.Text)
	}
	if got := strings.Join(cfg.AllowedStatuses, ","); got != "Ready,Scheduled,Publish" {
		t.Errorf("AllowedStatuses = %q", got)
	}
	if !cfg.AutoInsertTokens {
		t.Error("AutoInsertTokens should default to true")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AIRTABLE_TOKEN", "tok")
	t.Setenv("AIRTABLE_BASE_ID", "base")
	t.Setenv("AIRTABLE_AFF_TABLE_ID", "tblLinks")
	t.Setenv("AFF_DEBUG", "true")
	t.Setenv("POSTS_ALLOWED_STATUSES", "Live, Published ,")
	t.Setenv("POSTS_AUTO_INSERT_TOKENS", "false")

	cfg := Load()

	if cfg.Token != "tok" || cfg.BaseID != "base" {
		t.Errorf("credentials = %q/%q", cfg.Token, cfg.BaseID)
	}
	if !cfg.Links.Configured() {
		t.Error("Links table should be configured")
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if len(cfg.AllowedStatuses) != 2 || cfg.AllowedStatuses[0] != "Live" || cfg.AllowedStatuses[1] != "Published" {
		t.Errorf("AllowedStatuses = %v", cfg.AllowedStatuses)
	}
	if cfg.AutoInsertTokens {
		t.Error("AutoInsertTokens should be false")
	}
}

func TestLoadStatusFieldCleared(t *testing.T) {
	// An explicitly empty status column selects the publish-flag/date
	// inclusion mode; only an absent variable falls back to "Status".
	t.Setenv("POSTS_FIELD_STATUS", "")
	t.Setenv("POSTS_FIELD_PUBLISHED", "Published")

	cfg := Load()

	if cfg.PostFields.Status != "" {
		t.Errorf("PostFields.Status = %q, want empty for publish mode", cfg.PostFields.Status)
	}
	if cfg.PostFields.Published != "Published" {
		t.Errorf("PostFields.Published = %q", cfg.PostFields.Published)
	}

	// t.Setenv already restores the variable on cleanup.
	os.Unsetenv("POSTS_FIELD_STATUS")
	if got := Load().PostFields.Status; got != "Status" {
		t.Errorf("PostFields.Status = %q, want default when unset", got)
	}
}

func TestRequireRemote(t *testing.T) {
	cfg := &Config{}
	err := cfg.RequireRemote(cfg.Posts, "AIRTABLE_POSTS_TABLE_ID")
	if err == nil {
		t.Fatal("expected error with empty configuration")
	}

	var missing *MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("error type = %T", err)
	}
	want := []string{"AIRTABLE_TOKEN", "AIRTABLE_BASE_ID", "AIRTABLE_POSTS_TABLE_ID"}
	if len(missing.Vars) != len(want) {
		t.Fatalf("missing vars = %v, want %v", missing.Vars, want)
	}
	for i := range want {
		if missing.Vars[i] != want[i] {
			t.Errorf("missing[%d] = %q, want %q", i, missing.Vars[i], want[i])
		}
	}

	cfg = &Config{Token: "tok", BaseID: "base", Posts: TableConfig{TableID: "tbl"}}
	if err := cfg.RequireRemote(cfg.Posts, "AIRTABLE_POSTS_TABLE_ID"); err != nil {
		t.Errorf("RequireRemote() error: %v", err)
	}
}

func TestHasRemote(t *testing.T) {
	cfg := &Config{Token: "tok", BaseID: "base", Links: TableConfig{TableID: "tbl"}}
	if !cfg.HasRemote() {
		t.Error("HasRemote() = false with full credentials")
	}
	cfg.Token = ""
	if cfg.HasRemote() {
		t.Error("HasRemote() = true without a token")
	}
}
