// Package manifest defines the append-only run records produced by the sync
// and injection stages. A manifest is observational only; the pipeline never
// reads one back within a run.
package manifest

import (
	"time"

	"github.com/google/uuid"
)

// FileEntry records that a file passed through the rewriter and whether its
// body changed.
type FileEntry struct {
	File    string `json:"file"`
	Changed bool   `json:"changed"`
}

// Replacement records one resolved token substitution.
type Replacement struct {
	Token    string `json:"token"`
	URL      string `json:"url"`
	File     string `json:"file"`
	Rendered string `json:"rendered"` // url | markdown-link | html-button | html-card
}

// Miss records a token that could not be resolved and was left verbatim.
type Miss struct {
	Token  string `json:"token"`
	Reason string `json:"reason"`
	File   string `json:"file"`
}

// EmptyURL records a token that resolved to a row with no usable URL. The
// token is still replaced (with an empty href), so the verifier will not see
// it; this list is the only trace.
type EmptyURL struct {
	Token string `json:"token"`
	File  string `json:"file"`
}

// Injection is one injection run's record.
type Injection struct {
	Run         string        `json:"run"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Files       []FileEntry   `json:"files"`
	Replaced    []Replacement `json:"replaced"`
	Missing     []Miss        `json:"missing"`
	EmptyURL    []EmptyURL    `json:"emptyUrl,omitempty"`
}

// NewInjection starts an injection manifest with a fresh run ID.
func NewInjection() *Injection {
	return &Injection{
		Run:         uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Files:       []FileEntry{},
		Replaced:    []Replacement{},
		Missing:     []Miss{},
	}
}

// Wrote records one materialized document.
type Wrote struct {
	File string `json:"file"`
	Slug string `json:"slug"`
}

// Skipped records one post row that failed the inclusion filter.
type Skipped struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Sync is one content-sync run's record.
type Sync struct {
	Run         string    `json:"run"`
	GeneratedAt time.Time `json:"generatedAt"`
	Wrote       []Wrote   `json:"wrote"`
	Skipped     []Skipped `json:"skipped"`
}

// NewSync starts a sync manifest with a fresh run ID.
func NewSync() *Sync {
	return &Sync{
		Run:         uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Wrote:       []Wrote{},
		Skipped:     []Skipped{},
	}
}
