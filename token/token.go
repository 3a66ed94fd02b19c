// Package token finds and parses affiliate placeholder tokens in Markdown
// bodies. Scanning is pure: it produces parsed matches and never touches the
// text, so rewriting and manifest bookkeeping stay separate, testable steps.
package token

import (
	"regexp"
	"strings"
)

// Kind distinguishes the two token grammars.
type Kind int

const (
	// Bare is [AffiliateLink_SKU]; it always renders to a raw URL.
	Bare Kind = iota
	// Parametrized is {{aff:SKU|key=value|...}}.
	Parametrized
)

func (k Kind) String() string {
	if k == Bare {
		return "bare"
	}
	return "parametrized"
}

var (
	bareRe = regexp.MustCompile(`\[AffiliateLink_([A-Za-z0-9_\-]+)\]`)
	// Whitespace around "aff:" and the SKU is tolerated; the pipe-option
	// segment is optional.
	parametrizedRe = regexp.MustCompile(`\{\{\s*aff\s*:\s*([A-Za-z0-9_\-]+)\s*(\|[^}]+)?\s*\}\}`)
)

// Match is one parsed token occurrence within a body.
type Match struct {
	Kind    Kind
	Raw     string // the full token text, byte-for-byte
	SKU     string // the referenced SKU, as written (not normalized)
	Options string // the raw pipe segment including the leading "|", or ""
	Start   int    // byte offset of the token within the body
	End     int    // byte offset just past the token
}

// Line returns the 1-based line number of the match within body.
func (m Match) Line(body string) int {
	return strings.Count(body[:m.Start], "\n") + 1
}

// Scan returns every token of either grammar in body, ordered by position.
func Scan(body string) []Match {
	var matches []Match
	for _, loc := range bareRe.FindAllStringSubmatchIndex(body, -1) {
		matches = append(matches, Match{
			Kind:  Bare,
			Raw:   body[loc[0]:loc[1]],
			SKU:   body[loc[2]:loc[3]],
			Start: loc[0],
			End:   loc[1],
		})
	}
	for _, loc := range parametrizedRe.FindAllStringSubmatchIndex(body, -1) {
		m := Match{
			Kind:  Parametrized,
			Raw:   body[loc[0]:loc[1]],
			SKU:   body[loc[2]:loc[3]],
			Start: loc[0],
			End:   loc[1],
		}
		if loc[4] >= 0 {
			m.Options = body[loc[4]:loc[5]]
		}
		matches = append(matches, m)
	}

	// The two grammars cannot overlap, so a simple merge by position holds.
	sortByStart(matches)
	return matches
}

// ParseOptions parses a pipe-delimited option segment. Each segment splits at
// its first "="; segments without one are ignored.
func ParseOptions(pipe string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(pipe, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i := strings.Index(part, "=")
		if i == -1 {
			continue
		}
		out[strings.TrimSpace(part[:i])] = strings.TrimSpace(part[i+1:])
	}
	return out
}

func sortByStart(matches []Match) {
	// Insertion sort; token counts per document are tiny.
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j-1].Start > matches[j].Start; j-- {
			matches[j-1], matches[j] = matches[j], matches[j-1]
		}
	}
}
