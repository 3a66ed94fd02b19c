// Package frontmatter splits, parses, and composes Markdown documents with a
// front matter block. YAML ("---") is the produced format; TOML ("+++") is
// tolerated on read and passed through untouched.
package frontmatter

import (
	"bytes"
	"fmt"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	yamlDelim = "---"
	tomlDelim = "+++"
)

// Split separates a document into its raw front matter block (delimiters
// included, trailing newline preserved) and the body. When the document has
// no front matter, front is "" and body is the whole content. The raw block
// is kept byte-for-byte so a rewrite can leave it untouched.
func Split(content string) (front, body string, ok bool) {
	for _, delim := range []string{yamlDelim, tomlDelim} {
		f, b, found := splitWith(content, delim)
		if found {
			return f, b, true
		}
	}
	return "", content, false
}

func splitWith(content, delim string) (front, body string, ok bool) {
	if !strings.HasPrefix(content, delim) {
		return "", "", false
	}
	rest := content[len(delim):]
	if !strings.HasPrefix(rest, "\n") && !strings.HasPrefix(rest, "\r\n") {
		return "", "", false
	}
	end := strings.Index(rest, "\n"+delim)
	if end == -1 {
		return "", "", false
	}
	// Close of the block: the delimiter line plus its newline, if any.
	closeStart := len(delim) + end + 1
	closeEnd := closeStart + len(delim)
	tail := content[closeEnd:]
	if strings.HasPrefix(tail, "\r\n") {
		closeEnd += 2
	} else if strings.HasPrefix(tail, "\n") {
		closeEnd++
	} else if tail != "" {
		// Delimiter must end its line.
		return "", "", false
	}
	return content[:closeEnd], content[closeEnd:], true
}

// Parse decodes the raw front matter block (as returned by Split) into a
// generic map. Returns an empty map for an empty block.
func Parse(front string) (map[string]any, error) {
	fields := make(map[string]any)
	if front == "" {
		return fields, nil
	}
	inner, delim := innerBlock(front)
	switch delim {
	case tomlDelim:
		if err := toml.Unmarshal([]byte(inner), &fields); err != nil {
			return nil, fmt.Errorf("parse toml front matter: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(inner), &fields); err != nil {
			return nil, fmt.Errorf("parse yaml front matter: %w", err)
		}
	}
	return fields, nil
}

// Compose serializes fm as a YAML front matter block followed by the body.
// fm is typically a struct with yaml tags so key order is deterministic.
func Compose(fm any, body string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(yamlDelim + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return "", fmt.Errorf("encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("close front matter encoder: %w", err)
	}
	buf.WriteString(yamlDelim + "\n\n")
	buf.WriteString(strings.TrimRight(body, "\n"))
	buf.WriteString("\n")
	return buf.String(), nil
}

func innerBlock(front string) (inner, delim string) {
	delim = yamlDelim
	if strings.HasPrefix(front, tomlDelim) {
		delim = tomlDelim
	}
	s := strings.TrimPrefix(front, delim)
	s = strings.TrimPrefix(s, "\r\n")
	s = strings.TrimPrefix(s, "\n")
	if i := strings.LastIndex(s, "\n"+delim); i >= 0 {
		s = s[:i+1]
	}
	return s, delim
}
