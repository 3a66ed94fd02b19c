package airtable

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is one fetched row: an opaque field map plus the remote identifier.
// Immutable once fetched.
type Record struct {
	Fields map[string]any
	ID     string
}

// Get looks a field up by column name. Exact key first, then a relaxed pass
// that lowercases, maps non-breaking spaces to plain ones, and collapses
// whitespace runs, so "Product  SKU" and "product sku" resolve the same
// column.
func (r Record) Get(name string) (any, bool) {
	if v, ok := r.Fields[name]; ok {
		return v, true
	}
	want := relaxKey(name)
	for k, v := range r.Fields {
		if relaxKey(k) == want {
			return v, true
		}
	}
	return nil, false
}

// String returns the trimmed string form of a field, or "" when absent.
// List values join on ", " (matching Airtable's own string rendering).
func (r Record) String(name string) string {
	v, ok := r.Get(name)
	if !ok {
		return ""
	}
	return Stringify(v)
}

// FirstOf tries each candidate column in order and returns the first
// non-empty value. Lets differently-named spreadsheet columns satisfy the
// same logical field without per-deployment configuration.
func (r Record) FirstOf(names ...string) (any, bool) {
	for _, name := range names {
		v, ok := r.Get(name)
		if !ok || v == nil {
			continue
		}
		if strings.TrimSpace(Stringify(v)) != "" {
			return v, true
		}
	}
	return nil, false
}

// StringFirstOf is FirstOf with the result flattened to a trimmed string.
func (r Record) StringFirstOf(names ...string) string {
	v, ok := r.FirstOf(names...)
	if !ok {
		return ""
	}
	return Stringify(v)
}

// Stringify flattens a cell value to a trimmed string.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := Stringify(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// List resolves a field and flattens it via StringList.
func (r Record) List(name string) []string {
	v, _ := r.Get(name)
	return StringList(v)
}

// StringList flattens a cell value to a string slice: native lists pass
// through, strings split on commas.
func StringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s := Stringify(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		var out []string
		for _, p := range strings.Split(Stringify(t), ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
}

// AttachmentURL extracts the first attachment URL from a raw-format cell, or
// returns the value itself when it is already an http(s) URL string.
func AttachmentURL(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []any:
		if len(t) == 0 {
			return ""
		}
		if m, ok := t[0].(map[string]any); ok {
			if u, ok := m["url"].(string); ok {
				return u
			}
		}
		return ""
	case string:
		s := strings.TrimSpace(t)
		lower := strings.ToLower(s)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			return s
		}
		return ""
	default:
		return ""
	}
}

func relaxKey(k string) string {
	k = strings.ReplaceAll(k, " ", " ")
	k = strings.Join(strings.Fields(k), " ")
	return strings.ToLower(k)
}
