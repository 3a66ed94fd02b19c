package affiliate

import (
	"net/url"
	"strings"

	"affsync/airtable"
	"affsync/config"
)

// LinkContext is the per-document context every token in a document shares.
type LinkContext struct {
	PostSlug string
	Date     string // ISO date (YYYY-MM-DD) of the document's publish time
}

// Overrides are per-token option values that take precedence over row fields.
type Overrides struct {
	Source   string
	Medium   string
	Campaign string
	Country  string
}

// ResolvedUTM is the effective tracking parameter set used for a link.
type ResolvedUTM struct {
	Source   string
	Medium   string
	Campaign string
	Country  string
}

// Link is a built outbound URL plus the tracking values baked into it.
// URL may be empty when the row defines neither a full-URL template nor a
// base URL. That is a soft failure: the token is still replaced.
type Link struct {
	URL string
	UTM ResolvedUTM
}

// Builder turns affiliate rows into final outbound URLs.
type Builder struct {
	fields          config.AffiliateFields
	defaultSource   string
	defaultMedium   string
	defaultCampaign string
}

// NewBuilder creates a link builder with the process-wide UTM defaults.
func NewBuilder(fields config.AffiliateFields, source, medium, campaign string) *Builder {
	return &Builder{
		fields:          fields,
		defaultSource:   source,
		defaultMedium:   medium,
		defaultCampaign: campaign,
	}
}

// Build composes the outbound URL for a row. A full-URL template wins and is
// returned verbatim after placeholder substitution; otherwise UTM and subid
// parameters are appended to the base URL in a fixed order so output is
// reproducible.
func (b *Builder) Build(row airtable.Record, ctx LinkContext, opts Overrides) Link {
	base := row.String(b.fields.URLBase)
	full := row.String(b.fields.FullURL)

	utm := ResolvedUTM{
		Source:   firstNonEmpty(strings.TrimSpace(opts.Source), row.String(b.fields.UTMSource), b.defaultSource),
		Medium:   firstNonEmpty(strings.TrimSpace(opts.Medium), row.String(b.fields.UTMMedium), b.defaultMedium),
		Campaign: firstNonEmpty(strings.TrimSpace(opts.Campaign), row.String(b.fields.UTMCampaign), b.defaultCampaign),
		Country:  firstNonEmpty(strings.TrimSpace(opts.Country), row.String(b.fields.Country)),
	}

	if full != "" {
		return Link{URL: substitute(full, ctx), UTM: utm}
	}
	if base == "" {
		return Link{UTM: utm}
	}

	subid := ""
	if tpl := row.String(b.fields.SubidTemplate); tpl != "" {
		subid = substitute(tpl, ctx)
	}

	// Fixed parameter order: source, medium, campaign, subid.
	var params []string
	appendParam := func(key, val string) {
		if val != "" {
			params = append(params, key+"="+url.QueryEscape(val))
		}
	}
	appendParam("utm_source", utm.Source)
	appendParam("utm_medium", utm.Medium)
	appendParam("utm_campaign", utm.Campaign)
	appendParam("subid", subid)

	if len(params) == 0 {
		return Link{URL: base, UTM: utm}
	}

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return Link{URL: base + sep + strings.Join(params, "&"), UTM: utm}
}

func substitute(tpl string, ctx LinkContext) string {
	tpl = strings.ReplaceAll(tpl, "{{postSlug}}", ctx.PostSlug)
	return strings.ReplaceAll(tpl, "{{date}}", ctx.Date)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
