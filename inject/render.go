package inject

import (
	"html"
	"strings"

	"affsync/affiliate"
	"affsync/config"
)

// Rendered-form tags recorded in the manifest.
const (
	renderedURL      = "url"
	renderedLink     = "markdown-link"
	renderedButton   = "html-button"
	renderedCard     = "html-card"
	noImageModifier  = "aff-card--noimg"
	fallbackLinkText = "Get it here"
)

// renderer turns a resolved link into the requested output shape. All
// attribute values are HTML-escaped; output is a single line so Markdown
// render pipelines treat it as inline HTML.
type renderer struct {
	button config.ButtonDefaults
	card   config.CardDefaults
}

func (r renderer) markdownLink(link affiliate.Link, opts map[string]string) string {
	text := opts["text"]
	if text == "" {
		text = fallbackLinkText
	}
	return "[" + text + "](" + link.URL + ")"
}

func (r renderer) buttonHTML(link affiliate.Link, sku, slug string, opts map[string]string) string {
	text := pick(opts["text"], r.button.Text)
	cls := pick(opts["class"], r.button.Class)
	target := pick(opts["target"], r.button.Target)
	rel := pick(opts["rel"], r.button.Rel)

	var b strings.Builder
	b.WriteString(`<a class="` + html.EscapeString(cls) + `" href="` + html.EscapeString(link.URL) + `"`)
	b.WriteString(` target="` + html.EscapeString(target) + `" rel="` + html.EscapeString(rel) + `"`)
	b.WriteString(` data-sku="` + html.EscapeString(sku) + `"`)
	writeUTMAttrs(&b, link, slug)
	b.WriteString(`>` + html.EscapeString(text) + `</a>`)
	return b.String()
}

func (r renderer) cardHTML(link affiliate.Link, sku, slug string, product affiliate.Product, opts map[string]string) string {
	// A user-supplied title wins even when empty; the SKU is never shown as
	// a fallback title.
	title := product.Name
	if v, ok := opts["title"]; ok {
		title = v
	}
	title = strings.TrimSpace(title)
	showTitle := !strings.EqualFold(opts["notitle"], "true") && title != ""

	imgURL := strings.TrimSpace(pick(opts["image"], product.Image))
	cardCls := pick(opts["cardClass"], r.card.Class)
	imgCls := pick(opts["imgClass"], r.card.ImgClass)
	bodyCls := pick(opts["bodyClass"], r.card.BodyClass)
	titleCls := pick(opts["titleClass"], r.card.TitleClass)
	ctaCls := pick(opts["ctaClass"], r.card.CTAClass)
	target := pick(opts["target"], r.button.Target)
	rel := pick(opts["rel"], r.button.Rel)
	text := pick(opts["text"], r.button.Text)
	imgWidth := strings.TrimSpace(pick(opts["imgWidth"], r.card.ImgWidth))

	containerCls := cardCls
	if imgURL == "" {
		containerCls = cardCls + " " + noImageModifier
	}

	var b strings.Builder
	b.WriteString(`<div class="` + html.EscapeString(containerCls) + `" data-sku="` + html.EscapeString(sku) + `">`)
	if imgURL != "" {
		alt := title
		if alt == "" {
			alt = sku
		}
		b.WriteString(`<img class="` + html.EscapeString(imgCls) + `" src="` + html.EscapeString(imgURL) + `" alt="` + html.EscapeString(alt) + `"`)
		if imgWidth != "" {
			b.WriteString(` style="width:` + html.EscapeString(imgWidth) + `px;height:auto"`)
		}
		b.WriteString(`>`)
	}
	b.WriteString(`<div class="` + html.EscapeString(bodyCls) + `">`)
	if showTitle {
		b.WriteString(`<div class="` + html.EscapeString(titleCls) + `">` + html.EscapeString(title) + `</div>`)
	}
	b.WriteString(`<a class="` + html.EscapeString(ctaCls) + `" href="` + html.EscapeString(link.URL) + `"`)
	b.WriteString(` target="` + html.EscapeString(target) + `" rel="` + html.EscapeString(rel) + `"`)
	writeUTMAttrs(&b, link, slug)
	b.WriteString(`>` + html.EscapeString(text) + `</a>`)
	b.WriteString(`</div></div>`)
	return b.String()
}

func writeUTMAttrs(b *strings.Builder, link affiliate.Link, slug string) {
	b.WriteString(` data-source="` + html.EscapeString(link.UTM.Source) + `"`)
	b.WriteString(` data-medium="` + html.EscapeString(link.UTM.Medium) + `"`)
	b.WriteString(` data-campaign="` + html.EscapeString(link.UTM.Campaign) + `"`)
	b.WriteString(` data-country="` + html.EscapeString(link.UTM.Country) + `"`)
	b.WriteString(` data-post="` + html.EscapeString(slug) + `"`)
}

func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
