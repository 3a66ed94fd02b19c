// Package affiliate resolves SKUs against fetched affiliate-link and product
// rows and builds outbound tracked URLs.
package affiliate

import (
	"log/slog"
	"strings"

	"affsync/airtable"
	"affsync/config"
)

// NormalizeSKU canonicalizes a product identifier: trim, uppercase, collapse
// internal whitespace runs to single underscores. This is the join key
// between post content, affiliate rows, and product rows; apply it everywhere
// a SKU is compared or stored.
func NormalizeSKU(s string) string {
	fields := strings.Fields(strings.TrimSpace(s))
	return strings.ToUpper(strings.Join(fields, "_"))
}

// Catalog holds the fetched affiliate-link rows in fetch order.
type Catalog struct {
	rows   []airtable.Record
	fields config.AffiliateFields
}

// NewCatalog wraps fetched affiliate rows with the configured field mapping.
func NewCatalog(rows []airtable.Record, fields config.AffiliateFields) *Catalog {
	return &Catalog{rows: rows, fields: fields}
}

// Len reports the number of affiliate rows.
func (c *Catalog) Len() int { return len(c.rows) }

// SKUs lists the normalized SKUs in fetch order, for debug logging.
func (c *Catalog) SKUs() []string {
	out := make([]string, 0, len(c.rows))
	for _, r := range c.rows {
		out = append(out, NormalizeSKU(r.String(c.fields.SKU)))
	}
	return out
}

// Pick selects the affiliate row for a normalized SKU. With an empty country
// the first row in fetch order wins. With a country, an exact
// case-insensitive country match is preferred, falling back to the first
// same-SKU row. Returns ok=false when no row carries the SKU.
func (c *Catalog) Pick(sku, country string) (airtable.Record, bool) {
	var same []airtable.Record
	for _, r := range c.rows {
		if v := r.String(c.fields.SKU); v != "" && NormalizeSKU(v) == sku {
			same = append(same, r)
		}
	}
	if len(same) == 0 {
		return airtable.Record{}, false
	}
	if country == "" {
		return same[0], true
	}
	want := strings.ToUpper(strings.TrimSpace(country))
	for _, r := range same {
		if cc := r.String(c.fields.Country); cc != "" && strings.ToUpper(cc) == want {
			return r, true
		}
	}
	return same[0], true
}

// Product is the card-rendering data for one SKU.
type Product struct {
	Name  string
	Image string
}

// Products indexes product rows by normalized SKU. A nil *Products is valid
// and reports no matches (no product table configured).
type Products struct {
	bySKU map[string]Product
}

// Candidate column fallbacks; the configured names are tried first.
var (
	productSKUCandidates   = []string{"SKU", "Product SKU", "Sku", "Code", "Product Code", "ID"}
	productNameCandidates  = []string{"Name", "Title", "Product Name"}
	productImageCandidates = []string{"Image", "Images", "Photo", "Photos", "Picture", "Main Image"}
)

// IndexProducts builds the SKU → product map from raw-format rows (raw keeps
// attachment metadata intact for image URLs).
func IndexProducts(rows []airtable.Record, fields config.ProductFields, logger *slog.Logger) *Products {
	p := &Products{bySKU: make(map[string]Product, len(rows))}

	skuCols := prependUnique(fields.SKU, productSKUCandidates)
	nameCols := prependUnique(fields.Name, productNameCandidates)
	imageCols := prependUnique(fields.Image, productImageCandidates)

	for _, r := range rows {
		rawSKU := r.StringFirstOf(skuCols...)
		if rawSKU == "" {
			continue
		}
		key := NormalizeSKU(rawSKU)

		name := r.StringFirstOf(nameCols...)
		var image string
		if v, ok := r.FirstOf(imageCols...); ok {
			image = airtable.AttachmentURL(v)
		}
		p.bySKU[key] = Product{Name: name, Image: image}
	}

	logger.Debug("Product index built", "products", len(p.bySKU))
	return p
}

// Lookup returns the product for a normalized SKU.
func (p *Products) Lookup(sku string) (Product, bool) {
	if p == nil {
		return Product{}, false
	}
	prod, ok := p.bySKU[sku]
	return prod, ok
}

// Len reports the number of indexed products. Nil-safe.
func (p *Products) Len() int {
	if p == nil {
		return 0
	}
	return len(p.bySKU)
}

func prependUnique(first string, rest []string) []string {
	out := make([]string, 0, len(rest)+1)
	if first != "" {
		out = append(out, first)
	}
	for _, c := range rest {
		if !strings.EqualFold(c, first) {
			out = append(out, c)
		}
	}
	return out
}
