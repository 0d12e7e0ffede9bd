// Package catalog holds the product catalog domain types.
package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Product is an immutable catalog item created during offline indexing.
type Product struct {
	id       string
	title    string
	price    string
	category string
	brand    string
	specs    map[string]string
	vector   []float32
}

// New creates a product. The brand is derived from the specs map with a
// fallback to the first token of the title.
func New(id, title, price, category string, specs map[string]string, vector []float32) Product {
	return Product{
		id:       id,
		title:    title,
		price:    price,
		category: category,
		brand:    ExtractBrand(title, specs),
		specs:    specs,
		vector:   vector,
	}
}

// ID returns the product identifier.
func (p *Product) ID() string { return p.id }

// Title returns the product title.
func (p *Product) Title() string { return p.title }

// Price returns the product price as scraped.
func (p *Product) Price() string { return p.price }

// Category returns the product category label.
func (p *Product) Category() string { return p.category }

// Brand returns the derived brand.
func (p *Product) Brand() string { return p.brand }

// Specs returns the specification key-value map.
func (p *Product) Specs() map[string]string { return p.specs }

// Vector returns the product embedding.
func (p *Product) Vector() []float32 { return p.vector }

// brandKeys are the spec keys checked, in order, before falling back to the title.
// The scraped data mixes English and Georgian spec labels.
var brandKeys = []string{"brand", "manufacturer", "ბრენდი", "მწარმოებელი"}

// ExtractBrand derives a brand from the specs map, falling back to the first
// token of the title. The result is lowercased for quota bookkeeping.
func ExtractBrand(title string, specs map[string]string) string {
	for _, key := range brandKeys {
		if v, ok := specs[key]; ok && strings.TrimSpace(v) != "" {
			return strings.ToLower(strings.TrimSpace(v))
		}
	}
	fields := strings.Fields(title)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// EmbeddingText builds the canonical passage text embedded for a product.
// Spec keys are sorted so the text is stable across runs.
func (p *Product) EmbeddingText() string {
	keys := make([]string, 0, len(p.specs))
	for k := range p.specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s: %s", strings.TrimSpace(k), p.specs[k]))
	}

	return fmt.Sprintf("title: %s\ncategory: %s\nprice: %s\nspecs: %s",
		p.title, p.category, p.price, strings.Join(pairs, ", "))
}
