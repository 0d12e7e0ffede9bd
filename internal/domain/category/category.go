// Package category holds the category taxonomy and oracle prediction types.
package category

import "strings"

// Subcategory is a leaf of the category taxonomy.
type Subcategory struct {
	Name     string   `yaml:"subcategory_name" json:"subcategory_name"`
	URL      string   `yaml:"subcategory_url" json:"subcategory_url"`
	Keywords []string `yaml:"keywords" json:"keywords,omitempty"`
}

// Category groups subcategories under a top-level name.
type Category struct {
	Name          string        `yaml:"category_name" json:"category_name"`
	Subcategories []Subcategory `yaml:"subcategories" json:"subcategories"`
}

// Candidate is a flattened subcategory offered to the oracle.
type Candidate struct {
	CategoryName    string `json:"category_name"`
	SubcategoryName string `json:"subcategory_name"`
	SubcategoryURL  string `json:"subcategory_url"`
}

// Prediction is the oracle's choice for a query. Absence of a prediction is
// represented by a nil *Prediction, a valid outcome on the retrieval path.
type Prediction struct {
	CategoryName    string
	SubcategoryName string
	SubcategoryURL  string
	Confidence      float64
}

// MatchesLabel reports whether a product category label matches this
// prediction. The scraped labels carry the subcategory name.
func (p *Prediction) MatchesLabel(label string) bool {
	if p == nil {
		return false
	}
	return strings.EqualFold(label, p.SubcategoryName)
}
