// Package search holds the scored search result type.
package search

import "github.com/zoomfind/prodex/internal/domain/catalog"

// Hit is a single scored product. Created by score fusion, consumed by the
// diversifier, discarded after response assembly.
type Hit struct {
	product      catalog.Product
	similarity   float64
	boost        float64
	finalScore   float64
	matchedTerms []string
}

// NewHit creates a scored result. Scores must already be in [0,1].
func NewHit(product catalog.Product, similarity, boost, finalScore float64, matchedTerms []string) Hit {
	return Hit{
		product:      product,
		similarity:   similarity,
		boost:        boost,
		finalScore:   finalScore,
		matchedTerms: matchedTerms,
	}
}

// Product returns the underlying catalog product.
func (h *Hit) Product() catalog.Product { return h.product }

// Similarity returns the raw vector similarity in [0,1].
func (h *Hit) Similarity() float64 { return h.similarity }

// Boost returns the accumulated category and term boost.
func (h *Hit) Boost() float64 { return h.boost }

// FinalScore returns the fused score, clipped to [0,1].
func (h *Hit) FinalScore() float64 { return h.finalScore }

// MatchedTerms returns the expanded query terms found in the product.
func (h *Hit) MatchedTerms() []string { return h.matchedTerms }
