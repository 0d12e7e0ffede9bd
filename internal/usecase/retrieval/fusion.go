package retrieval

import (
	"sort"
	"strings"

	"github.com/zoomfind/prodex/internal/domain/catalog"
	domcat "github.com/zoomfind/prodex/internal/domain/category"
	"github.com/zoomfind/prodex/internal/domain/query"
	"github.com/zoomfind/prodex/internal/domain/search"
	"github.com/zoomfind/prodex/internal/index"
)

// FusionConfig tunes the boost arithmetic applied on top of raw similarity.
type FusionConfig struct {
	CategoryBoost float64 // added once when the product matches the predicted category
	TermBoost     float64 // added per matched expanded term
	TermBoostCap  int     // at most this many terms count toward the boost
}

// fuse converts raw vector candidates into scored hits. Every candidate keeps
// its raw similarity; boosts only ever add. The result is sorted by final
// score descending, raw similarity descending, then product ID ascending, so
// equal inputs always produce the same order.
func fuse(
	candidates []index.Candidate,
	products ProductReader,
	q *query.Query,
	prediction *domcat.Prediction,
	cfg FusionConfig,
) []search.Hit {
	hits := make([]search.Hit, 0, len(candidates))
	for _, cand := range candidates {
		product, ok := products.Get(cand.ID)
		if !ok {
			// Index and catalog are built together; a dangling ID means a
			// stale index file and is not worth failing the request over.
			continue
		}

		matched := matchTerms(&product, q.Terms())

		boost := 0.0
		if prediction.MatchesLabel(product.Category()) {
			boost += cfg.CategoryBoost
		}
		counted := len(matched)
		if counted > cfg.TermBoostCap {
			counted = cfg.TermBoostCap
		}
		boost += cfg.TermBoost * float64(counted)

		final := clip01(cand.Similarity + boost)
		hits = append(hits, search.NewHit(product, cand.Similarity, boost, final, matched))
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].FinalScore() != hits[j].FinalScore() {
			return hits[i].FinalScore() > hits[j].FinalScore()
		}
		if hits[i].Similarity() != hits[j].Similarity() {
			return hits[i].Similarity() > hits[j].Similarity()
		}
		pi, pj := hits[i].Product(), hits[j].Product()
		return pi.ID() < pj.ID()
	})
	return hits
}

// matchTerms returns the expanded terms present in the product's title or
// spec values, preserving the term order of the query.
func matchTerms(product *catalog.Product, terms []string) []string {
	title := strings.ToLower(product.Title())

	var matched []string
	for _, term := range terms {
		if strings.Contains(title, term) {
			matched = append(matched, term)
			continue
		}
		for _, v := range product.Specs() {
			if strings.Contains(strings.ToLower(v), term) {
				matched = append(matched, term)
				break
			}
		}
	}
	return matched
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
