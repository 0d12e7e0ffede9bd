package retrieval

import (
	"strings"

	"github.com/zoomfind/prodex/internal/domain/search"
)

// DiversityConfig caps how many results a single category or brand may claim
// before lower-scored products from other groups get a slot.
type DiversityConfig struct {
	MaxResults     int
	MaxPerCategory int
	MaxPerBrand    int
}

// diversify selects up to MaxResults hits in two passes: a quota pass that
// walks hits in score order and skips any that would exceed a per-category or
// per-brand cap, then a backfill pass that refills from the skipped hits, still
// in score order, until MaxResults is reached. Relative score order is never
// disturbed within either pass, and the function is idempotent over its own
// output.
func diversify(hits []search.Hit, cfg DiversityConfig) []search.Hit {
	if cfg.MaxResults <= 0 || len(hits) == 0 {
		return nil
	}

	perCategory := make(map[string]int)
	perBrand := make(map[string]int)

	selected := make([]search.Hit, 0, cfg.MaxResults)
	var skipped []search.Hit

	for i := range hits {
		if len(selected) == cfg.MaxResults {
			break
		}
		p := hits[i].Product()
		category := strings.ToLower(p.Category())
		brand := p.Brand()

		if perCategory[category] >= cfg.MaxPerCategory || perBrand[brand] >= cfg.MaxPerBrand {
			skipped = append(skipped, hits[i])
			continue
		}
		perCategory[category]++
		perBrand[brand]++
		selected = append(selected, hits[i])
	}

	for i := range skipped {
		if len(selected) == cfg.MaxResults {
			break
		}
		selected = append(selected, skipped[i])
	}
	return selected
}
