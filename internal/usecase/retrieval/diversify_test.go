package retrieval

import (
	"reflect"
	"testing"

	"github.com/zoomfind/prodex/internal/domain/catalog"
	"github.com/zoomfind/prodex/internal/domain/search"
)

func ids(hits []search.Hit) []string {
	out := make([]string, len(hits))
	for i := range hits {
		p := hits[i].Product()
		out[i] = p.ID()
	}
	return out
}

// scoredHit builds a hit whose brand comes from the specs map so category and
// brand quotas can be steered independently.
func scoredHit(id, category, brand string, score float64) search.Hit {
	p := catalog.New(id, "Product "+id, "100", category,
		map[string]string{"brand": brand}, nil)
	return search.NewHit(p, score, 0, score, nil)
}

func TestDiversify_CategoryQuotaAdmitsLowerScoredGroup(t *testing.T) {
	hits := []search.Hit{
		scoredHit("a1", "Laptops", "acer", 0.9),
		scoredHit("a2", "Laptops", "dell", 0.8),
		scoredHit("a3", "Laptops", "hp", 0.7),
		scoredHit("b1", "Monitors", "lg", 0.6),
	}

	got := diversify(hits, DiversityConfig{MaxResults: 3, MaxPerCategory: 2, MaxPerBrand: 2})

	want := []string{"a1", "a2", "b1"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Errorf("order = %v, want %v", ids(got), want)
	}
}

func TestDiversify_BackfillExceedsQuotaBeforeShortingResults(t *testing.T) {
	hits := []search.Hit{
		scoredHit("a1", "Laptops", "acer", 0.9),
		scoredHit("a2", "Laptops", "dell", 0.8),
		scoredHit("a3", "Laptops", "hp", 0.7),
	}

	got := diversify(hits, DiversityConfig{MaxResults: 3, MaxPerCategory: 2, MaxPerBrand: 2})

	// Nothing else qualifies, so the skipped hit backfills the last slot.
	want := []string{"a1", "a2", "a3"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Errorf("order = %v, want %v", ids(got), want)
	}
}

func TestDiversify_BrandQuota(t *testing.T) {
	hits := []search.Hit{
		scoredHit("a1", "Laptops", "acer", 0.9),
		scoredHit("a2", "Monitors", "acer", 0.8),
		scoredHit("a3", "Phones", "acer", 0.7),
		scoredHit("b1", "Tablets", "apple", 0.6),
	}

	got := diversify(hits, DiversityConfig{MaxResults: 3, MaxPerCategory: 3, MaxPerBrand: 2})

	want := []string{"a1", "a2", "b1"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Errorf("order = %v, want %v", ids(got), want)
	}
}

func TestDiversify_FewerHitsThanMaxResults(t *testing.T) {
	hits := []search.Hit{
		scoredHit("a1", "Laptops", "acer", 0.9),
		scoredHit("b1", "Monitors", "lg", 0.8),
	}

	got := diversify(hits, DiversityConfig{MaxResults: 5, MaxPerCategory: 3, MaxPerBrand: 2})

	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestDiversify_Idempotent(t *testing.T) {
	hits := []search.Hit{
		scoredHit("a1", "Laptops", "acer", 0.9),
		scoredHit("a2", "Laptops", "dell", 0.8),
		scoredHit("a3", "Laptops", "hp", 0.7),
		scoredHit("a4", "Laptops", "asus", 0.65),
		scoredHit("b1", "Monitors", "lg", 0.6),
	}
	cfg := DiversityConfig{MaxResults: 4, MaxPerCategory: 2, MaxPerBrand: 2}

	once := diversify(hits, cfg)
	twice := diversify(once, cfg)

	if !reflect.DeepEqual(ids(once), ids(twice)) {
		t.Errorf("not idempotent: first %v, second %v", ids(once), ids(twice))
	}
}

func TestDiversify_EmptyInput(t *testing.T) {
	if got := diversify(nil, DiversityConfig{MaxResults: 5, MaxPerCategory: 3, MaxPerBrand: 2}); len(got) != 0 {
		t.Errorf("expected empty result, got %v", ids(got))
	}
}
