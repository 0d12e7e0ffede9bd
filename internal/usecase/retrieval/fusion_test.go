package retrieval

import (
	"reflect"
	"testing"

	"github.com/zoomfind/prodex/internal/domain/catalog"
	domcat "github.com/zoomfind/prodex/internal/domain/category"
	"github.com/zoomfind/prodex/internal/domain/query"
	"github.com/zoomfind/prodex/internal/index"
)

func testFusionConfig() FusionConfig {
	return FusionConfig{CategoryBoost: 0.20, TermBoost: 0.10, TermBoostCap: 3}
}

func fusionCatalog() *catalog.Set {
	return catalog.NewSet([]catalog.Product{
		catalog.New("p1", "Acer Nitro Gaming Laptop", "2500", "Gaming Laptops",
			map[string]string{"ram": "16GB DDR5"}, nil),
		catalog.New("p2", "Dell UltraSharp Monitor", "800", "Monitors", nil, nil),
		catalog.New("p3", "Lenovo Legion Laptop", "3000", "Gaming Laptops", nil, nil),
	})
}

func TestFuse_NoPredictionNoTermsKeepsSimilarityOrder(t *testing.T) {
	q := query.New("abc", "abc", []string{"abc"})
	candidates := []index.Candidate{
		{ID: "p2", Similarity: 0.8},
		{ID: "p1", Similarity: 0.9},
		{ID: "p3", Similarity: 0.7},
	}

	hits := fuse(candidates, fusionCatalog(), &q, nil, testFusionConfig())

	wantIDs := []string{"p1", "p2", "p3"}
	for i, want := range wantIDs {
		p := hits[i].Product()
		if got := p.ID(); got != want {
			t.Errorf("hits[%d] = %s, want %s", i, got, want)
		}
		if hits[i].FinalScore() != hits[i].Similarity() {
			t.Errorf("hits[%d] final = %v, want raw similarity %v",
				i, hits[i].FinalScore(), hits[i].Similarity())
		}
	}
}

func TestFuse_CategoryBoostTieBrokenByRawSimilarity(t *testing.T) {
	q := query.New("abc", "abc", nil)
	// Boosted p2 lands exactly on p1's final score; p1 wins on raw similarity.
	candidates := []index.Candidate{
		{ID: "p1", Similarity: 0.75},
		{ID: "p2", Similarity: 0.5},
		{ID: "p3", Similarity: 0.625},
	}
	prediction := &domcat.Prediction{CategoryName: "Computers", SubcategoryName: "Monitors"}
	cfg := FusionConfig{CategoryBoost: 0.25, TermBoost: 0.10, TermBoostCap: 3}

	hits := fuse(candidates, fusionCatalog(), &q, prediction, cfg)

	// p2: 0.5+0.25 = 0.75, tying p1's unboosted 0.75. p3 stays at 0.625.
	wantIDs := []string{"p1", "p2", "p3"}
	if got := ids(hits); !reflect.DeepEqual(got, wantIDs) {
		t.Errorf("order = %v, want %v", got, wantIDs)
	}
}

func TestFuse_EqualFinalAndSimilarityTieBrokenByID(t *testing.T) {
	q := query.New("abc", "abc", nil)
	candidates := []index.Candidate{
		{ID: "p3", Similarity: 0.5},
		{ID: "p1", Similarity: 0.5},
	}
	prediction := &domcat.Prediction{SubcategoryName: "Gaming Laptops"}

	hits := fuse(candidates, fusionCatalog(), &q, prediction, testFusionConfig())

	p0, p1 := hits[0].Product(), hits[1].Product()
	if p0.ID() != "p1" || p1.ID() != "p3" {
		t.Errorf("order = %v, want [p1 p3]", ids(hits))
	}
}

func TestFuse_TermBoostCapAndMatchedTerms(t *testing.T) {
	// Four terms match p1 (title + specs); only three count toward the boost.
	q := query.New("raw", "raw", []string{"acer", "nitro", "laptop", "ddr5"})
	candidates := []index.Candidate{{ID: "p1", Similarity: 0.5}}
	cfg := testFusionConfig()

	hits := fuse(candidates, fusionCatalog(), &q, nil, cfg)

	wantTerms := []string{"acer", "nitro", "laptop", "ddr5"}
	if !reflect.DeepEqual(hits[0].MatchedTerms(), wantTerms) {
		t.Errorf("matched terms = %v, want %v", hits[0].MatchedTerms(), wantTerms)
	}
	wantBoost := cfg.TermBoost * float64(cfg.TermBoostCap)
	if hits[0].Boost() != wantBoost {
		t.Errorf("boost = %v, want %v", hits[0].Boost(), wantBoost)
	}
}

func TestFuse_FinalScoreClippedToOne(t *testing.T) {
	q := query.New("raw", "raw", []string{"laptop"})
	candidates := []index.Candidate{{ID: "p1", Similarity: 0.95}}
	prediction := &domcat.Prediction{SubcategoryName: "Gaming Laptops"}

	hits := fuse(candidates, fusionCatalog(), &q, prediction, testFusionConfig())

	if got := hits[0].FinalScore(); got != 1.0 {
		t.Errorf("final score = %v, want clipped 1.0", got)
	}
	if got := hits[0].Similarity(); got != 0.95 {
		t.Errorf("raw similarity = %v, must stay unclipped", got)
	}
}

func TestFuse_SkipsDanglingCandidateIDs(t *testing.T) {
	q := query.New("abc", "abc", nil)
	candidates := []index.Candidate{
		{ID: "ghost", Similarity: 0.9},
		{ID: "p1", Similarity: 0.5},
	}

	hits := fuse(candidates, fusionCatalog(), &q, nil, testFusionConfig())

	if len(hits) != 1 {
		t.Fatalf("hits = %v, want only p1", ids(hits))
	}
	if p0 := hits[0].Product(); p0.ID() != "p1" {
		t.Errorf("hits = %v, want only p1", ids(hits))
	}
}
