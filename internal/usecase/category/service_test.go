package category

import (
	"context"
	"errors"
	"testing"

	"github.com/zoomfind/prodex/internal/domain"
	domcat "github.com/zoomfind/prodex/internal/domain/category"
)

// --- Mocks ---

type mockEmbedder struct {
	vecs map[string][]float32
	err  error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	if vec, ok := m.vecs[text]; ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	return domain.EmbeddingResult{Embedding: []float32{0, 0}}, nil
}

type mockOracle struct {
	pred      *domcat.Prediction
	err       error
	gotQuery  string
	gotCands  []domcat.Candidate
	callCount int
}

func (m *mockOracle) Select(
	_ context.Context, queryText string, candidates []domcat.Candidate,
) (*domcat.Prediction, error) {
	m.callCount++
	m.gotQuery = queryText
	m.gotCands = candidates
	return m.pred, m.err
}

func testTaxonomy() []domcat.Category {
	return []domcat.Category{
		{
			Name: "Computers",
			Subcategories: []domcat.Subcategory{
				{Name: "Gaming Laptops", URL: "/gaming-laptops", Keywords: []string{"laptop", "gaming"}},
				{Name: "Monitors", URL: "/monitors", Keywords: []string{"monitor"}},
			},
		},
		{
			Name: "Mobile",
			Subcategories: []domcat.Subcategory{
				{Name: "Smartphones", URL: "/smartphones", Keywords: []string{"phone"}},
			},
		},
	}
}

// subcatVecs places each subcategory along its own axis so cosine scoring is
// easy to steer from the query vector.
func subcatVecs() map[string][]float32 {
	return map[string][]float32{
		"Computers Gaming Laptops laptop gaming": {1, 0, 0},
		"Computers Monitors monitor":             {0, 1, 0},
		"Mobile Smartphones phone":               {0, 0, 1},
	}
}

func buildTestRetriever(t *testing.T) (*Retriever, *mockEmbedder) {
	t.Helper()
	emb := &mockEmbedder{vecs: subcatVecs()}
	r, err := BuildRetriever(context.Background(), testTaxonomy(), emb,
		Weights{Semantic: 0.6, Keyword: 0.4, Floor: 0.2})
	if err != nil {
		t.Fatalf("BuildRetriever: %v", err)
	}
	return r, emb
}

// --- Tests ---

func TestRetrieverTopK_RanksSemanticAndKeyword(t *testing.T) {
	r, _ := buildTestRetriever(t)

	// Query vector points at gaming laptops; "laptop" is also a keyword hit.
	got := r.TopK([]float32{1, 0, 0}, "gaming laptop", 2)
	if len(got) == 0 {
		t.Fatal("expected candidates")
	}
	if got[0].SubcategoryName != "Gaming Laptops" {
		t.Errorf("top candidate = %q, want Gaming Laptops", got[0].SubcategoryName)
	}
}

func TestRetrieverTopK_FloorFiltersWeakMatches(t *testing.T) {
	r, _ := buildTestRetriever(t)

	// Orthogonal to every subcategory, no keyword hits: nothing qualifies.
	got := r.TopK([]float32{0, 0, 0}, "велосипед", 3)
	if len(got) != 0 {
		t.Errorf("expected no candidates, got %v", got)
	}
}

func TestRetrieverTopK_Bound(t *testing.T) {
	r, _ := buildTestRetriever(t)

	got := r.TopK([]float32{1, 1, 1}, "laptop monitor phone", 2)
	if len(got) > 2 {
		t.Errorf("TopK returned %d candidates, want at most 2", len(got))
	}
}

func TestPredict_Success(t *testing.T) {
	r, emb := buildTestRetriever(t)
	emb.vecs["gaming laptop"] = []float32{1, 0, 0}
	oracle := &mockOracle{pred: &domcat.Prediction{
		CategoryName: "Computers", SubcategoryName: "Gaming Laptops", SubcategoryURL: "/gaming-laptops",
	}}
	svc := New(r, emb, oracle, 3)

	pred := svc.Predict(context.Background(), "Gaming Laptop", "gaming laptop")
	if pred == nil {
		t.Fatal("expected a prediction")
	}
	if pred.SubcategoryName != "Gaming Laptops" {
		t.Errorf("prediction = %+v", pred)
	}
	if oracle.gotQuery != "Gaming Laptop" {
		t.Errorf("oracle saw query %q, want raw text", oracle.gotQuery)
	}
	if len(oracle.gotCands) == 0 {
		t.Error("oracle received no candidates")
	}
}

func TestPredict_OracleErrorMeansAbsent(t *testing.T) {
	r, emb := buildTestRetriever(t)
	emb.vecs["gaming laptop"] = []float32{1, 0, 0}
	oracle := &mockOracle{err: errors.New("deadline exceeded")}
	svc := New(r, emb, oracle, 3)

	if pred := svc.Predict(context.Background(), "gaming laptop", "gaming laptop"); pred != nil {
		t.Fatalf("expected absent prediction on oracle failure, got %+v", pred)
	}
}

func TestPredict_EmbeddingErrorMeansAbsent(t *testing.T) {
	r, _ := buildTestRetriever(t)
	oracle := &mockOracle{}
	svc := New(r, &mockEmbedder{err: errors.New("provider down")}, oracle, 3)

	if pred := svc.Predict(context.Background(), "gaming laptop", "gaming laptop"); pred != nil {
		t.Fatalf("expected absent prediction, got %+v", pred)
	}
	if oracle.callCount != 0 {
		t.Error("oracle must not be called when embedding fails")
	}
}

func TestPredict_NoCandidatesSkipsOracle(t *testing.T) {
	r, emb := buildTestRetriever(t)
	oracle := &mockOracle{}
	svc := New(r, emb, oracle, 3)

	if pred := svc.Predict(context.Background(), "велосипед", "велосипед"); pred != nil {
		t.Fatalf("expected absent prediction, got %+v", pred)
	}
	if oracle.callCount != 0 {
		t.Error("oracle must not be called without candidates")
	}
}
