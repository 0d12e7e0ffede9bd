// Package category narrows the taxonomy to a few candidate subcategories and
// asks the LLM oracle to pick one. Any failure on this path degrades to an
// absent prediction; it never aborts a retrieval request.
package category

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/zoomfind/prodex/internal/domain"
	domcat "github.com/zoomfind/prodex/internal/domain/category"
)

// Weights tune the hybrid candidate scoring.
type Weights struct {
	Semantic float64
	Keyword  float64
	Floor    float64 // minimum hybrid score for a candidate to qualify
}

// Retriever ranks subcategories by a blend of semantic similarity and
// keyword hits. Built once at startup, read-only afterwards.
type Retriever struct {
	subcats []subcat
	weights Weights
}

type subcat struct {
	candidate domcat.Candidate
	keywords  []string
	vector    []float32
}

// BuildRetriever embeds every subcategory's descriptive text and assembles
// the retriever. The embedding text mirrors the offline convention:
// category name, subcategory name, then keywords.
func BuildRetriever(
	ctx context.Context, cats []domcat.Category, embedder domain.Embedder, weights Weights,
) (*Retriever, error) {
	var subcats []subcat
	var texts []string

	for _, cat := range cats {
		for _, sub := range cat.Subcategories {
			keywords := make([]string, len(sub.Keywords))
			for i, kw := range sub.Keywords {
				keywords[i] = strings.ToLower(kw)
			}
			subcats = append(subcats, subcat{
				candidate: domcat.Candidate{
					CategoryName:    cat.Name,
					SubcategoryName: sub.Name,
					SubcategoryURL:  sub.URL,
				},
				keywords: keywords,
			})
			texts = append(texts, fmt.Sprintf("%s %s %s",
				cat.Name, sub.Name, strings.Join(sub.Keywords, " ")))
		}
	}

	vectors, err := embedTexts(ctx, embedder, texts)
	if err != nil {
		return nil, fmt.Errorf("embed subcategories: %w", err)
	}
	for i := range subcats {
		subcats[i].vector = vectors[i]
	}

	return &Retriever{subcats: subcats, weights: weights}, nil
}

func embedTexts(ctx context.Context, embedder domain.Embedder, texts []string) ([][]float32, error) {
	if be, ok := embedder.(domain.BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, err
		}
		return res.Embeddings, nil
	}
	res, err := domain.BatchFallback(ctx, embedder, texts)
	if err != nil {
		return nil, err
	}
	return res.Embeddings, nil
}

// TopK returns up to k candidates whose hybrid score clears the floor,
// best first. Pure function over immutable state.
func (r *Retriever) TopK(queryVec []float32, normalizedQuery string, k int) []domcat.Candidate {
	type scored struct {
		idx   int
		score float64
	}

	var qualified []scored
	for i, sc := range r.subcats {
		semantic := cosine(queryVec, sc.vector)

		var keyword float64
		for _, kw := range sc.keywords {
			if strings.Contains(normalizedQuery, kw) {
				keyword = 1.0
				break
			}
		}

		score := semantic*r.weights.Semantic + keyword*r.weights.Keyword
		if score > r.weights.Floor {
			qualified = append(qualified, scored{idx: i, score: score})
		}
	}

	sort.Slice(qualified, func(i, j int) bool {
		if qualified[i].score != qualified[j].score {
			return qualified[i].score > qualified[j].score
		}
		return qualified[i].idx < qualified[j].idx
	})

	if len(qualified) > k {
		qualified = qualified[:k]
	}

	candidates := make([]domcat.Candidate, len(qualified))
	for i, q := range qualified {
		candidates[i] = r.subcats[q.idx].candidate
	}
	return candidates
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
