package index

// flat is the exhaustive exact backend used for small corpora.
type flat struct {
	dim     int
	entries []Entry
}

func newFlat(dim int, sorted []Entry) *flat {
	return &flat{dim: dim, entries: sorted}
}

func (f *flat) Search(vector []float32, k int) ([]Candidate, error) {
	if err := checkQuery(f.dim, vector, k); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(f.entries))
	for _, e := range f.entries {
		candidates = append(candidates, Candidate{
			ID:         e.ID,
			Similarity: similarityFromDistance(squaredDistance(vector, e.Vector)),
		})
	}
	return rank(candidates, k), nil
}

func (f *flat) Dimension() int { return f.dim }

func (f *flat) Size() int { return len(f.entries) }
