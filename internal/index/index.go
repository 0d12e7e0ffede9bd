// Package index provides in-memory nearest-neighbor search over product
// embeddings. Below FlatThreshold items the exhaustive flat backend is used;
// at or above it a clustered IVF backend trades recall for latency.
package index

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/zoomfind/prodex/internal/domain"
)

// FlatThreshold is the corpus size at which the clustered backend takes over.
const FlatThreshold = 1000

// Entry is a single indexed vector.
type Entry struct {
	ID     string
	Vector []float32
}

// Candidate is a search hit: product identifier plus raw similarity in [0,1].
type Candidate struct {
	ID         string
	Similarity float64
}

// Index is a read-only nearest-neighbor structure. Implementations are
// immutable after construction and safe for concurrent readers.
type Index interface {
	// Search returns at most k candidates ordered by descending similarity,
	// ties broken by ascending ID.
	Search(vector []float32, k int) ([]Candidate, error)
	Dimension() int
	Size() int
}

// Options tune index construction.
type Options struct {
	// FlatThreshold overrides the backend selection cutoff. Zero means default.
	FlatThreshold int
	// Probes is the number of clusters scanned per IVF query. Zero means default.
	Probes int
}

// New builds an index over entries, choosing the backend by corpus size.
// Every entry must have dimension dim.
func New(dim int, entries []Entry, opts Options) (Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("index dimension must be positive, got %d", dim)
	}
	for _, e := range entries {
		if len(e.Vector) != dim {
			return nil, fmt.Errorf("entry %q has dimension %d, index expects %d: %w",
				e.ID, len(e.Vector), dim, domain.ErrDimensionMismatch)
		}
	}

	// Sorted entries make tie-breaks and cluster seeding deterministic.
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	threshold := opts.FlatThreshold
	if threshold <= 0 {
		threshold = FlatThreshold
	}

	if len(sorted) < threshold {
		return newFlat(dim, sorted), nil
	}
	return newIVF(dim, sorted, opts.Probes), nil
}

// Store holds the serving index behind an atomic pointer: explicit one-time
// load at startup, atomic swap for future rebuilds, no locking on the read path.
type Store struct {
	current atomic.Pointer[holder]
}

type holder struct {
	idx Index
}

// NewStore creates an empty store. Search fails until Swap is called.
func NewStore() *Store {
	return &Store{}
}

// Swap atomically replaces the serving index.
func (s *Store) Swap(idx Index) {
	s.current.Store(&holder{idx: idx})
}

// Search delegates to the current index.
func (s *Store) Search(vector []float32, k int) ([]Candidate, error) {
	h := s.current.Load()
	if h == nil {
		return nil, domain.ErrIndexNotLoaded
	}
	return h.idx.Search(vector, k)
}

// Dimension returns the current index dimension, or 0 when unloaded.
func (s *Store) Dimension() int {
	if h := s.current.Load(); h != nil {
		return h.idx.Dimension()
	}
	return 0
}

// Size returns the current corpus size, or 0 when unloaded.
func (s *Store) Size() int {
	if h := s.current.Load(); h != nil {
		return h.idx.Size()
	}
	return 0
}

// Loaded reports whether an index has been swapped in.
func (s *Store) Loaded() bool {
	return s.current.Load() != nil
}

// squaredDistance is the squared Euclidean distance between two vectors.
func squaredDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// similarityFromDistance maps a distance to (0,1]: distance 0 becomes 1 and
// the mapping is monotonically decreasing.
func similarityFromDistance(d float64) float64 {
	return 1.0 / (1.0 + d)
}

// rank orders candidates by descending similarity, ascending ID on ties, and
// truncates to k.
func rank(candidates []Candidate, k int) []Candidate {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].ID < candidates[j].ID
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

func checkQuery(dim int, vector []float32, k int) error {
	if len(vector) != dim {
		return fmt.Errorf("query has dimension %d, index expects %d: %w",
			len(vector), dim, domain.ErrDimensionMismatch)
	}
	if k <= 0 {
		return fmt.Errorf("k must be positive, got %d", k)
	}
	return nil
}
