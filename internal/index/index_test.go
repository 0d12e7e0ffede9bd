package index

import (
	"errors"
	"fmt"
	"testing"

	"github.com/zoomfind/prodex/internal/domain"
)

func makeEntries(n, dim int) []Entry {
	entries := make([]Entry, n)
	for i := range entries {
		vec := make([]float32, dim)
		for d := range vec {
			vec[d] = float32((i*31+d*7)%100) / 100.0
		}
		entries[i] = Entry{ID: fmt.Sprintf("p%04d", i), Vector: vec}
	}
	return entries
}

func TestNew_BackendSelection(t *testing.T) {
	small, err := New(4, makeEntries(10, 4), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := small.(*flat); !ok {
		t.Errorf("small corpus should use flat backend, got %T", small)
	}

	large, err := New(4, makeEntries(50, 4), Options{FlatThreshold: 50})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := large.(*ivf); !ok {
		t.Errorf("corpus at threshold should use ivf backend, got %T", large)
	}
}

func TestNew_EntryDimensionMismatch(t *testing.T) {
	entries := []Entry{{ID: "a", Vector: []float32{1, 2, 3}}}
	if _, err := New(4, entries, Options{}); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestFlat_SearchOrderingAndBound(t *testing.T) {
	entries := []Entry{
		{ID: "c", Vector: []float32{0, 0}},
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{3, 0}},
	}
	idx, err := New(2, entries, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := idx.Search([]float32{0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].ID != "c" || got[1].ID != "a" {
		t.Errorf("order = [%s %s], want [c a]", got[0].ID, got[1].ID)
	}
	if got[0].Similarity != 1.0 {
		t.Errorf("exact match similarity = %f, want 1.0", got[0].Similarity)
	}
	for _, c := range got {
		if c.Similarity < 0 || c.Similarity > 1 {
			t.Errorf("similarity %f out of [0,1]", c.Similarity)
		}
	}
}

func TestFlat_TieBreakByID(t *testing.T) {
	// Two entries equidistant from the query: ascending ID wins.
	entries := []Entry{
		{ID: "z", Vector: []float32{1, 0}},
		{ID: "a", Vector: []float32{-1, 0}},
	}
	idx, err := New(2, entries, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := idx.Search([]float32{0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got[0].ID != "a" || got[1].ID != "z" {
		t.Errorf("tie order = [%s %s], want [a z]", got[0].ID, got[1].ID)
	}
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	idx, err := New(4, makeEntries(5, 4), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := idx.Search([]float32{1, 2}, 3); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestIVF_FindsNearNeighbors(t *testing.T) {
	entries := makeEntries(200, 4)
	idx, err := New(4, entries, Options{FlatThreshold: 100})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if idx.Size() != 200 {
		t.Fatalf("Size() = %d, want 200", idx.Size())
	}

	// Query with an exact corpus vector: that vector must come back first.
	target := entries[42]
	got, err := idx.Search(target.Vector, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) == 0 || got[0].ID != target.ID {
		t.Fatalf("expected %s first, got %+v", target.ID, got)
	}
	if got[0].Similarity != 1.0 {
		t.Errorf("exact match similarity = %f, want 1.0", got[0].Similarity)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Similarity > got[i-1].Similarity {
			t.Errorf("results not sorted at %d", i)
		}
	}
}

func TestIVF_Deterministic(t *testing.T) {
	entries := makeEntries(150, 4)
	query := []float32{0.3, 0.1, 0.9, 0.5}

	a, err := New(4, entries, Options{FlatThreshold: 100})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New(4, entries, Options{FlatThreshold: 100})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ra, _ := a.Search(query, 10)
	rb, _ := b.Search(query, 10)
	if len(ra) != len(rb) {
		t.Fatalf("result lengths differ: %d vs %d", len(ra), len(rb))
	}
	for i := range ra {
		if ra[i] != rb[i] {
			t.Errorf("results differ at %d: %+v vs %+v", i, ra[i], rb[i])
		}
	}
}

func TestStore_NotLoaded(t *testing.T) {
	s := NewStore()
	if s.Loaded() {
		t.Error("empty store reports loaded")
	}
	if _, err := s.Search([]float32{1}, 1); !errors.Is(err, domain.ErrIndexNotLoaded) {
		t.Fatalf("expected ErrIndexNotLoaded, got %v", err)
	}
}

func TestStore_Swap(t *testing.T) {
	s := NewStore()
	idx, err := New(2, []Entry{{ID: "a", Vector: []float32{0, 0}}}, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Swap(idx)

	if !s.Loaded() {
		t.Error("store not loaded after Swap")
	}
	if s.Dimension() != 2 || s.Size() != 1 {
		t.Errorf("Dimension()=%d Size()=%d, want 2 and 1", s.Dimension(), s.Size())
	}
	got, err := s.Search([]float32{0, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("unexpected result %+v", got)
	}
}
