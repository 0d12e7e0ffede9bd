package catalog

// Set is an immutable product collection with O(1) lookup by ID. Loaded once
// at startup and shared by concurrent readers.
type Set struct {
	byID  map[string]Product
	items []Product
}

// NewSet builds a set from products. Later duplicates of an ID win.
func NewSet(products []Product) *Set {
	byID := make(map[string]Product, len(products))
	for _, p := range products {
		byID[p.id] = p
	}
	return &Set{byID: byID, items: products}
}

// Get returns the product with the given ID.
func (s *Set) Get(id string) (Product, bool) {
	p, ok := s.byID[id]
	return p, ok
}

// Len returns the number of products.
func (s *Set) Len() int { return len(s.items) }

// All returns the underlying products in load order. Callers must not mutate.
func (s *Set) All() []Product { return s.items }
