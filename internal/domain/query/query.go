// Package query holds the per-request query value type.
package query

// Query is a normalized, expanded search query. Created per request.
type Query struct {
	raw        string
	normalized string
	terms      []string
	vector     []float32
}

// New creates a query. Terms must be de-duplicated and in insertion order.
func New(raw, normalized string, terms []string) Query {
	return Query{raw: raw, normalized: normalized, terms: terms}
}

// Raw returns the query text as received.
func (q *Query) Raw() string { return q.raw }

// Normalized returns the lowercased, whitespace-trimmed query text.
func (q *Query) Normalized() string { return q.normalized }

// Terms returns the expanded term sequence, user terms first.
func (q *Query) Terms() []string { return q.terms }

// Vector returns the query embedding, nil until attached.
func (q *Query) Vector() []float32 { return q.vector }

// WithVector returns a copy with the embedding attached.
func (q Query) WithVector(vec []float32) Query {
	q.vector = vec
	return q
}
