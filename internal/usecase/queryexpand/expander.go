// Package queryexpand normalizes raw query text and expands it against a
// bilingual synonym table. Expansion is additive: terms the user typed are
// never removed.
package queryexpand

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zoomfind/prodex/internal/domain"
	"github.com/zoomfind/prodex/internal/domain/query"
)

// Expander holds an immutable synonym table, shared across requests.
type Expander struct {
	entries []entry
}

type entry struct {
	term       string
	expansions []string
}

// NewExpander creates an expander from a term → synonyms map. Entries are
// sorted by term so expansion order does not depend on map iteration.
func NewExpander(synonyms map[string][]string) *Expander {
	entries := make([]entry, 0, len(synonyms))
	for term, exps := range synonyms {
		entries = append(entries, entry{term: strings.ToLower(term), expansions: exps})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].term < entries[j].term })
	return &Expander{entries: entries}
}

// tableFile is the YAML shape of the synonym table.
type tableFile struct {
	Synonyms map[string][]string `yaml:"synonyms"`
}

// LoadTable reads a synonym table from a YAML file.
func LoadTable(path string) (map[string][]string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read synonyms %s: %w", path, err)
	}
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse synonyms: %w", err)
	}
	return tf.Synonyms, nil
}

// Expand normalizes raw text and returns the query with its expanded term
// sequence: user tokens first in input order, then synonyms of any table term
// found in the normalized text. Duplicates are dropped, order is preserved.
// Pure function, no I/O.
func (e *Expander) Expand(raw string) (query.Query, error) {
	normalized := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if normalized == "" {
		return query.Query{}, fmt.Errorf("query is empty after normalization: %w", domain.ErrInvalidQuery)
	}

	seen := make(map[string]struct{})
	var terms []string
	add := func(t string) {
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}

	for _, tok := range strings.Fields(normalized) {
		add(tok)
	}

	for _, ent := range e.entries {
		if strings.Contains(normalized, ent.term) {
			for _, exp := range ent.expansions {
				add(strings.ToLower(exp))
			}
		}
	}

	return query.New(raw, normalized, terms), nil
}
