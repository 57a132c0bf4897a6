// Package taxonomy holds the transaction-category catalogue and the closed
// list of asset categories that count as savings contributions.
package taxonomy

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"dailyowo/internal/core"
)

// savingsCategories is the single allow-list of asset transaction
// categories counted as savings. Any asset outside this list (a car, a
// house) is not a savings contribution.
var savingsCategories = []string{
	"savings-account",
	"emergency-fund",
	"certificate-of-deposit",
	"money-market",
	"retirement-401k",
	"retirement-ira",
	"retirement-roth-ira",
	"pension",
	"stocks",
	"bonds",
	"mutual-funds",
	"etf",
	"index-funds",
	"cryptocurrency",
	"real-estate-investment",
	"education-savings",
	"investment",
}

// SavingsSet is a lookup set of transaction-category IDs.
type SavingsSet map[string]struct{}

// Has reports whether id is a savings category.
func (s SavingsSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// DefaultSavingsCategories returns a fresh copy of the built-in allow-list.
func DefaultSavingsCategories() SavingsSet {
	set := make(SavingsSet, len(savingsCategories))
	for _, id := range savingsCategories {
		set[id] = struct{}{}
	}
	return set
}

// Category is one entry of the transaction-category catalogue.
type Category struct {
	ID         string                  `yaml:"id" json:"id"`
	Name       string                  `yaml:"name" json:"name"`
	BudgetHint core.BudgetCategoryType `yaml:"budget_hint" json:"budgetHint,omitempty"`
	Savings    bool                    `yaml:"savings" json:"savings"`
}

// Taxonomy maps transaction-category IDs to their display data.
type Taxonomy struct {
	categories map[string]Category
	savings    SavingsSet
}

type file struct {
	Categories []Category `yaml:"categories"`
}

// Default returns a taxonomy containing only the savings allow-list.
func Default() *Taxonomy {
	t := &Taxonomy{categories: map[string]Category{}, savings: DefaultSavingsCategories()}
	for id := range t.savings {
		t.categories[id] = Category{ID: id, Name: id, Savings: true}
	}
	return t
}

// Parse reads a YAML catalogue. Entries flagged `savings: true` extend the
// built-in allow-list.
func Parse(data []byte) (*Taxonomy, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	t := Default()
	for i, c := range f.Categories {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			return nil, fmt.Errorf("taxonomy entry %d: %w", i, core.ErrMissingID)
		}
		if c.Name == "" {
			c.Name = c.ID
		}
		if t.savings.Has(c.ID) {
			c.Savings = true
		}
		t.categories[c.ID] = c
		if c.Savings {
			t.savings[c.ID] = struct{}{}
		}
	}
	return t, nil
}

// Load reads a YAML catalogue from path. An empty path yields Default().
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %s: %w", path, err)
	}
	return Parse(data)
}

// Lookup returns the catalogue entry for id.
func (t *Taxonomy) Lookup(id string) (Category, bool) {
	c, ok := t.categories[id]
	return c, ok
}

// Savings returns the savings allow-list of this taxonomy.
func (t *Taxonomy) Savings() SavingsSet {
	out := make(SavingsSet, len(t.savings))
	for id := range t.savings {
		out[id] = struct{}{}
	}
	return out
}

// IDs returns all known category IDs, sorted.
func (t *Taxonomy) IDs() []string {
	ids := make([]string, 0, len(t.categories))
	for id := range t.categories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
