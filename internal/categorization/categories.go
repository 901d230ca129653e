package categorization

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultWeight is used for categories that are not in the table.
const DefaultWeight = 0.5

// Category represents an article category and its priority weight
type Category struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Weight      float64 `yaml:"priority_weight"` // Expected within [0,1]
}

// Table is the static category table used by extraction prompts and heat scoring.
// Lookups are by exact name.
type Table struct {
	categories      []Category
	weights         map[string]float64
	defaultCategory string
}

// tableFile is the on-disk layout of a categories file
type tableFile struct {
	DefaultCategory string     `yaml:"default_category"`
	Categories      []Category `yaml:"categories"`
}

// DefaultCategories returns the standard category set
func DefaultCategories() []Category {
	return []Category{
		{
			Name:        "Technical Deep Dive",
			Description: "Engineering analysis, benchmarks, architecture and implementation detail",
			Weight:      1.0,
		},
		{
			Name:        "Product Launch",
			Description: "New models, products, features and releases",
			Weight:      0.9,
		},
		{
			Name:        "Research",
			Description: "Papers, studies and experimental results",
			Weight:      0.8,
		},
		{
			Name:        "Industry News",
			Description: "Company moves, funding, policy and market events",
			Weight:      0.7,
		},
		{
			Name:        "Opinion",
			Description: "Essays, commentary and predictions",
			Weight:      0.6,
		},
		{
			Name:        "Tutorial",
			Description: "How-to guides and walkthroughs",
			Weight:      0.5,
		},
	}
}

// DefaultCategoryName is the category assumed when extraction returns none.
const DefaultCategoryName = "Industry News"

// NewTable builds a table from the given categories. Later duplicates win.
func NewTable(categories []Category, defaultCategory string) *Table {
	if len(categories) == 0 {
		categories = DefaultCategories()
	}
	if defaultCategory == "" {
		defaultCategory = DefaultCategoryName
	}

	weights := make(map[string]float64, len(categories))
	for _, cat := range categories {
		weights[cat.Name] = cat.Weight
	}

	return &Table{
		categories:      categories,
		weights:         weights,
		defaultCategory: defaultCategory,
	}
}

// Load reads a YAML categories file. An empty path yields the default table.
func Load(path, defaultCategory string) (*Table, error) {
	if path == "" {
		return NewTable(nil, defaultCategory), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file %s: %w", path, err)
	}

	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse categories file %s: %w", path, err)
	}

	for _, cat := range file.Categories {
		if cat.Name == "" {
			return nil, fmt.Errorf("categories file %s: category without a name", path)
		}
		if cat.Weight < 0 || cat.Weight > 1 {
			return nil, fmt.Errorf("categories file %s: weight %.2f for %q is outside [0,1]", path, cat.Weight, cat.Name)
		}
	}

	if defaultCategory == "" {
		defaultCategory = file.DefaultCategory
	}
	return NewTable(file.Categories, defaultCategory), nil
}

// Weight returns the priority weight for a category name, or DefaultWeight
func (t *Table) Weight(name string) float64 {
	if w, ok := t.weights[name]; ok {
		return w
	}
	return DefaultWeight
}

// DefaultCategory returns the category used when none is reported.
func (t *Table) DefaultCategory() string {
	return t.defaultCategory
}

// Categories returns the table entries in configuration order
func (t *Table) Categories() []Category {
	out := make([]Category, len(t.categories))
	copy(out, t.categories)
	return out
}

// Names returns just the category names
func (t *Table) Names() []string {
	names := make([]string, len(t.categories))
	for i, cat := range t.categories {
		names[i] = cat.Name
	}
	return names
}
