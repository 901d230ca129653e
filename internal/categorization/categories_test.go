package categorization

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableWeight(t *testing.T) {
	table := NewTable([]Category{
		{Name: "Research", Weight: 0.8},
		{Name: "Opinion", Weight: 0.2},
	}, "")

	assert.Equal(t, 0.8, table.Weight("Research"))
	assert.Equal(t, 0.2, table.Weight("Opinion"))
	assert.Equal(t, DefaultWeight, table.Weight("Unknown"))
	assert.Equal(t, DefaultWeight, table.Weight("research"), "lookup is exact")
	assert.Equal(t, DefaultCategoryName, table.DefaultCategory())
}

func TestNewTable_DefaultsWhenEmpty(t *testing.T) {
	table := NewTable(nil, "Opinion")

	assert.Len(t, table.Names(), len(DefaultCategories()))
	assert.Equal(t, "Opinion", table.DefaultCategory())
	assert.Equal(t, 1.0, table.Weight("Technical Deep Dive"))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "categories.yaml")
	content := `default_category: Analysis
categories:
  - name: Analysis
    description: Deep dives
    priority_weight: 0.9
  - name: News
    priority_weight: 0.4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	table, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Analysis", "News"}, table.Names())
	assert.Equal(t, "Analysis", table.DefaultCategory())
	assert.Equal(t, 0.9, table.Weight("Analysis"))
	assert.Equal(t, 0.4, table.Weight("News"))
}

func TestLoad_RejectsOutOfRangeWeight(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - name: Hype\n    priority_weight: 3\n"), 0644))

	_, err := Load(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside [0,1]")
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	table, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultCategoryName, table.DefaultCategory())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	require.Error(t, err)
}
