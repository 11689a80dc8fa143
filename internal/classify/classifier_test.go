package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyMatchesMultipleCategories(t *testing.T) {
	c := New(DefaultCategories())

	got := c.Classify("Crypto MARKET rally: my investment strategy")
	assert.Equal(t, []string{"crypto_news", "investment_insights", "stock_updates"}, got)
}

func TestClassifySubstringMatch(t *testing.T) {
	c := New(DefaultCategories())

	// "stocks" contains "stock", "cryptocurrency" contains "crypto".
	assert.Equal(t, []string{"crypto_news", "stock_updates"}, c.Classify("stocks and cryptocurrency"))
}

func TestClassifyNoMatchIsEmpty(t *testing.T) {
	c := New(DefaultCategories())

	assert.Empty(t, c.Classify("lovely weather for a walk"))
	assert.Empty(t, c.Classify(""))
}

func TestClassifyIsPure(t *testing.T) {
	c := New(DefaultCategories())
	text := "Economy report: trading volumes up"

	first := c.Classify(text)
	second := c.Classify(text)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"financial_news", "stock_updates"}, first)
}

func TestSharedKeywordBelongsToBothCategories(t *testing.T) {
	c := New([]Category{
		{Name: "a", Keywords: []string{"Chain"}},
		{Name: "b", Keywords: []string{"chain", "  "}},
		{Name: "", Keywords: []string{"ignored"}},
	})

	assert.Equal(t, []string{"a", "b"}, c.Classify("BLOCKCHAIN"))
	assert.Empty(t, c.Classify("ignored"))
	assert.Equal(t, []string{"a", "b"}, c.Categories())
}

func TestEmptyTable(t *testing.T) {
	c := New(nil)
	assert.Empty(t, c.Classify("anything"))

	var nilClassifier *Classifier
	assert.Empty(t, nilClassifier.Classify("anything"))
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	content := "categories:\n" +
		"  - name: crypto_news\n" +
		"    keywords: [crypto, bitcoin]\n" +
		"  - name: ai\n" +
		"    keywords:\n" +
		"      - llm\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cats, err := LoadTable(path)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "crypto_news", cats[0].Name)
	assert.Equal(t, []string{"crypto", "bitcoin"}, cats[0].Keywords)

	c := New(cats)
	assert.Equal(t, []string{"ai", "crypto_news"}, c.Classify("An LLM trading Bitcoin"))
}

func TestLoadTableErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadTable(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("categories: []\n"), 0o644))
	_, err = LoadTable(empty)
	assert.Error(t, err)
}
