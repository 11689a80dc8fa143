package classify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultCategories is the content table used when none is configured.
func DefaultCategories() []Category {
	return []Category{
		{Name: "stock_updates", Keywords: []string{"stock", "market", "trading"}},
		{Name: "financial_news", Keywords: []string{"financial", "economy", "report"}},
		{Name: "investment_insights", Keywords: []string{"investment", "strategy"}},
		{Name: "crypto_news", Keywords: []string{"crypto"}},
	}
}

type tableFile struct {
	Categories []Category `yaml:"categories"`
}

// LoadTable reads a keyword table from a YAML file of the form
//
//	categories:
//	  - name: crypto_news
//	    keywords: [crypto, bitcoin]
func LoadTable(path string) ([]Category, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tf tableFile
	if err := yaml.Unmarshal(b, &tf); err != nil {
		return nil, fmt.Errorf("parse category table %s: %w", path, err)
	}
	if len(tf.Categories) == 0 {
		return nil, fmt.Errorf("category table %s has no categories", path)
	}
	return tf.Categories, nil
}
