// Package classify assigns posts to keyword-defined category buckets.
//
// Matching is case-insensitive substring membership: a category matches when
// any of its keywords occurs anywhere in the text. All keywords of all
// categories are compiled into a single Aho-Corasick automaton so a post is
// scanned once regardless of the table size.
package classify

import (
	"sort"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// Category is one row of the keyword table.
type Category struct {
	Name     string   `yaml:"name" mapstructure:"name"`
	Keywords []string `yaml:"keywords" mapstructure:"keywords"`
}

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	matcher  *ahocorasick.Matcher
	keywords []string
	owners   [][]string // keyword index -> category names
	names    []string
}

// New compiles the keyword table. Keywords are lowercased and trimmed; empty
// keywords and categories without a name are ignored.
func New(categories []Category) *Classifier {
	c := &Classifier{}
	index := map[string]int{}
	for _, cat := range categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			continue
		}
		c.names = append(c.names, name)
		for _, kw := range cat.Keywords {
			kw = normalize(kw)
			if kw == "" {
				continue
			}
			i, ok := index[kw]
			if !ok {
				i = len(c.keywords)
				index[kw] = i
				c.keywords = append(c.keywords, kw)
				c.owners = append(c.owners, nil)
			}
			c.owners[i] = appendUnique(c.owners[i], name)
		}
	}
	if len(c.keywords) > 0 {
		c.matcher = ahocorasick.NewStringMatcher(c.keywords)
	}
	return c
}

// Classify returns the sorted names of every category whose keywords occur in
// text. An empty result means the text is uncategorized.
func (c *Classifier) Classify(text string) []string {
	if c == nil || c.matcher == nil {
		return nil
	}
	hits := c.matcher.MatchThreadSafe([]byte(normalize(text)))
	if len(hits) == 0 {
		return nil
	}
	set := map[string]struct{}{}
	for _, h := range hits {
		if h < 0 || h >= len(c.owners) {
			continue
		}
		for _, name := range c.owners[h] {
			set[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Categories lists the configured category names in table order.
func (c *Classifier) Categories() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
