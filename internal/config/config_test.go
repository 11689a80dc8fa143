package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillDefaults(t *testing.T) {
	var c Config
	c.FillDefaults()

	assert.Equal(t, "info", c.App.LogLevel)
	assert.Equal(t, "https://bsky.social", c.Bluesky.Host)
	assert.Equal(t, 299, c.Bot.MaxLength)
	assert.Equal(t, 50, c.Crawl.SearchLimit)
	assert.Equal(t, 20, c.Crawl.TopHashtags)
	assert.Equal(t, 10, c.Crawl.TopPosts)
	assert.Equal(t, DefaultSearchTerms, c.Crawl.SearchTerms)
	require.Len(t, c.Crawl.Topics, 4)
	assert.Equal(t, "tech", c.Crawl.Topics[0].Name)
	require.Len(t, c.Crawl.Categories, 4)

	d, err := c.ParseDurations()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d.PollInterval)
	assert.Equal(t, 5*time.Minute, d.CrawlInterval)
	assert.Equal(t, 120*time.Second, d.MiddlewareTimeout)
	assert.Equal(t, 7*24*time.Hour, d.HandledTTL)
}

func TestUnmarshalYAML(t *testing.T) {
	doc := `
app:
  log_level: debug
bluesky:
  handle: bot.bsky.social
  min_interval: 1s
bot:
  poll_interval: 45s
crawl:
  dedupe_posts: true
  topics:
    - name: sports
      keywords: [nba, nfl]
  categories:
    - name: weather
      keywords: [rain, storm]
`
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(doc)))
	var c Config
	require.NoError(t, v.Unmarshal(&c))
	c.FillDefaults()

	assert.Equal(t, "debug", c.App.LogLevel)
	assert.Equal(t, "bot.bsky.social", c.Bluesky.Handle)
	assert.True(t, c.Crawl.DedupePosts)
	assert.Equal(t, []TopicConfig{{Name: "sports", Keywords: []string{"nba", "nfl"}}}, c.Crawl.Topics)

	cats, err := c.LoadCategories()
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "weather", cats[0].Name)

	d, err := c.ParseDurations()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, d.PollInterval)
	assert.Equal(t, time.Second, d.BlueskyInterval)
}

func TestParseDurationsNamesBadKey(t *testing.T) {
	var c Config
	c.FillDefaults()
	c.Crawl.Interval = "soon"
	_, err := c.ParseDurations()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crawl.interval")
}

func TestLoadCategoriesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - name: ai_news\n    keywords: [llm, gpu]\n"), 0o644))

	var c Config
	c.Crawl.CategoriesFile = path
	c.FillDefaults()
	assert.Empty(t, c.Crawl.Categories)

	cats, err := c.LoadCategories()
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, []string{"llm", "gpu"}, cats[0].Keywords)
}
