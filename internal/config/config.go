package config

import (
	"fmt"
	"strings"
	"time"

	"sidehug/internal/classify"
)

// AppConfig holds application-level settings.
type AppConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	DataDir   string `mapstructure:"data_dir"`   // JSON documents for the dashboard
	OutputDir string `mapstructure:"output_dir"` // rendered markdown digests
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Disabled bool   `mapstructure:"disabled"`
}

// BlueskyConfig holds the bot account and transport settings.
type BlueskyConfig struct {
	Host        string `mapstructure:"host"`
	Handle      string `mapstructure:"handle"`
	Password    string `mapstructure:"password"` // app password
	Timeout     string `mapstructure:"timeout"`
	MinInterval string `mapstructure:"min_interval"` // spacing between any two requests
}

// MiddlewareConfig points at the classification service.
type MiddlewareConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout string `mapstructure:"timeout"`
}

// OpenAIConfig configures the fallback responder used when no middleware is
// configured.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// ChartConfig is the chart image service for sentiment replies. The emotion
// values are appended to BaseURL.
type ChartConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// ImageConfig controls reply images.
type ImageConfig struct {
	MaxDimension int    `mapstructure:"max_dimension"`
	Quality      int    `mapstructure:"quality"`
	MaxBytes     int    `mapstructure:"max_bytes"`
	Timeout      string `mapstructure:"timeout"`
}

// BotConfig controls the mention loop.
type BotConfig struct {
	Disabled          bool   `mapstructure:"disabled"`
	PollInterval      string `mapstructure:"poll_interval"`
	NotificationLimit int    `mapstructure:"notification_limit"`
	MaxLength         int    `mapstructure:"max_length"`
	HandledTTL        string `mapstructure:"handled_ttl"`
}

// TopicConfig is a trend topic and its search keywords.
type TopicConfig struct {
	Name     string   `mapstructure:"name"`
	Keywords []string `mapstructure:"keywords"`
}

// CrawlConfig controls the trend crawler.
type CrawlConfig struct {
	Disabled       bool                `mapstructure:"disabled"`
	Interval       string              `mapstructure:"interval"`
	Jitter         float64             `mapstructure:"jitter"`
	SearchLimit    int                 `mapstructure:"search_limit"`
	Concurrency    int                 `mapstructure:"concurrency"`
	TopHashtags    int                 `mapstructure:"top_hashtags"`
	TopPosts       int                 `mapstructure:"top_posts"`
	DedupePosts    bool                `mapstructure:"dedupe_posts"`
	SearchTerms    []string            `mapstructure:"search_terms"`
	Topics         []TopicConfig       `mapstructure:"topics"`
	Categories     []classify.Category `mapstructure:"categories"`
	CategoriesFile string              `mapstructure:"categories_file"`
	CategoryDirs   map[string]string   `mapstructure:"category_dirs"`
	Digest         bool                `mapstructure:"digest"`
}

// MetricsConfig controls the Prometheus endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Config is the top-level configuration structure.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Bluesky    BlueskyConfig    `mapstructure:"bluesky"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Chart      ChartConfig      `mapstructure:"chart"`
	Image      ImageConfig      `mapstructure:"image"`
	Bot        BotConfig        `mapstructure:"bot"`
	Crawl      CrawlConfig      `mapstructure:"crawl"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// DefaultSearchTerms are the queries of the category crawl.
var DefaultSearchTerms = []string{
	"stocks", "finance", "investment", "market", "trading",
	"bitcoin", "ethereum", "crypto", "blockchain",
}

// DefaultTopics are the trend topics and their keywords.
func DefaultTopics() []TopicConfig {
	return []TopicConfig{
		{Name: "tech", Keywords: []string{"ai", "technology", "startup"}},
		{Name: "finance", Keywords: []string{"investing", "market", "stocks"}},
		{Name: "crypto", Keywords: []string{"blockchain", "bitcoin", "ethereum"}},
		{Name: "entertainment", Keywords: []string{"movies", "streaming", "entertainment"}},
	}
}

// FillDefaults applies default values if not provided.
func (c *Config) FillDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.DataDir == "" {
		c.App.DataDir = "./data"
	}
	if c.App.OutputDir == "" {
		c.App.OutputDir = "./out"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Bluesky.Host == "" {
		c.Bluesky.Host = "https://bsky.social"
	}
	if c.Bluesky.Timeout == "" {
		c.Bluesky.Timeout = "15s"
	}
	if c.Bluesky.MinInterval == "" {
		c.Bluesky.MinInterval = "250ms"
	}
	if c.Middleware.Timeout == "" {
		c.Middleware.Timeout = "120s"
	}
	if c.Image.MaxDimension == 0 {
		c.Image.MaxDimension = 1000
	}
	if c.Image.Quality == 0 {
		c.Image.Quality = 85
	}
	if c.Image.MaxBytes == 0 {
		c.Image.MaxBytes = 10_000_000
	}
	if c.Image.Timeout == "" {
		c.Image.Timeout = "30s"
	}
	if c.Bot.PollInterval == "" {
		c.Bot.PollInterval = "30s"
	}
	if c.Bot.NotificationLimit == 0 {
		c.Bot.NotificationLimit = 50
	}
	if c.Bot.MaxLength == 0 {
		c.Bot.MaxLength = 299
	}
	if c.Bot.HandledTTL == "" {
		c.Bot.HandledTTL = "168h"
	}
	if c.Crawl.Interval == "" {
		c.Crawl.Interval = "5m"
	}
	if c.Crawl.Jitter == 0 {
		c.Crawl.Jitter = 0.1
	}
	if c.Crawl.SearchLimit == 0 {
		c.Crawl.SearchLimit = 50
	}
	if c.Crawl.Concurrency == 0 {
		c.Crawl.Concurrency = 1
	}
	if c.Crawl.TopHashtags == 0 {
		c.Crawl.TopHashtags = 20
	}
	if c.Crawl.TopPosts == 0 {
		c.Crawl.TopPosts = 10
	}
	if len(c.Crawl.SearchTerms) == 0 {
		c.Crawl.SearchTerms = append([]string(nil), DefaultSearchTerms...)
	}
	if len(c.Crawl.Topics) == 0 {
		c.Crawl.Topics = DefaultTopics()
	}
	if len(c.Crawl.Categories) == 0 && c.Crawl.CategoriesFile == "" {
		c.Crawl.Categories = classify.DefaultCategories()
	}
}

// Durations are the parsed duration settings.
type Durations struct {
	BlueskyTimeout    time.Duration
	BlueskyInterval   time.Duration
	MiddlewareTimeout time.Duration
	ImageTimeout      time.Duration
	PollInterval      time.Duration
	HandledTTL        time.Duration
	CrawlInterval     time.Duration
}

// ParseDurations parses every duration string, naming the offending key on
// failure. Call after FillDefaults.
func (c *Config) ParseDurations() (Durations, error) {
	var d Durations
	fields := []struct {
		key string
		val string
		dst *time.Duration
	}{
		{"bluesky.timeout", c.Bluesky.Timeout, &d.BlueskyTimeout},
		{"bluesky.min_interval", c.Bluesky.MinInterval, &d.BlueskyInterval},
		{"middleware.timeout", c.Middleware.Timeout, &d.MiddlewareTimeout},
		{"image.timeout", c.Image.Timeout, &d.ImageTimeout},
		{"bot.poll_interval", c.Bot.PollInterval, &d.PollInterval},
		{"bot.handled_ttl", c.Bot.HandledTTL, &d.HandledTTL},
		{"crawl.interval", c.Crawl.Interval, &d.CrawlInterval},
	}
	for _, f := range fields {
		v, err := time.ParseDuration(strings.TrimSpace(f.val))
		if err != nil {
			return Durations{}, fmt.Errorf("invalid %s %q: %w", f.key, f.val, err)
		}
		if v < 0 {
			return Durations{}, fmt.Errorf("invalid %s %q: negative", f.key, f.val)
		}
		*f.dst = v
	}
	if d.PollInterval == 0 || d.CrawlInterval == 0 {
		return Durations{}, fmt.Errorf("poll and crawl intervals must be positive")
	}
	return d, nil
}

// LoadCategories returns the keyword table: the file when configured,
// otherwise the inline table.
func (c *Config) LoadCategories() ([]classify.Category, error) {
	if strings.TrimSpace(c.Crawl.CategoriesFile) != "" {
		return classify.LoadTable(c.Crawl.CategoriesFile)
	}
	if len(c.Crawl.Categories) == 0 {
		return classify.DefaultCategories(), nil
	}
	return c.Crawl.Categories, nil
}
