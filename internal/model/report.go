package model

import "time"

// PostRecord is the persisted form of a post in category and trend documents.
type PostRecord struct {
	URI       string    `json:"uri,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Likes     int       `json:"likes"`
	Hashtags  []string  `json:"hashtags"`
}

// RecordOf converts a fetched post into its persisted form.
func RecordOf(p Post) PostRecord {
	tags := p.Hashtags
	if tags == nil {
		tags = []string{}
	}
	return PostRecord{
		URI:       p.URI,
		Text:      p.Text,
		CreatedAt: p.CreatedAt,
		Likes:     p.LikeCount,
		Hashtags:  tags,
	}
}

// HashtagStat is one row of a topic's hashtag ranking.
type HashtagStat struct {
	Hashtag    string  `json:"hashtag"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// PostMetrics summarises the posts fetched for a topic in one crawl cycle.
type PostMetrics struct {
	TotalPosts   int          `json:"total_posts"`
	AverageLikes float64      `json:"average_likes"`
	TopPosts     []PostRecord `json:"top_posts"`
}

// TrendReport is rebuilt wholesale every crawl cycle and supersedes the
// previous report for the same topic.
type TrendReport struct {
	Topic       string        `json:"topic"`
	GeneratedAt time.Time     `json:"generated_at"`
	TopHashtags []HashtagStat `json:"top_hashtags"`
	PostMetrics PostMetrics   `json:"post_metrics"`
}
