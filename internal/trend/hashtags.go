package trend

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"sidehug/internal/model"
)

var hashtagRe = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// ExtractHashtags returns the distinct hashtags of text, lowercased and
// prefixed with '#', in order of first occurrence.
func ExtractHashtags(text string) []string {
	matches := hashtagRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		tag := "#" + strings.ToLower(m[1])
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

type topicCounts struct {
	counts     map[string]int
	order      []string // first-seen order of hashtags
	totalPosts int
	totalLikes int
	posts      []model.PostRecord
}

// Aggregator accumulates hashtag frequencies and post metrics per topic for a
// single crawl cycle. It is not safe for concurrent use.
type Aggregator struct {
	topics map[string]*topicCounts
}

func NewAggregator() *Aggregator {
	return &Aggregator{topics: map[string]*topicCounts{}}
}

func (a *Aggregator) topic(name string) *topicCounts {
	tc, ok := a.topics[name]
	if !ok {
		tc = &topicCounts{counts: map[string]int{}}
		a.topics[name] = tc
	}
	return tc
}

// Accumulate increments the frequency of each hashtag for topic. Tags are
// lowercased so callers may pass raw tokens.
func (a *Aggregator) Accumulate(topic string, hashtags []string) {
	tc := a.topic(topic)
	for _, h := range hashtags {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if _, ok := tc.counts[h]; !ok {
			tc.order = append(tc.order, h)
		}
		tc.counts[h]++
	}
}

// AddPost counts one fetched post for topic: its likes, its hashtags and the
// post itself as a candidate exemplar.
func (a *Aggregator) AddPost(topic string, p model.Post) {
	tc := a.topic(topic)
	tc.totalPosts++
	tc.totalLikes += p.LikeCount
	tc.posts = append(tc.posts, model.RecordOf(p))
	a.Accumulate(topic, p.Hashtags)
}

// TotalPosts returns the number of posts counted for topic.
func (a *Aggregator) TotalPosts(topic string) int {
	if tc, ok := a.topics[topic]; ok {
		return tc.totalPosts
	}
	return 0
}

// TopN returns at most n hashtags of topic by descending count; ties keep the
// order in which the hashtags were first seen. Each entry carries its share of
// the topic's posts as a percentage rounded to two decimals, or 0 when no post
// was counted.
func (a *Aggregator) TopN(topic string, n int) []model.HashtagStat {
	tc, ok := a.topics[topic]
	if !ok || n <= 0 {
		return []model.HashtagStat{}
	}
	tags := make([]string, len(tc.order))
	copy(tags, tc.order)
	sort.SliceStable(tags, func(i, j int) bool {
		return tc.counts[tags[i]] > tc.counts[tags[j]]
	})
	if len(tags) > n {
		tags = tags[:n]
	}
	out := make([]model.HashtagStat, 0, len(tags))
	for _, h := range tags {
		c := tc.counts[h]
		out = append(out, model.HashtagStat{
			Hashtag:    h,
			Count:      c,
			Percentage: percentage(c, tc.totalPosts),
		})
	}
	return out
}

// Metrics returns the post metrics of topic with at most topPosts exemplars,
// ordered by likes (stable for equal likes).
func (a *Aggregator) Metrics(topic string, topPosts int) model.PostMetrics {
	tc, ok := a.topics[topic]
	if !ok {
		return model.PostMetrics{TopPosts: []model.PostRecord{}}
	}
	posts := make([]model.PostRecord, len(tc.posts))
	copy(posts, tc.posts)
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Likes > posts[j].Likes
	})
	if topPosts >= 0 && len(posts) > topPosts {
		posts = posts[:topPosts]
	}
	avg := 0.0
	if tc.totalPosts > 0 {
		avg = round2(float64(tc.totalLikes) / float64(tc.totalPosts))
	}
	return model.PostMetrics{
		TotalPosts:   tc.totalPosts,
		AverageLikes: avg,
		TopPosts:     posts,
	}
}

// Reset drops every counter.
func (a *Aggregator) Reset() {
	a.topics = map[string]*topicCounts{}
}

func percentage(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round2(float64(count) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
