// Package trend crawls keyword searches, buckets posts into content categories
// and aggregates per-topic hashtag trends.
package trend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"sidehug/internal/classify"
	"sidehug/internal/metrics"
	"sidehug/internal/model"
)

// Searcher runs one search query against the network.
type Searcher interface {
	SearchPosts(ctx context.Context, query string, limit int) ([]model.Post, error)
}

// Sink persists the documents produced by a cycle. Every call replaces the
// previous document for the same key.
type Sink interface {
	SaveCategoryPosts(ctx context.Context, category string, posts []model.PostRecord) error
	SaveTrendReport(ctx context.Context, report model.TrendReport) error
}

// Topic is a trend bucket and the search keywords that feed it.
type Topic struct {
	Name     string
	Keywords []string
}

// Engine runs crawl cycles. Each cycle starts from empty counters.
type Engine struct {
	Searcher   Searcher
	Classifier *classify.Classifier
	Sink       Sink

	SearchTerms []string // queries for the category crawl
	Topics      []Topic
	SearchLimit int
	Concurrency int
	TopHashtags int
	TopPosts    int
	// DedupePosts counts a post once per topic or category even when several
	// keywords return it.
	DedupePosts bool

	Now func() time.Time
}

// CycleResult summarises one crawl cycle.
type CycleResult struct {
	Categories     map[string]int // category -> posts saved
	Reports        []model.TrendReport
	FailedSearches int
	FailedSaves    int
}

// RunCycle performs the category crawl followed by the trend analysis. Failed
// searches and saves are logged and skipped; an authentication failure or a
// cancelled context aborts the cycle before anything else is saved.
func (e *Engine) RunCycle(ctx context.Context) (*CycleResult, error) {
	res := &CycleResult{Categories: map[string]int{}}

	if err := e.crawlCategories(ctx, res); err != nil {
		return res, err
	}
	if err := e.analyzeTrends(ctx, res); err != nil {
		return res, err
	}
	return res, nil
}

func (e *Engine) crawlCategories(ctx context.Context, res *CycleResult) error {
	if len(e.SearchTerms) == 0 || e.Classifier == nil {
		return nil
	}
	batches, failed, err := e.searchAll(ctx, e.SearchTerms)
	res.FailedSearches += failed
	if err != nil {
		return fmt.Errorf("category crawl: %w", err)
	}

	buckets := map[string][]model.PostRecord{}
	seen := map[string]map[string]struct{}{}
	for _, posts := range batches {
		metrics.PostsFetched.WithLabelValues("categories").Add(float64(len(posts)))
		for _, p := range posts {
			for _, cat := range e.Classifier.Classify(p.Text) {
				if e.DedupePosts && p.URI != "" {
					if seen[cat] == nil {
						seen[cat] = map[string]struct{}{}
					}
					if _, dup := seen[cat][p.URI]; dup {
						continue
					}
					seen[cat][p.URI] = struct{}{}
				}
				buckets[cat] = append(buckets[cat], model.RecordOf(p))
			}
		}
	}

	// Categories without posts keep their previous document.
	for _, cat := range e.Classifier.Categories() {
		posts := buckets[cat]
		if len(posts) == 0 {
			continue
		}
		if err := e.Sink.SaveCategoryPosts(ctx, cat, posts); err != nil {
			slog.Error("trend: save category failed", "category", cat, "error", err)
			res.FailedSaves++
			continue
		}
		res.Categories[cat] = len(posts)
		slog.Info("trend: saved category posts", "category", cat, "count", len(posts))
	}
	return nil
}

func (e *Engine) analyzeTrends(ctx context.Context, res *CycleResult) error {
	agg := NewAggregator()
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	for _, topic := range e.Topics {
		batches, failed, err := e.searchAll(ctx, topic.Keywords)
		res.FailedSearches += failed
		if err != nil {
			return fmt.Errorf("trend topic %s: %w", topic.Name, err)
		}
		seen := map[string]struct{}{}
		for _, posts := range batches {
			metrics.PostsFetched.WithLabelValues(topic.Name).Add(float64(len(posts)))
			for _, p := range posts {
				if e.DedupePosts && p.URI != "" {
					if _, dup := seen[p.URI]; dup {
						continue
					}
					seen[p.URI] = struct{}{}
				}
				agg.AddPost(topic.Name, p)
			}
		}

		report := model.TrendReport{
			Topic:       topic.Name,
			GeneratedAt: now().UTC(),
			TopHashtags: agg.TopN(topic.Name, e.topHashtags()),
			PostMetrics: agg.Metrics(topic.Name, e.topPosts()),
		}
		res.Reports = append(res.Reports, report)
		if err := e.Sink.SaveTrendReport(ctx, report); err != nil {
			slog.Error("trend: save report failed", "topic", topic.Name, "error", err)
			res.FailedSaves++
			continue
		}
		slog.Info("trend: saved report", "topic", topic.Name,
			"posts", report.PostMetrics.TotalPosts, "hashtags", len(report.TopHashtags))
	}
	return nil
}

// searchAll runs one search per term with bounded concurrency and returns the
// results indexed like terms, so merging stays deterministic.
func (e *Engine) searchAll(ctx context.Context, terms []string) ([][]model.Post, int, error) {
	results := make([][]model.Post, len(terms))
	failed := make([]bool, len(terms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency())
	for i, term := range terms {
		i, term := i, term
		g.Go(func() error {
			posts, err := e.Searcher.SearchPosts(gctx, term, e.searchLimit())
			if err != nil {
				// A cancelled cycle must not save partial results over the
				// previous documents.
				if errors.Is(err, model.ErrAuth) || errors.Is(err, context.Canceled) {
					return err
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Error("trend: search failed", "term", term, "error", err)
				metrics.SearchFailures.Inc()
				failed[i] = true
				return nil
			}
			for j := range posts {
				posts[j].Hashtags = ExtractHashtags(posts[j].Text)
			}
			results[i] = posts
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	n := 0
	for _, f := range failed {
		if f {
			n++
		}
	}
	if err != nil {
		return nil, n, err
	}
	return results, n, nil
}

func (e *Engine) concurrency() int {
	if e.Concurrency <= 0 {
		return 1
	}
	return e.Concurrency
}

func (e *Engine) searchLimit() int {
	if e.SearchLimit <= 0 {
		return 50
	}
	return e.SearchLimit
}

func (e *Engine) topHashtags() int {
	if e.TopHashtags <= 0 {
		return 20
	}
	return e.TopHashtags
}

func (e *Engine) topPosts() int {
	if e.TopPosts <= 0 {
		return 10
	}
	return e.TopPosts
}
