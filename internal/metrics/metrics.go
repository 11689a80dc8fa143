// Package metrics holds the process-wide Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sidehug"

var (
	MentionsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mentions_processed_total",
		Help:      "Mentions that reached the completed state, by outcome.",
	}, []string{"outcome"})

	RepliesPosted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "replies_posted_total",
		Help:      "Reply posts created.",
	})

	ReplyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reply_failures_total",
		Help:      "Reply posts that could not be created.",
	})

	ImageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_failures_total",
		Help:      "Image attachments that could not be built, by reason.",
	}, []string{"reason"})

	CrawlCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycles_total",
		Help:      "Worker cycles, by worker and status.",
	}, []string{"worker", "status"})

	PostsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "posts_fetched_total",
		Help:      "Posts returned by searches, by topic or category crawl.",
	}, []string{"topic"})

	SearchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "search_failures_total",
		Help:      "Search queries that failed and were skipped.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
