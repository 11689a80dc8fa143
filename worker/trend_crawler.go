package worker

import (
	"context"
	"log/slog"
	"time"

	"sidehug/internal/digest"
	"sidehug/internal/trend"
)

// TrendCrawler runs the category crawl and trend analysis on a fixed
// interval and optionally renders a markdown digest of the reports.
type TrendCrawler struct {
	Engine   *trend.Engine
	Auth     Reauthenticator
	Interval time.Duration
	Jitter   float64

	DigestDir   string // empty disables the digest
	DigestTitle string
}

func (w *TrendCrawler) Start(ctx context.Context) error {
	if w.Interval <= 0 {
		w.Interval = 5 * time.Minute
	}
	loop := &Loop{
		Name:     "trend-crawler",
		Interval: w.Interval,
		Jitter:   w.Jitter,
		Auth:     w.Auth,
		Cycle:    w.runOnce,
	}
	slog.Info("trend-crawler: started", "interval", w.Interval, "topics", len(w.Engine.Topics), "search_terms", len(w.Engine.SearchTerms))
	return loop.Start(ctx)
}

func (w *TrendCrawler) runOnce(ctx context.Context, log *slog.Logger) error {
	res, err := w.Engine.RunCycle(ctx)
	if err != nil {
		return err
	}
	log.Info("trend-crawler: cycle finished",
		"categories", res.Categories,
		"reports", len(res.Reports),
		"failed_searches", res.FailedSearches,
		"failed_saves", res.FailedSaves,
	)
	if w.DigestDir != "" && len(res.Reports) > 0 {
		title := w.DigestTitle
		if title == "" {
			title = "Bluesky trends {.CurrentDate} {.CurrentTime}"
		}
		path, err := digest.Write(w.DigestDir, digest.FromReports(title, "", res.Reports, time.Now(), 200))
		if err != nil {
			log.Error("trend-crawler: digest failed", "error", err)
		} else {
			log.Info("trend-crawler: digest written", "path", path)
		}
	}
	return nil
}
