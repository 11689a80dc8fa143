package storage

import (
	"context"
	"errors"

	"sidehug/internal/model"
)

// DocumentSink is implemented by every store that accepts crawl documents.
type DocumentSink interface {
	SaveCategoryPosts(ctx context.Context, category string, posts []model.PostRecord) error
	SaveTrendReport(ctx context.Context, report model.TrendReport) error
}

// ReportSource loads stored trend reports.
type ReportSource interface {
	TrendReport(ctx context.Context, topic string) (*model.TrendReport, error)
}

// MultiSink writes every document to all sinks. A failing sink does not
// stop the others; the errors are joined.
type MultiSink []DocumentSink

func (m MultiSink) SaveCategoryPosts(ctx context.Context, category string, posts []model.PostRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.SaveCategoryPosts(ctx, category, posts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) SaveTrendReport(ctx context.Context, report model.TrendReport) error {
	var errs []error
	for _, s := range m {
		if err := s.SaveTrendReport(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
