package worker

import (
	"context"
	"log/slog"
	"time"

	"sidehug/internal/dispatch"
)

// MentionPoller answers new mentions on a fixed interval.
type MentionPoller struct {
	Dispatcher *dispatch.Dispatcher
	Auth       Reauthenticator
	Interval   time.Duration
	Jitter     float64
}

func (w *MentionPoller) Start(ctx context.Context) error {
	if w.Interval <= 0 {
		w.Interval = 30 * time.Second
	}
	loop := &Loop{
		Name:     "mention-poller",
		Interval: w.Interval,
		Jitter:   w.Jitter,
		Auth:     w.Auth,
		Cycle:    w.runOnce,
	}
	slog.Info("mention-poller: started", "interval", w.Interval)
	return loop.Start(ctx)
}

func (w *MentionPoller) runOnce(ctx context.Context, log *slog.Logger) error {
	st, err := w.Dispatcher.RunCycle(ctx)
	if st.Mentions > 0 {
		log.Info("mention-poller: cycle finished",
			"mentions", st.Mentions,
			"completed", st.Completed,
			"replies", st.Replies,
			"reply_failures", st.Failures,
		)
	}
	return err
}
