package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"sidehug/internal/metrics"
	"sidehug/internal/model"
)

// Reauthenticator restores a rejected session.
type Reauthenticator interface {
	Reauthenticate(ctx context.Context) error
}

// CycleFunc runs one cycle. log carries the worker name and cycle id.
type CycleFunc func(ctx context.Context, log *slog.Logger) error

// Loop runs Cycle immediately and then every Interval. The delay is spread by
// ±Jitter (a fraction of the delay) and doubles after each consecutive failed
// cycle up to MaxBackoff times the interval. A panicking cycle counts as a
// failure and does not stop the loop.
type Loop struct {
	Name       string
	Interval   time.Duration
	Jitter     float64
	MaxBackoff int
	Cycle      CycleFunc
	Auth       Reauthenticator // optional, called when a cycle fails with model.ErrAuth

	rand func() float64
}

func (l *Loop) Start(ctx context.Context) error {
	if l.Interval <= 0 {
		return fmt.Errorf("%s: interval must be positive", l.Name)
	}
	if l.rand == nil {
		l.rand = rand.Float64
	}
	failures := 0
	for {
		err := l.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			failures++
			if errors.Is(err, model.ErrAuth) && l.Auth != nil {
				if rerr := l.Auth.Reauthenticate(ctx); rerr != nil {
					slog.Error(l.Name+": reauthentication failed", "error", rerr)
				} else {
					slog.Info(l.Name + ": session restored")
				}
			}
		} else {
			failures = 0
		}
		delay := l.nextDelay(failures)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (l *Loop) runOnce(ctx context.Context) (err error) {
	log := slog.With("worker", l.Name, "cycle_id", uuid.NewString())
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", l.Name, r)
		}
		status := "ok"
		switch {
		case err != nil && ctx.Err() != nil:
			status = "cancelled"
		case err != nil:
			status = "error"
			log.Error(l.Name+": cycle failed", "error", err, "duration", time.Since(start))
		default:
			log.Debug(l.Name+": cycle done", "duration", time.Since(start))
		}
		metrics.CrawlCycles.WithLabelValues(l.Name, status).Inc()
	}()
	return l.Cycle(ctx, log)
}

// nextDelay is Interval * 2^failures, capped at MaxBackoff (default 8) times
// the interval, with jitter applied.
func (l *Loop) nextDelay(failures int) time.Duration {
	maxMult := l.MaxBackoff
	if maxMult <= 0 {
		maxMult = 8
	}
	mult := 1
	for i := 0; i < failures && mult < maxMult; i++ {
		mult *= 2
	}
	if mult > maxMult {
		mult = maxMult
	}
	d := l.Interval * time.Duration(mult)
	if l.Jitter > 0 {
		r := 0.5
		if l.rand != nil {
			r = l.rand()
		}
		d = time.Duration(float64(d) * (1 + l.Jitter*(2*r-1)))
	}
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}
