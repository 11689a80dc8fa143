package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sidehug/internal/model"
)

func TestNextDelayDoublesUpToCap(t *testing.T) {
	l := &Loop{Interval: time.Second}
	want := []time.Duration{1, 2, 4, 8, 8, 8}
	for failures, w := range want {
		assert.Equal(t, w*time.Second, l.nextDelay(failures), "failures=%d", failures)
	}

	l.MaxBackoff = 4
	assert.Equal(t, 4*time.Second, l.nextDelay(10))
}

func TestNextDelayJitter(t *testing.T) {
	l := &Loop{Interval: 10 * time.Second, Jitter: 0.1}
	l.rand = func() float64 { return 0 }
	assert.Equal(t, 9*time.Second, l.nextDelay(0))
	l.rand = func() float64 { return 1 }
	assert.Equal(t, 11*time.Second, l.nextDelay(0))
	l.rand = func() float64 { return 0.5 }
	assert.Equal(t, 80*time.Second, l.nextDelay(3))
}

type countingAuth struct{ n int32 }

func (a *countingAuth) Reauthenticate(context.Context) error {
	atomic.AddInt32(&a.n, 1)
	return nil
}

func TestLoopSurvivesPanicAndReauthenticates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	auth := &countingAuth{}
	var calls int32
	l := &Loop{
		Name:     "test",
		Interval: time.Millisecond,
		Auth:     auth,
		Cycle: func(ctx context.Context, _ *slog.Logger) error {
			switch atomic.AddInt32(&calls, 1) {
			case 1:
				panic("boom")
			case 2:
				return fmt.Errorf("list notifications: %w", model.ErrAuth)
			case 3:
				return errors.New("transient")
			default:
				cancel()
				return nil
			}
		},
	}

	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&auth.n))
}

func TestLoopRejectsZeroInterval(t *testing.T) {
	assert.Error(t, (&Loop{Name: "x"}).Start(context.Background()))
}

type stubWorker struct {
	err     error
	stopped chan struct{}
}

func (s *stubWorker) Start(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	close(s.stopped)
	return nil
}

func TestManagerStopsAllWhenOneFails(t *testing.T) {
	healthy := &stubWorker{stopped: make(chan struct{})}
	failing := &stubWorker{err: errors.New("bind: address in use")}

	err := NewManager(healthy, failing).Start(context.Background())
	require.EqualError(t, err, "bind: address in use")
	select {
	case <-healthy.stopped:
	default:
		t.Fatal("healthy worker was not stopped")
	}
}

func TestManagerWaitsForWorkers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &stubWorker{stopped: make(chan struct{})}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	require.NoError(t, NewManager(w).Start(ctx))
	select {
	case <-w.stopped:
	default:
		t.Fatal("manager returned before worker stopped")
	}
}
