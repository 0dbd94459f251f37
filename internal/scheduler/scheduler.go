// Package scheduler decides when the update loop runs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/wait"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
)

// DefaultInitialDelay lets the rest of the process settle before the first tick.
const DefaultInitialDelay = time.Second

// Scheduler runs a tick function after an initial delay and then at a fixed
// interval. The interval is measured from the end of one tick to the start of
// the next, so ticks never overlap.
type Scheduler struct {
	Log          logr.Logger
	InitialDelay time.Duration
	Interval     time.Duration

	lastRun atomic.Int64 // unix nanoseconds of the last finished tick
}

// Run blocks until ctx is done. It returns nil on cancellation.
func (s *Scheduler) Run(ctx context.Context, tick func(context.Context)) error {
	if s.Interval <= 0 {
		return fmt.Errorf("scheduler: interval must be positive, got %s", s.Interval)
	}
	if s.InitialDelay < 0 {
		return fmt.Errorf("scheduler: initial delay cannot be negative, got %s", s.InitialDelay)
	}

	s.Log.Info("scheduler started", "initialDelay", s.InitialDelay, "interval", s.Interval)
	defer s.Log.Info("scheduler stopped")

	timer := time.NewTimer(s.InitialDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return nil
	case <-timer.C:
	}

	wait.UntilWithContext(ctx, func(ctx context.Context) {
		tick(ctx)
		s.lastRun.Store(time.Now().UnixNano())
		if ctx.Err() == nil {
			s.Log.Info("waiting till next update", "seconds", s.Interval.Seconds())
		}
	}, s.Interval)
	return nil
}

// LastRun returns when the last tick finished, or the zero time.
func (s *Scheduler) LastRun() time.Time {
	n := s.lastRun.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Checker reports ready once the first tick has finished.
func (s *Scheduler) Checker() healthz.Checker {
	return func(*http.Request) error {
		if s.LastRun().IsZero() {
			return errors.New("no update has run yet")
		}
		return nil
	}
}
