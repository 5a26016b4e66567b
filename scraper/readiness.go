package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
)

// pollInterval is how often the idle predicate is re-checked.
const pollInterval = 100 * time.Millisecond

// Readiness decides when a loaded page is worth extracting from: Selector
// is present and no request has started for NetworkIdle. MaxWait bounds the
// whole wait; when it elapses the page is used as it is.
type Readiness struct {
	Selector    string
	NetworkIdle time.Duration
	MaxWait     time.Duration
}

// Wait blocks until the page is ready or MaxWait elapses. It reports
// whether the page became ready in time.
func (r Readiness) Wait(ctx context.Context, page *rod.Page, lastActivity func() time.Time) bool {
	findSelector := func(ctx context.Context) error {
		_, err := page.Context(ctx).Element(r.Selector)
		return err
	}
	return r.wait(ctx, findSelector, lastActivity)
}

func (r Readiness) wait(ctx context.Context, findSelector func(context.Context) error, lastActivity func() time.Time) bool {
	deadline := time.Now().Add(r.MaxWait)

	if r.Selector != "" {
		selCtx, cancel := context.WithDeadline(ctx, deadline)
		err := findSelector(selCtx)
		cancel()
		if err != nil {
			slog.Debug("readiness: selector not found, proceeding",
				"selector", r.Selector, "error", err)
			return false
		}
	}

	remaining := time.Until(deadline)
	if remaining <= 0 {
		return false
	}
	return waitQuiet(ctx, time.Now, sleepCtx, lastActivity, r.NetworkIdle, remaining, pollInterval)
}

// waitQuiet polls until lastActivity is at least idle in the past, giving
// up after maxWait or when ctx ends. now and sleep are injected so the
// predicate can run against a fake clock.
func waitQuiet(
	ctx context.Context,
	now func() time.Time,
	sleep func(context.Context, time.Duration) error,
	lastActivity func() time.Time,
	idle, maxWait, poll time.Duration,
) bool {
	deadline := now().Add(maxWait)
	for {
		t := now()
		if t.Sub(lastActivity()) >= idle {
			return true
		}
		if !t.Before(deadline) {
			return false
		}
		step := poll
		if left := deadline.Sub(t); left < step {
			step = left
		}
		if err := sleep(ctx, step); err != nil {
			return false
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
