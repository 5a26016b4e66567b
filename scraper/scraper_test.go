package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"

	"github.com/use-agent/vesselscout/extract"
	"github.com/use-agent/vesselscout/models"
)

// fakeClock advances only when sleep is called.
type fakeClock struct {
	t      time.Time
	sleeps int
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps++
	c.t = c.t.Add(d)
	return nil
}

func TestWaitQuietAlreadyIdle(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	last := clk.t.Add(-2 * time.Second)

	ok := waitQuiet(context.Background(), clk.now, clk.sleep,
		func() time.Time { return last }, time.Second, 10*time.Second, 100*time.Millisecond)

	assert.True(t, ok)
	assert.Zero(t, clk.sleeps)
}

func TestWaitQuietBecomesIdle(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	start := clk.t

	// Requests keep arriving for the first 500ms.
	last := func() time.Time {
		if clk.t.Sub(start) < 500*time.Millisecond {
			return clk.t
		}
		return start.Add(500 * time.Millisecond)
	}

	ok := waitQuiet(context.Background(), clk.now, clk.sleep, last,
		time.Second, 10*time.Second, 100*time.Millisecond)

	assert.True(t, ok)
	assert.Equal(t, 1500*time.Millisecond, clk.t.Sub(start))
}

func TestWaitQuietGivesUpAtBound(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	start := clk.t

	ok := waitQuiet(context.Background(), clk.now, clk.sleep,
		clk.now, time.Second, 2*time.Second, 300*time.Millisecond)

	assert.False(t, ok)
	assert.Equal(t, 2*time.Second, clk.t.Sub(start), "last step is trimmed to the bound")
}

func TestWaitQuietStopsOnCancel(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok := waitQuiet(ctx, clk.now, clk.sleep, clk.now, time.Second, time.Minute, time.Second)

	assert.False(t, ok)
	assert.Zero(t, clk.sleeps)
}

func TestReadinessSelectorWaitIsBoundedAndReleased(t *testing.T) {
	var selCtx context.Context
	r := Readiness{Selector: "h1", NetworkIdle: 0, MaxWait: time.Second}

	ok := r.wait(context.Background(), func(ctx context.Context) error {
		selCtx = ctx
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline, "selector wait is bounded by MaxWait")
		return nil
	}, func() time.Time { return time.Time{} })

	assert.True(t, ok)
	if assert.NotNil(t, selCtx) {
		assert.ErrorIs(t, selCtx.Err(), context.Canceled, "selector deadline is released once found")
	}
}

func TestReadinessMissingSelectorProceeds(t *testing.T) {
	r := Readiness{Selector: ".missing", MaxWait: time.Second}

	ok := r.wait(context.Background(), func(context.Context) error {
		return errors.New("element not found")
	}, func() time.Time { return time.Time{} })
	assert.False(t, ok)
}

func TestIsTrackerDomain(t *testing.T) {
	assert.True(t, isTrackerDomain("www.google-analytics.com"))
	assert.True(t, isTrackerDomain("pagead2.GoogleSyndication.com"))
	assert.False(t, isTrackerDomain("www.marinetraffic.com"))
	assert.False(t, isTrackerDomain("localhost"))
}

func TestCaptureWanted(t *testing.T) {
	c := newCapture(nil, extract.NewNetwork([]string{"position", "vessel"}), []string{"Image", " Font", "Bogus"}, true, 0)

	assert.True(t, c.wanted(proto.NetworkResourceTypeXHR, "https://www.marinetraffic.com/en/vessels/123/position"))
	assert.True(t, c.wanted(proto.NetworkResourceTypeFetch, "https://api.example.com/Vessel/info"))
	assert.False(t, c.wanted(proto.NetworkResourceTypeScript, "https://www.marinetraffic.com/vessel.js"))
	assert.False(t, c.wanted(proto.NetworkResourceTypeXHR, "https://www.marinetraffic.com/en/users/me"))

	assert.Len(t, c.blocked, 2)
	assert.Contains(t, c.blocked, proto.NetworkResourceTypeFont)
}

func TestCaptureActivityAndResponses(t *testing.T) {
	c := newCapture(nil, extract.NewNetwork(nil), nil, false, 0)
	at := time.Unix(2000, 0)
	c.touch(at)
	assert.True(t, c.LastActivity().Equal(at))

	c.add(extract.NetworkResponse{URL: "https://a/position"})
	got := c.Responses()
	got[0].URL = "mutated"
	assert.Equal(t, "https://a/position", c.Responses()[0].URL, "Responses returns a copy")
}

func TestCategorizeError(t *testing.T) {
	assert.Equal(t, models.ErrCodeTimeout, categorizeError(context.DeadlineExceeded, "x").Code)
	assert.Equal(t, models.ErrCodeTimeout, categorizeError(context.Canceled, "x").Code)
	assert.Equal(t, models.ErrCodeNavigation, categorizeError(errors.New("net::ERR_NAME_NOT_RESOLVED"), "x").Code)
}
