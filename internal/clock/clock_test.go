package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, time.March, 2, 9, 5, 0, 0, time.UTC)

func TestFormat(t *testing.T) {
	f := Format(epoch, "15:04", "Monday, 02. January")
	assert.Equal(t, Face{Time: "09:05", Date: "Monday, 02. March"}, f)
}

func TestFakeTicker(t *testing.T) {
	c := Fake(epoch)
	tk := c.NewTicker(time.Second)

	c.Advance(500 * time.Millisecond)
	select {
	case <-tk.C:
		t.Fatal("ticked early")
	default:
	}

	c.Advance(500 * time.Millisecond)
	assert.Equal(t, epoch.Add(time.Second), <-tk.C)

	// Several intervals at once: the buffer keeps only the first.
	c.Advance(3 * time.Second)
	assert.Equal(t, epoch.Add(2*time.Second), <-tk.C)
	select {
	case <-tk.C:
		t.Fatal("dropped ticks must not queue")
	default:
	}

	tk.Stop()
	c.Advance(time.Minute)
	select {
	case <-tk.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFakeTickerPanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { Fake(epoch).NewTicker(0) })
}

func TestRun(t *testing.T) {
	c := Fake(epoch)
	faces := make(chan Face, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(ctx, c, "15:04:05", "2006-01-02", func(f Face) { faces <- f })
	}()

	assert.Equal(t, Face{Time: "09:05:00", Date: "2026-03-02"}, <-faces)
	c.WaitForTickers(1)
	c.Advance(time.Second)
	assert.Equal(t, Face{Time: "09:05:01", Date: "2026-03-02"}, <-faces)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "Run did not return")
	}
}

func TestRealClock(t *testing.T) {
	c := Real()
	assert.WithinDuration(t, time.Now(), c.Now(), time.Second)
	tk := c.NewTicker(time.Hour)
	tk.Stop()
}
