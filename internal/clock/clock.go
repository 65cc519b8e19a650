// Package clock abstracts the time source behind the login screen clock.
// Production code uses Real(); tests drive Fake() by hand.
package clock

import (
	"context"
	"time"
)

type Clock interface {
	Now() time.Time
	// NewTicker panics if d <= 0, like time.NewTicker.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers ticks on C, dropping them when the reader falls behind.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop does not close C.
func (t *Ticker) Stop() { t.stopFunc() }

func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) *Ticker {
	t := time.NewTicker(d)
	return &Ticker{C: t.C, stopFunc: t.Stop}
}

// Face is the formatted clock the UI shows.
type Face struct {
	Time string `json:"time"`
	Date string `json:"date"`
}

func Format(t time.Time, timeLayout, dateLayout string) Face {
	return Face{Time: t.Format(timeLayout), Date: t.Format(dateLayout)}
}

// Run calls update with the current face right away and then once a
// second until ctx is done.
func Run(ctx context.Context, clk Clock, timeLayout, dateLayout string, update func(Face)) {
	update(Format(clk.Now(), timeLayout, dateLayout))

	t := clk.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			update(Format(now, timeLayout, dateLayout))
		}
	}
}
