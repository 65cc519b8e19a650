package greeter

import (
	"context"
	"sync"

	"github.com/hnrobert/lumgreet/internal/logger"
)

const defaultLoopBuffer = 256

type event struct {
	fn   func()
	done chan struct{}
}

// Loop is the greeter's single cooperative event loop. Every Controller
// call goes through it; handlers run to completion one at a time.
type Loop struct {
	events    chan event
	quit      chan struct{}
	once      sync.Once
	afterEach func()
}

func NewLoop() *Loop {
	return &Loop{
		events: make(chan event, defaultLoopBuffer),
		quit:   make(chan struct{}),
	}
}

// Post queues fn without waiting for it. It reports false once the loop has
// stopped. Must not be called from inside a handler when the queue may be
// full.
func (l *Loop) Post(fn func()) bool {
	return l.post(event{fn: fn})
}

func (l *Loop) post(ev event) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.events <- ev:
		return true
	case <-l.quit:
		return false
	}
}

// Call runs fn on the loop and waits for it, and the after-each hook, to
// finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.post(event{fn: fn, done: done}) {
		return ErrLoopStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.quit:
		select {
		case <-done:
			return nil
		default:
			return ErrLoopStopped
		}
	}
}

// Run processes events until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.quit:
			return nil
		case ev := <-l.events:
			l.dispatch(ev)
		}
	}
}

func (l *Loop) Stop() {
	l.once.Do(func() { close(l.quit) })
}

// Done is closed once the loop stops.
func (l *Loop) Done() <-chan struct{} { return l.quit }

// SetAfterEach registers fn to run on the loop after every handler. It
// must be called before Run.
func (l *Loop) SetAfterEach(fn func()) { l.afterEach = fn }

func (l *Loop) dispatch(ev event) {
	safely(ev.fn)
	if l.afterEach != nil {
		safely(l.afterEach)
	}
	if ev.done != nil {
		close(ev.done)
	}
}

func safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panic: %v", r)
		}
	}()
	fn()
}
