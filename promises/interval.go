package promises

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/sarchlab/vclock/timing"
)

// ErrTicksClosed is returned by Next after the sequence was closed by its
// consumer.
var ErrTicksClosed = errors.New("interval closed")

// Ticks is a lazy sequence of interval firings. The firing side drops a
// notification into a one-slot mailbox; Next takes it out. Firings that
// happen while the mailbox is full are merged into the pending one.
type Ticks struct {
	mu            sync.Mutex
	ctx           context.Context
	scheduler     Scheduler
	timer         *timing.Timer
	stopListening func() bool
	interval      timing.VTimeInMs
	last          timing.VTimeInMs

	pending bool
	aborted bool
	cause   error
	closed  bool
	wake    chan struct{}
}

// Interval starts a repeating timer on s and returns the sequence of its
// firings. Every value is the previous one plus interval, starting from the
// clock's time when Interval is called.
//
// If ctx is already done, the first Next fails with a *timing.AbortError and
// no timer is created. If ctx is done later, the next Next fails with an
// AbortError, and the sequence stops.
func Interval(
	ctx context.Context,
	s Scheduler,
	interval timing.VTimeInMs,
) *Ticks {
	it := &Ticks{
		scheduler: s,
		interval:  interval,
		wake:      make(chan struct{}, 1),
	}

	if ctx == nil {
		it.aborted = true
		it.cause = fmt.Errorf("%w: nil context", timing.ErrInvalidArgument)

		return it
	}

	if ctx.Err() != nil {
		it.aborted = true
		it.cause = context.Cause(ctx)

		return it
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	it.ctx = ctx
	it.last = s.Now()
	it.timer = s.CreateTimer(true, func(...any) { it.notify() }, interval)
	it.stopListening = context.AfterFunc(ctx, func() {
		it.abort(context.Cause(ctx))
	})

	return it
}

func (it *Ticks) notify() {
	it.mu.Lock()
	if it.closed || it.aborted {
		it.mu.Unlock()
		return
	}
	if it.ctx.Err() != nil {
		it.markAborted()
		it.mu.Unlock()
		it.scheduler.CancelTimer(it.timer)
		it.signal()

		return
	}
	it.pending = true
	it.mu.Unlock()

	it.signal()
}

func (it *Ticks) abort(cause error) {
	it.mu.Lock()
	if it.closed || it.aborted {
		it.mu.Unlock()
		return
	}
	it.aborted = true
	it.cause = cause
	it.mu.Unlock()

	it.scheduler.CancelTimer(it.timer)
	it.signal()
}

// markAborted records the context's cause. The caller holds mu.
func (it *Ticks) markAborted() {
	it.aborted = true
	it.pending = false
	it.cause = context.Cause(it.ctx)
}

func (it *Ticks) signal() {
	select {
	case it.wake <- struct{}{}:
	default:
	}
}

// Next blocks until the interval fires again and returns the tick time. It
// fails with a *timing.AbortError once the context is done, and with
// ErrTicksClosed after Close.
func (it *Ticks) Next() (timing.VTimeInMs, error) {
	for {
		it.mu.Lock()

		if !it.aborted && !it.closed && it.ctx != nil && it.ctx.Err() != nil {
			it.markAborted()
		}

		switch {
		case it.aborted:
			cause := it.cause
			it.mu.Unlock()
			it.Close()

			if errors.Is(cause, timing.ErrInvalidArgument) {
				return 0, cause
			}

			return 0, timing.NewAbortError(cause)
		case it.closed:
			it.mu.Unlock()
			return 0, ErrTicksClosed
		case it.pending:
			it.pending = false
			it.last += it.interval
			v := it.last
			it.mu.Unlock()

			return v, nil
		}

		it.mu.Unlock()
		<-it.wake
	}
}

// All returns the sequence as an iterator. The iteration stops after the
// first error; breaking out of the loop closes the sequence.
func (it *Ticks) All() iter.Seq2[timing.VTimeInMs, error] {
	return func(yield func(timing.VTimeInMs, error) bool) {
		defer it.Close()

		for {
			v, err := it.Next()
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// Close stops the underlying timer and detaches from the context. It is safe
// to call more than once.
func (it *Ticks) Close() {
	it.mu.Lock()
	if it.closed {
		it.mu.Unlock()
		return
	}
	it.closed = true
	timer := it.timer
	stop := it.stopListening
	it.mu.Unlock()

	if timer != nil {
		it.scheduler.CancelTimer(timer)
	}

	if stop != nil {
		stop()
	}

	it.signal()
}
