// Package host holds the timer functions a program schedules work through.
// Production code calls a Host bound to Go's time package; tests hand the
// same Host to a Switchboard, which swaps individual facilities for mocked
// ones and puts the originals back afterwards.
package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/sarchlab/vclock/datemock"
	"github.com/sarchlab/vclock/timing"
)

// Handle identifies a scheduled callback so that it can be cleared. Both
// *time.Timer and *timing.Timer are Handles.
type Handle interface {
	Stop() bool
}

// Future is the outcome of an asynchronous delay.
type Future interface {
	Await() (any, error)
	Done() <-chan struct{}
}

// TickStream is a pull-based sequence of interval ticks.
type TickStream interface {
	Next() (timing.VTimeInMs, error)
	Close()
}

// TimeoutFuncs is the delayed-callback facility.
type TimeoutFuncs struct {
	SetTimeout   func(f timing.Callback, delay timing.VTimeInMs, args ...any) Handle
	ClearTimeout func(h Handle)
	// After resolves with value once delay has elapsed. A nil ctx is rejected
	// with timing.ErrInvalidArgument. When value is nil the mocked binding
	// resolves with the timer id, while the real one resolves with nil.
	After        func(ctx context.Context, delay timing.VTimeInMs, value any) Future
}

// IntervalFuncs is the repeating-callback facility.
type IntervalFuncs struct {
	SetInterval   func(f timing.Callback, interval timing.VTimeInMs, args ...any) Handle
	ClearInterval func(h Handle)
	Interval      func(ctx context.Context, interval timing.VTimeInMs) TickStream
}

// Bindings is one implementation of every facility.
type Bindings struct {
	Timeout  TimeoutFuncs
	Interval IntervalFuncs
	Date     datemock.Source
}

// A Host dispatches calls to its current bindings. It is safe for concurrent
// use.
type Host struct {
	mu         sync.RWMutex
	bindings   Bindings
	overridden map[timing.Facility]bool
}

// New creates a Host with the given bindings.
func New(b Bindings) *Host {
	return &Host{
		bindings:   b,
		overridden: make(map[timing.Facility]bool),
	}
}

// Real creates a Host bound to Go's time package.
func Real(opts ...datemock.Option) *Host {
	return New(RealBindings(opts...))
}

// Snapshot returns the bindings currently in effect.
func (h *Host) Snapshot() Bindings {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.bindings
}

// SetTimeout calls f with args once delay has elapsed.
func (h *Host) SetTimeout(f timing.Callback, delay timing.VTimeInMs, args ...any) Handle {
	return h.Snapshot().Timeout.SetTimeout(f, delay, args...)
}

// ClearTimeout cancels a callback scheduled with SetTimeout.
func (h *Host) ClearTimeout(handle Handle) {
	h.Snapshot().Timeout.ClearTimeout(handle)
}

// After returns a Future resolving with value once delay has elapsed.
func (h *Host) After(ctx context.Context, delay timing.VTimeInMs, value any) Future {
	return h.Snapshot().Timeout.After(ctx, delay, value)
}

// SetInterval calls f with args every interval.
func (h *Host) SetInterval(f timing.Callback, interval timing.VTimeInMs, args ...any) Handle {
	return h.Snapshot().Interval.SetInterval(f, interval, args...)
}

// ClearInterval cancels a callback scheduled with SetInterval.
func (h *Host) ClearInterval(handle Handle) {
	h.Snapshot().Interval.ClearInterval(handle)
}

// Interval returns the ticks of a new interval.
func (h *Host) Interval(ctx context.Context, interval timing.VTimeInMs) TickStream {
	return h.Snapshot().Interval.Interval(ctx, interval)
}

// Date returns the clock-reading source.
func (h *Host) Date() datemock.Source {
	return h.Snapshot().Date
}

// override binds the f part of b and returns the f part it replaced.
func (h *Host) override(f timing.Facility, b Bindings) (Bindings, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.overridden[f] {
		return Bindings{}, fmt.Errorf("%w: %s is already overridden", timing.ErrInvalidState, f)
	}

	previous, err := h.exchange(f, b)
	if err != nil {
		return Bindings{}, err
	}

	h.overridden[f] = true

	return previous, nil
}

// restore puts back the f part of previous.
func (h *Host) restore(f timing.Facility, previous Bindings) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.exchange(f, previous); err != nil {
		return
	}

	delete(h.overridden, f)
}

func (h *Host) exchange(f timing.Facility, b Bindings) (Bindings, error) {
	var previous Bindings

	switch f {
	case timing.DelayedCallback:
		previous.Timeout, h.bindings.Timeout = h.bindings.Timeout, b.Timeout
	case timing.RepeatingCallback:
		previous.Interval, h.bindings.Interval = h.bindings.Interval, b.Interval
	case timing.ClockReading:
		previous.Date, h.bindings.Date = h.bindings.Date, b.Date
	default:
		return Bindings{}, fmt.Errorf("%w: facility %q is not supported", timing.ErrInvalidArgument, f)
	}

	return previous, nil
}
