package timing

import "github.com/sarchlab/vclock/idgen"

// A Timer is one scheduled callback. It belongs to the clock's queue from
// creation until it fires (one-shot timers) or is cancelled.
type Timer struct {
	id        idgen.ID
	callback  Callback
	runAt     VTimeInMs
	interval  VTimeInMs
	repeating bool
	args      []any

	// index is the position in the timer heap, -1 when not queued.
	index int
	clock *Clock
}

// ID returns the id the timer was created with.
func (t *Timer) ID() idgen.ID {
	return t.id
}

// RunAt returns the virtual time at which the timer is due next.
func (t *Timer) RunAt() VTimeInMs {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	return t.runAt
}

// Interval returns the delay the timer was created with. Repeating timers are
// rescheduled by this amount every time they fire.
func (t *Timer) Interval() VTimeInMs {
	return t.interval
}

// IsRepeating tells if the timer is rescheduled after firing.
func (t *Timer) IsRepeating() bool {
	return t.repeating
}

// Args returns the arguments forwarded to the callback.
func (t *Timer) Args() []any {
	return t.args
}

// Pending tells if the timer is still queued.
func (t *Timer) Pending() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	return t.index >= 0
}

// Stop cancels the timer. It returns false if the timer has already fired or
// was already cancelled.
func (t *Timer) Stop() bool {
	return t.clock.CancelTimer(t)
}

// before orders timers by due time, then by creation order.
func (t *Timer) before(other *Timer) bool {
	if t.runAt != other.runAt {
		return t.runAt < other.runAt
	}

	return t.id < other.id
}
