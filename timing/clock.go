package timing

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/sarchlab/vclock/idgen"
	"github.com/sarchlab/vclock/instrumentation/hooking"
)

// An Installer binds the mocked implementation of a facility into a host and
// later restores the original binding.
type Installer interface {
	// Install replaces the host's implementation of f with the mocked one.
	Install(f Facility) error

	// Uninstall restores the implementation of f that Install replaced.
	Uninstall(f Facility)
}

// A Clock is a manually advanced virtual clock. Timers only fire when the
// owner calls Tick, SetTime or RunAll.
//
// A Clock is either disabled or enabled. Enable starts a session at a given
// virtual time and asks the Installer to bind the chosen facilities; Reset
// ends the session, restores the bindings and discards all pending timers.
type Clock struct {
	*hooking.HookableBase

	mu         sync.Mutex
	installer  Installer
	enabled    bool
	now        VTimeInMs
	facilities []Facility
	session    string
	ids        idgen.Generator
	queue      *timerQueue
}

// Enable starts a session. A nil facilities slice selects all facilities.
//
// now is the starting virtual time. It may be nil (time 0), a non-negative
// integer of any Go integer type, an integral non-negative float, or a
// clock-reading value such as time.Time, whose Unix milliseconds are used.
func (c *Clock) Enable(facilities []Facility, now any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.enabled {
		return fmt.Errorf("%w: clock is already enabled", ErrInvalidState)
	}

	if facilities == nil {
		facilities = AllFacilities()
	}

	fs, err := normalizeFacilities(facilities)
	if err != nil {
		return err
	}

	start, err := startTime(now)
	if err != nil {
		return err
	}

	if err := c.installAll(fs); err != nil {
		return err
	}

	c.enabled = true
	c.now = start
	c.facilities = fs
	c.session = idgen.NewSessionID()
	c.ids = idgen.New()
	c.queue.Clear()

	return nil
}

func (c *Clock) installAll(fs []Facility) error {
	for i, f := range fs {
		err := c.installer.Install(f)
		if err == nil {
			continue
		}

		for j := i - 1; j >= 0; j-- {
			c.installer.Uninstall(fs[j])
		}

		return fmt.Errorf("installing %s: %w", f, err)
	}

	return nil
}

func startTime(now any) (VTimeInMs, error) {
	switch v := now.(type) {
	case nil:
		return 0, nil
	case VTimeInMs:
		return nonNegative(int64(v))
	case int:
		return nonNegative(int64(v))
	case int8:
		return nonNegative(int64(v))
	case int16:
		return nonNegative(int64(v))
	case int32:
		return nonNegative(int64(v))
	case int64:
		return nonNegative(v)
	case uint:
		return fromUnsigned(uint64(v))
	case uint8:
		return fromUnsigned(uint64(v))
	case uint16:
		return fromUnsigned(uint64(v))
	case uint32:
		return fromUnsigned(uint64(v))
	case uint64:
		return fromUnsigned(v)
	case float32:
		return fromFloat(float64(v))
	case float64:
		return fromFloat(v)
	case interface{ UnixMilli() int64 }:
		return VTimeInMs(v.UnixMilli()), nil
	default:
		return 0, fmt.Errorf(
			"%w: now must be a number or a clock reading, got %T",
			ErrInvalidArgument, now,
		)
	}
}

func nonNegative(v int64) (VTimeInMs, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: now must be >= 0, got %d", ErrInvalidArgument, v)
	}

	return VTimeInMs(v), nil
}

func fromUnsigned(v uint64) (VTimeInMs, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: now %d overflows virtual time", ErrInvalidArgument, v)
	}

	return VTimeInMs(v), nil
}

func fromFloat(v float64) (VTimeInMs, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: now must be a number, got %v", ErrInvalidArgument, v)
	}

	if v != math.Trunc(v) || v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: now must be an integer, got %v", ErrInvalidArgument, v)
	}

	return nonNegative(int64(v))
}

// Reset ends the session: the installed facilities are restored, pending
// timers are dropped without firing and the time goes back to 0. Reset on a
// disabled clock does nothing.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}

	for i := len(c.facilities) - 1; i >= 0; i-- {
		c.installer.Uninstall(c.facilities[i])
	}

	c.enabled = false
	c.facilities = nil
	c.now = 0
	c.session = ""
	c.queue.Clear()
}

// CreateTimer schedules cb to run delay after the current virtual time. A
// repeating timer is rescheduled every delay after it fires. Negative delays
// are treated as 0.
//
// CreateTimer works whether or not the clock is enabled; the mocked host
// bindings are what make it reachable only during a session.
func (c *Clock) CreateTimer(
	repeating bool,
	cb Callback,
	delay VTimeInMs,
	args ...any,
) *Timer {
	if cb == nil {
		panic("timing: cannot create a timer without a callback")
	}

	if delay < 0 {
		delay = 0
	}

	c.mu.Lock()
	t := &Timer{
		id:        c.ids.Generate(),
		callback:  cb,
		runAt:     addSaturating(c.now, delay),
		interval:  delay,
		repeating: repeating,
		args:      args,
		index:     -1,
		clock:     c,
	}
	c.queue.Push(t)
	c.mu.Unlock()

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosTimerCreated,
		Item:   t,
	})

	return t
}

// CancelTimer removes t from the queue. Cancelling a timer that has fired or
// was already cancelled is a no-op that returns false.
func (c *Clock) CancelTimer(t *Timer) bool {
	if t == nil || t.clock != c {
		return false
	}

	c.mu.Lock()
	removed := c.queue.Remove(t)
	c.mu.Unlock()

	if removed {
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosTimerCanceled,
			Item:   t,
		})
	}

	return removed
}

// Tick advances the virtual time by elapsed and fires the timers that became
// due, in (due time, creation order) order.
//
// One-shot timers are fired in a batch. Once a repeating timer fires, it is
// rescheduled and Tick returns, leaving any other due timer for the next call.
func (c *Clock) Tick(elapsed VTimeInMs) error {
	c.mu.Lock()

	if err := c.mustBeEnabled("tick"); err != nil {
		c.mu.Unlock()
		return err
	}

	if elapsed < 0 {
		c.mu.Unlock()
		return fmt.Errorf(
			"%w: elapsed time must be >= 0, got %d", ErrInvalidArgument, elapsed,
		)
	}

	if elapsed > MaxVTime-c.now {
		c.mu.Unlock()
		return fmt.Errorf(
			"%w: ticking %d ms from %d overflows the virtual time",
			ErrInvalidArgument, elapsed, c.now,
		)
	}

	c.advanceAndFire(elapsed)

	return nil
}

// SetTime moves the virtual time to target. Moving backward fires nothing;
// moving forward behaves exactly like a Tick over the difference.
func (c *Clock) SetTime(target VTimeInMs) error {
	c.mu.Lock()

	if err := c.mustBeEnabled("set time"); err != nil {
		c.mu.Unlock()
		return err
	}

	if target < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: time must be >= 0, got %d", ErrInvalidArgument, target)
	}

	if target < c.now {
		c.now = target
		c.mu.Unlock()

		return nil
	}

	c.advanceAndFire(target - c.now)

	return nil
}

// RunAll ticks up to the due time of the timer that is due last. Because a
// repeating timer ends a tick, a single RunAll may leave timers pending.
func (c *Clock) RunAll() error {
	c.mu.Lock()

	if err := c.mustBeEnabled("run all"); err != nil {
		c.mu.Unlock()
		return err
	}

	last := c.queue.PeekMax()
	if last == nil {
		c.mu.Unlock()
		return nil
	}

	elapsed := last.runAt - c.now
	if elapsed < 0 {
		elapsed = 0
	}

	c.advanceAndFire(elapsed)

	return nil
}

func (c *Clock) mustBeEnabled(op string) error {
	if !c.enabled {
		return fmt.Errorf("%w: cannot %s, clock is not enabled", ErrInvalidState, op)
	}

	return nil
}

// advanceAndFire must be called with c.mu held. It releases the lock before
// running any callback.
func (c *Clock) advanceAndFire(elapsed VTimeInMs) {
	c.now += elapsed

	for {
		t := c.queue.Peek()
		if t == nil || t.runAt > c.now {
			c.mu.Unlock()
			return
		}

		c.queue.Pop()
		info := FireInfo{Now: c.now, ScheduledAt: t.runAt}

		if t.repeating {
			t.runAt = addSaturating(t.runAt, t.interval)
			c.queue.Push(t)
		}

		c.mu.Unlock()
		c.fire(t, info)

		if t.repeating {
			return
		}

		c.mu.Lock()
	}
}

func (c *Clock) fire(t *Timer, info FireInfo) {
	hookCtx := hooking.HookCtx{
		Domain: c,
		Pos:    HookPosBeforeFire,
		Item:   t,
		Detail: info,
	}
	c.InvokeHook(hookCtx)

	t.callback(t.args...)

	hookCtx.Pos = HookPosAfterFire
	c.InvokeHook(hookCtx)
}

// Now returns the current virtual time.
func (c *Clock) Now() VTimeInMs {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Enabled tells if a session is active.
func (c *Clock) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.enabled
}

// Facilities returns the facilities installed by the active session.
func (c *Clock) Facilities() []Facility {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.facilities)
}

// Session returns the id of the active session, or "" when disabled.
func (c *Clock) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session
}

// Timers returns the queued timers in firing order.
func (c *Clock) Timers() []*Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	timers := []*Timer(slices.Clone(c.queue.timers))
	slices.SortFunc(timers, func(a, b *Timer) int {
		switch {
		case a.before(b):
			return -1
		case b.before(a):
			return 1
		default:
			return 0
		}
	})

	return timers
}

// Pending returns the number of queued timers.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.queue.Len()
}
