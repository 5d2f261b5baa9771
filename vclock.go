// Package vclock replaces a host's timer functions with a virtual clock that
// only moves when the test says so.
//
//	m := vclock.New(h)
//	if err := m.Enable(vclock.WithNow(1000)); err != nil {
//		...
//	}
//	defer m.Reset()
//
//	h.SetTimeout(cb, 50) // h now schedules on the virtual clock
//	m.Tick(50)           // cb runs here
package vclock

import (
	"context"
	"testing"

	"github.com/sarchlab/vclock/datemock"
	"github.com/sarchlab/vclock/host"
	"github.com/sarchlab/vclock/idgen"
	"github.com/sarchlab/vclock/instrumentation/hooking"
	"github.com/sarchlab/vclock/promises"
	"github.com/sarchlab/vclock/timing"
)

// MockTimers installs virtual timers into a Host.
type MockTimers struct {
	clock    *timing.Clock
	date     *datemock.Mock
	bindings host.Bindings
	board    *host.Switchboard
}

// New creates disabled MockTimers for h. The options configure the mocked
// clock-reading source.
func New(h *host.Host, opts ...datemock.Option) *MockTimers {
	m := &MockTimers{}
	m.date = datemock.New(m, opts...)
	m.bindings = m.mockedBindings()
	m.board = host.NewSwitchboard(h, m.bindings)
	m.clock = timing.MakeClockBuilder().
		WithInstaller(m.board).
		Build()

	return m
}

// Use enables MockTimers on h for the duration of a test. The original
// bindings are restored when the test finishes.
func Use(t testing.TB, h *host.Host, opts ...Option) *MockTimers {
	t.Helper()

	m := New(h)
	if err := m.Enable(opts...); err != nil {
		t.Fatalf("vclock: enabling mock timers: %v", err)
	}

	t.Cleanup(m.Reset)

	return m
}

// Enable installs the selected facilities and starts the virtual clock.
func (m *MockTimers) Enable(opts ...Option) error {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}

	if s.err != nil {
		return s.err
	}

	return m.clock.Enable(s.apis, s.now)
}

// Tick advances the virtual time by elapsed milliseconds.
func (m *MockTimers) Tick(elapsed timing.VTimeInMs) error {
	return m.clock.Tick(elapsed)
}

// SetTime moves the virtual time to target.
func (m *MockTimers) SetTime(target timing.VTimeInMs) error {
	return m.clock.SetTime(target)
}

// RunAll advances to the farthest pending timer.
func (m *MockTimers) RunAll() error {
	return m.clock.RunAll()
}

// Reset restores the host's bindings and drops every pending timer.
func (m *MockTimers) Reset() {
	m.clock.Reset()
}

// Now returns the virtual time.
func (m *MockTimers) Now() timing.VTimeInMs {
	return m.clock.Now()
}

// Enabled reports whether a session is active.
func (m *MockTimers) Enabled() bool {
	return m.clock.Enabled()
}

// Session returns the id of the active session.
func (m *MockTimers) Session() string {
	return m.clock.Session()
}

// Clock returns the underlying virtual clock.
func (m *MockTimers) Clock() *timing.Clock {
	return m.clock
}

// Date returns the mocked clock-reading source.
func (m *MockTimers) Date() datemock.Source {
	return m.date
}

// Bindings returns the mocked implementation of every facility.
func (m *MockTimers) Bindings() host.Bindings {
	return m.bindings
}

// AcceptHook attaches a hook to the virtual clock.
func (m *MockTimers) AcceptHook(h hooking.Hook) {
	m.clock.AcceptHook(h)
}

func (m *MockTimers) mockedBindings() host.Bindings {
	return host.Bindings{
		Timeout: host.TimeoutFuncs{
			SetTimeout: func(
				f timing.Callback, delay timing.VTimeInMs, args ...any,
			) host.Handle {
				return m.clock.CreateTimer(false, f, delay, args...)
			},
			ClearTimeout: m.clear,
			After:        m.after,
		},
		Interval: host.IntervalFuncs{
			SetInterval: func(
				f timing.Callback, interval timing.VTimeInMs, args ...any,
			) host.Handle {
				return m.clock.CreateTimer(true, f, interval, args...)
			},
			ClearInterval: m.clear,
			Interval: func(
				ctx context.Context, interval timing.VTimeInMs,
			) host.TickStream {
				return promises.Interval(ctx, m.clock, interval)
			},
		},
		Date: m.date,
	}
}

// clear cancels virtual timers and stops any other handle, such as a real
// timer created before the session started.
func (m *MockTimers) clear(h host.Handle) {
	switch h := h.(type) {
	case nil:
	case *timing.Timer:
		m.clock.CancelTimer(h)
	default:
		h.Stop()
	}
}

// after resolves with value, or with the timer id when value is nil.
func (m *MockTimers) after(
	ctx context.Context,
	delay timing.VTimeInMs,
	value any,
) host.Future {
	return promises.DelayFunc(ctx, m.clock, delay, func(id idgen.ID) any {
		if value == nil {
			return id
		}

		return value
	})
}
