package timing

import (
	"github.com/sarchlab/vclock/idgen"
	"github.com/sarchlab/vclock/instrumentation/hooking"
)

// ClockBuilder can build clocks.
type ClockBuilder struct {
	installer Installer
	hooks     []hooking.Hook
}

// MakeClockBuilder returns a ClockBuilder with no installer and no hooks.
func MakeClockBuilder() ClockBuilder {
	return ClockBuilder{}
}

// WithInstaller sets the installer that binds facilities on Enable.
func (b ClockBuilder) WithInstaller(i Installer) ClockBuilder {
	b.installer = i
	return b
}

// WithHook attaches a hook to the clock being built.
func (b ClockBuilder) WithHook(h hooking.Hook) ClockBuilder {
	b.hooks = append(b.hooks, h)
	return b
}

// Build creates a disabled Clock.
func (b ClockBuilder) Build() *Clock {
	c := &Clock{
		HookableBase: hooking.NewHookableBase(),
		installer:    b.installer,
		ids:          idgen.New(),
		queue:        newTimerQueue(),
	}

	if c.installer == nil {
		c.installer = noopInstaller{}
	}

	for _, h := range b.hooks {
		c.AcceptHook(h)
	}

	return c
}

// NewClock creates a disabled Clock that does not install anything.
func NewClock() *Clock {
	return MakeClockBuilder().Build()
}

type noopInstaller struct{}

func (noopInstaller) Install(Facility) error { return nil }

func (noopInstaller) Uninstall(Facility) {}
