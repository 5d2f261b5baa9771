// Package scenario runs scripted timer scenarios against a mocked host.
//
// A scenario is a YAML document:
//
//	apis: [setTimeout, Date]
//	now: 1000
//	steps:
//	  - timeout: {name: greet, delay: 250}
//	  - tick: 500
//	  - date: true
//
// Every firing, clock reading and clock move is written as one line.
package scenario

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/vclock"
	"github.com/sarchlab/vclock/config"
	"github.com/sarchlab/vclock/host"
	"github.com/sarchlab/vclock/instrumentation/hooking"
	"github.com/sarchlab/vclock/timing"
)

// Scenario is a clock configuration followed by steps.
type Scenario struct {
	config.Config `yaml:",inline"`

	Steps []Step `yaml:"steps"`
}

// TimerStep names a timer so that a later step can clear it.
type TimerStep struct {
	Name  string           `yaml:"name"`
	Delay timing.VTimeInMs `yaml:"delay"`
	Every timing.VTimeInMs `yaml:"every"`
}

// Step is one action. Exactly one field must be set.
type Step struct {
	Timeout  *TimerStep        `yaml:"timeout"`
	Interval *TimerStep        `yaml:"interval"`
	Clear    string            `yaml:"clear"`
	Tick     *timing.VTimeInMs `yaml:"tick"`
	SetTime  *timing.VTimeInMs `yaml:"setTime"`
	RunAll   bool              `yaml:"runAll"`
	Date     bool              `yaml:"date"`
	Reset    bool              `yaml:"reset"`
	Enable   *config.Config    `yaml:"enable"`
}

// Kind returns the name of the action, or "" unless exactly one is set.
func (s Step) Kind() string {
	var kinds []string

	add := func(set bool, kind string) {
		if set {
			kinds = append(kinds, kind)
		}
	}

	add(s.Timeout != nil, "timeout")
	add(s.Interval != nil, "interval")
	add(s.Clear != "", "clear")
	add(s.Tick != nil, "tick")
	add(s.SetTime != nil, "setTime")
	add(s.RunAll, "runAll")
	add(s.Date, "date")
	add(s.Reset, "reset")
	add(s.Enable != nil, "enable")

	if len(kinds) != 1 {
		return ""
	}

	return kinds[0]
}

// Load reads a scenario file.
func Load(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}

	return Parse(data)
}

// Parse decodes a scenario and checks that every step has one action.
func Parse(data []byte) (Scenario, error) {
	var sc Scenario

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&sc); err != nil && err != io.EOF {
		return Scenario{}, fmt.Errorf("%w: %v", timing.ErrInvalidArgument, err)
	}

	for i, step := range sc.Steps {
		if step.Kind() == "" {
			return Scenario{}, fmt.Errorf(
				"%w: step %d must have exactly one action",
				timing.ErrInvalidArgument, i+1)
		}
	}

	return sc, nil
}

// Options tune Run.
type Options struct {
	// Out receives the scenario output. Nil discards it.
	Out io.Writer

	// Override is merged over the scenario's own configuration.
	Override config.Config

	// Hooks are attached to the virtual clock before it is enabled.
	Hooks []hooking.Hook

	// Hold, if set, runs after the last step and before the host is
	// restored, for example to keep the clock open for remote control.
	Hold func(ctx context.Context, timers *vclock.MockTimers) error
}

type namedTimer struct {
	handle   host.Handle
	interval bool
}

type runner struct {
	host   *host.Host
	timers *vclock.MockTimers

	outLock sync.Mutex
	out     io.Writer

	named map[string]namedTimer
}

// Run executes sc on a host bound to Go's time package with MockTimers
// installed. The host is restored before Run returns.
func Run(ctx context.Context, sc Scenario, opts Options) error {
	r := &runner{
		host:  host.Real(),
		out:   opts.Out,
		named: make(map[string]namedTimer),
	}

	if r.out == nil {
		r.out = io.Discard
	}

	r.timers = vclock.New(r.host)
	for _, h := range opts.Hooks {
		r.timers.AcceptHook(h)
	}

	cfg := config.Merge(sc.Config, opts.Override)
	if err := r.enable(cfg); err != nil {
		return fmt.Errorf("enabling: %w", err)
	}

	defer r.reset()

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := r.run(step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Kind(), err)
		}
	}

	if opts.Hold != nil {
		if err := opts.Hold(ctx, r.timers); err != nil {
			return fmt.Errorf("holding: %w", err)
		}
	}

	return nil
}

func (r *runner) printf(format string, args ...any) {
	r.outLock.Lock()
	defer r.outLock.Unlock()

	fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *runner) run(step Step) error {
	switch step.Kind() {
	case "timeout":
		return r.schedule(step.Timeout, false)
	case "interval":
		return r.schedule(step.Interval, true)
	case "clear":
		return r.clear(step.Clear)
	case "tick":
		return r.advance(r.timers.Tick(*step.Tick))
	case "setTime":
		return r.advance(r.timers.SetTime(*step.SetTime))
	case "runAll":
		return r.advance(r.timers.RunAll())
	case "date":
		d := r.host.Date()
		r.printf("date %s (%d)", d.String(), d.Now())
	case "reset":
		r.reset()
		r.printf("reset")
	case "enable":
		return r.enable(*step.Enable)
	default:
		return fmt.Errorf("%w: step must have exactly one action",
			timing.ErrInvalidArgument)
	}

	return nil
}

func (r *runner) enable(cfg config.Config) error {
	if err := r.timers.Enable(vclock.WithConfig(cfg)); err != nil {
		return err
	}

	r.printf("enable %v at %d", r.timers.Clock().Facilities(), r.timers.Now())

	return nil
}

func (r *runner) schedule(ts *TimerStep, interval bool) error {
	if ts.Name == "" {
		return fmt.Errorf("%w: timer needs a name", timing.ErrInvalidArgument)
	}

	if _, dup := r.named[ts.Name]; dup {
		return fmt.Errorf("%w: timer %q already exists",
			timing.ErrInvalidArgument, ts.Name)
	}

	nt := namedTimer{interval: interval}
	if interval {
		nt.handle = r.host.SetInterval(r.report, ts.Every, "interval", ts.Name)
	} else {
		nt.handle = r.host.SetTimeout(r.report, ts.Delay, "timeout", ts.Name)
	}

	r.named[ts.Name] = nt

	return nil
}

func (r *runner) report(args ...any) {
	r.printf("%d fire %s %s", r.timers.Now(), args[0], args[1])
}

func (r *runner) clear(name string) error {
	nt, ok := r.named[name]
	if !ok {
		return fmt.Errorf("%w: no timer named %q", timing.ErrInvalidArgument, name)
	}

	if nt.interval {
		r.host.ClearInterval(nt.handle)
	} else {
		r.host.ClearTimeout(nt.handle)
	}

	delete(r.named, name)

	return nil
}

func (r *runner) advance(err error) error {
	if err != nil {
		return err
	}

	r.printf("now %d", r.timers.Now())

	return nil
}

// reset stops every named timer, including real ones scheduled through
// facilities that were not mocked, then restores the host.
func (r *runner) reset() {
	for name := range r.named {
		_ = r.clear(name)
	}

	r.timers.Reset()
}
