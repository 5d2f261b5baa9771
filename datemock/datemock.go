// Package datemock provides clock-reading sources: Native reads the wall
// clock, Mock reads a virtual clock. Only "now" is virtualized; building a
// time from explicit calendar components, parsing and UTC conversion behave
// the same for both.
package datemock

import (
	"fmt"
	"time"

	"github.com/sarchlab/vclock/timing"
)

// DisplayLayout is the layout String uses to render the current time.
const DisplayLayout = "Mon Jan 02 2006 15:04:05 GMT-0700 (MST)"

// maxComponents is year, month, day, hour, minute, second and millisecond.
const maxComponents = 7

var parseLayouts = []string{
	DisplayLayout,
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// A Source reads and builds clock values.
type Source interface {
	// Now returns the current time in milliseconds since the Unix epoch.
	Now() int64

	// String renders the current time with DisplayLayout.
	String() string

	// New builds a time. Without components it returns the current time. A
	// single component is milliseconds since the Unix epoch. Two to seven
	// components are year, month (1-12), day, hour, minute, second and
	// millisecond; out-of-range values are normalized like time.Date does.
	New(components ...int) (time.Time, error)

	// Parse reads a time written in one of the supported layouts.
	Parse(s string) (time.Time, error)

	// UTC returns the milliseconds since the Unix epoch of a calendar time
	// given in UTC, with the same components as New.
	UTC(components ...int) (int64, error)

	// IsMock tells if the source reads a virtual clock.
	IsMock() bool

	// Location returns the location times are built and rendered in.
	Location() *time.Location
}

// Option configures a source.
type Option func(n *Native)

// WithLocation sets the location times are built and rendered in. The
// default is UTC so that renderings do not depend on the machine.
func WithLocation(loc *time.Location) Option {
	return func(n *Native) {
		n.loc = loc
	}
}

// Native is the wall-clock Source.
type Native struct {
	loc  *time.Location
	wall func() time.Time
}

// NewNative creates a Source that reads the wall clock.
func NewNative(opts ...Option) *Native {
	n := &Native{
		loc:  time.UTC,
		wall: time.Now,
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Now returns the wall-clock time in milliseconds since the Unix epoch.
func (n *Native) Now() int64 {
	return n.wall().UnixMilli()
}

// String renders the wall-clock time.
func (n *Native) String() string {
	return n.render(n.Now())
}

func (n *Native) render(ms int64) string {
	return time.UnixMilli(ms).In(n.loc).Format(DisplayLayout)
}

// New builds a time from components. See Source.
func (n *Native) New(components ...int) (time.Time, error) {
	switch len(components) {
	case 0:
		return time.UnixMilli(n.Now()).In(n.loc), nil
	case 1:
		return time.UnixMilli(int64(components[0])).In(n.loc), nil
	}

	return n.calendar(n.loc, components)
}

func (n *Native) calendar(loc *time.Location, components []int) (time.Time, error) {
	if len(components) > maxComponents {
		return time.Time{}, fmt.Errorf(
			"%w: at most %d calendar components, got %d",
			timing.ErrInvalidArgument, maxComponents, len(components),
		)
	}

	c := [maxComponents]int{0, 1, 1, 0, 0, 0, 0}
	copy(c[:], components)

	return time.Date(
		c[0], time.Month(c[1]), c[2],
		c[3], c[4], c[5], c[6]*int(time.Millisecond),
		loc,
	), nil
}

// Parse reads a time in one of the supported layouts. Layouts without a zone
// are read in the source's location.
func (n *Native) Parse(s string) (time.Time, error) {
	for _, layout := range parseLayouts {
		t, err := time.ParseInLocation(layout, s, n.loc)
		if err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: cannot parse %q as a time", timing.ErrInvalidArgument, s)
}

// UTC returns the Unix milliseconds of a calendar time given in UTC.
func (n *Native) UTC(components ...int) (int64, error) {
	if len(components) == 0 {
		return 0, fmt.Errorf("%w: UTC needs at least a year", timing.ErrInvalidArgument)
	}

	t, err := n.calendar(time.UTC, components)
	if err != nil {
		return 0, err
	}

	return t.UnixMilli(), nil
}

// IsMock returns false.
func (n *Native) IsMock() bool {
	return false
}

// Location returns the location times are built and rendered in.
func (n *Native) Location() *time.Location {
	return n.loc
}

// Mock is a Source whose "now" is the time of a virtual clock. Everything
// that does not depend on "now" is inherited from Native.
type Mock struct {
	*Native
	clock timing.TimeTeller
}

// New creates a Mock that reads the given clock.
func New(clock timing.TimeTeller, opts ...Option) *Mock {
	return &Mock{
		Native: NewNative(opts...),
		clock:  clock,
	}
}

// Now returns the virtual time.
func (m *Mock) Now() int64 {
	return int64(m.clock.Now())
}

// String renders the virtual time.
func (m *Mock) String() string {
	return m.render(m.Now())
}

// New returns the virtual time when called without components and defers
// to Native otherwise.
func (m *Mock) New(components ...int) (time.Time, error) {
	if len(components) == 0 {
		return time.UnixMilli(m.Now()).In(m.loc), nil
	}

	return m.Native.New(components...)
}

// IsMock returns true.
func (m *Mock) IsMock() bool {
	return true
}

var (
	_ Source = (*Native)(nil)
	_ Source = (*Mock)(nil)
)
