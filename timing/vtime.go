package timing

import "math"

// VTimeInMs is a point on, or a span of, the virtual timeline, measured in
// milliseconds. When read through a clock-reading facility it is interpreted
// as milliseconds since the Unix epoch.
type VTimeInMs int64

// MaxVTime is the latest representable point on the virtual timeline.
const MaxVTime VTimeInMs = math.MaxInt64

// addSaturating returns t + d for a non-negative d, capped at MaxVTime.
func addSaturating(t, d VTimeInMs) VTimeInMs {
	if d > MaxVTime-t {
		return MaxVTime
	}

	return t + d
}

// Callback is the function a timer invokes when it fires. It receives the
// arguments given when the timer was created.
type Callback func(args ...any)

// TimeTeller can be used to get the current virtual time.
type TimeTeller interface {
	Now() VTimeInMs
}
