package timing

import (
	"fmt"
	"strings"
)

// Facility names one of the host capabilities a Clock can stand in for.
type Facility string

// The facilities a Clock can take over.
const (
	DelayedCallback   Facility = "delayed-callback"
	RepeatingCallback Facility = "repeating-callback"
	ClockReading      Facility = "clock-reading"
)

var facilityAliases = map[string]Facility{
	"setTimeout":  DelayedCallback,
	"setInterval": RepeatingCallback,
	"Date":        ClockReading,
}

// Alias returns the host name of the facility, such as setTimeout.
func (f Facility) Alias() string {
	for alias, g := range facilityAliases {
		if g == f {
			return alias
		}
	}

	return ""
}

// AllFacilities returns every supported facility, in installation order.
func AllFacilities() []Facility {
	return []Facility{DelayedCallback, RepeatingCallback, ClockReading}
}

// ParseFacility maps a facility name, or one of its host aliases (setTimeout,
// setInterval, Date), to a Facility.
func ParseFacility(name string) (Facility, error) {
	switch f := Facility(strings.TrimSpace(name)); f {
	case DelayedCallback, RepeatingCallback, ClockReading:
		return f, nil
	}

	if f, ok := facilityAliases[strings.TrimSpace(name)]; ok {
		return f, nil
	}

	return "", fmt.Errorf(
		"%w: facility %q is not supported, use one of %s",
		ErrInvalidArgument, name, supportedNames(),
	)
}

func supportedNames() string {
	names := make([]string, 0, 3)
	for _, f := range AllFacilities() {
		names = append(names, string(f))
	}

	return strings.Join(names, ", ")
}

// normalizeFacilities resolves aliases and drops repeated entries while
// keeping the order in which facilities were first named.
func normalizeFacilities(facilities []Facility) ([]Facility, error) {
	out := make([]Facility, 0, len(facilities))
	seen := make(map[Facility]bool, len(facilities))

	for _, name := range facilities {
		f, err := ParseFacility(string(name))
		if err != nil {
			return nil, err
		}

		if seen[f] {
			continue
		}

		seen[f] = true
		out = append(out, f)
	}

	return out, nil
}
