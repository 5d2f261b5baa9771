package host

import (
	"sync"

	"github.com/sarchlab/vclock/timing"
)

// A Switchboard installs mocked bindings into a Host one facility at a time
// and restores the originals on Uninstall. It implements timing.Installer.
type Switchboard struct {
	mu     sync.Mutex
	target *Host
	mocked Bindings
	saved  map[timing.Facility]Bindings
}

// NewSwitchboard creates a Switchboard that installs mocked into target.
func NewSwitchboard(target *Host, mocked Bindings) *Switchboard {
	return &Switchboard{
		target: target,
		mocked: mocked,
		saved:  make(map[timing.Facility]Bindings),
	}
}

// Install binds the mocked implementation of f. It fails with
// timing.ErrInvalidState if f is already overridden on the host, by this
// switchboard or another one.
func (s *Switchboard) Install(f timing.Facility) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, err := s.target.override(f, s.mocked)
	if err != nil {
		return err
	}

	s.saved[f] = previous

	return nil
}

// Uninstall restores what Install replaced. Facilities that were not
// installed are left alone.
func (s *Switchboard) Uninstall(f timing.Facility) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.saved[f]
	if !ok {
		return
	}

	s.target.restore(f, previous)
	delete(s.saved, f)
}

// Installed returns the facilities currently installed, in the canonical
// facility order.
func (s *Switchboard) Installed() []timing.Facility {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fs []timing.Facility
	for _, f := range timing.AllFacilities() {
		if _, ok := s.saved[f]; ok {
			fs = append(fs, f)
		}
	}

	return fs
}

var _ timing.Installer = (*Switchboard)(nil)
