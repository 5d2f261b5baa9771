package vclock

import (
	"github.com/sarchlab/vclock/config"
	"github.com/sarchlab/vclock/timing"
)

type settings struct {
	apis []timing.Facility
	now  any
	err  error
}

// An Option configures Enable.
type Option func(s *settings)

// WithAPIs selects the facilities to mock. Without this option every
// facility is mocked; WithAPIs() with no arguments mocks none.
func WithAPIs(fs ...timing.Facility) Option {
	return func(s *settings) {
		s.apis = append([]timing.Facility{}, fs...)
	}
}

// WithNow sets the starting virtual time. It accepts what
// timing.Clock.Enable accepts, including a time.Time.
func WithNow(now any) Option {
	return func(s *settings) {
		s.now = now
	}
}

// WithConfig applies the fields that are set in c.
func WithConfig(c config.Config) Option {
	return func(s *settings) {
		fs, err := c.Facilities()
		if err != nil {
			s.err = err
			return
		}

		if fs != nil {
			s.apis = fs
		}

		if c.Now != nil {
			s.now = c.StartTime()
		}
	}
}
