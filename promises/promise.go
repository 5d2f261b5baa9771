// Package promises builds cancelable asynchronous operations on top of a
// virtual clock: a one-shot delay that settles a Promise, and a repeating
// interval consumed one tick at a time.
package promises

import (
	"sync"

	"github.com/sarchlab/vclock/timing"
)

// Scheduler is what the adapters need from a clock. *timing.Clock
// implements it.
type Scheduler interface {
	timing.TimeTeller

	CreateTimer(repeating bool, cb timing.Callback, delay timing.VTimeInMs, args ...any) *timing.Timer
	CancelTimer(t *timing.Timer) bool
}

// A Promise is a value that becomes available later, or an error. It settles
// once; later Resolve and Reject calls are ignored.
type Promise[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// NewPromise creates an unsettled Promise.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{done: make(chan struct{})}
}

// Resolve settles the promise with v. It returns false if the promise was
// already settled.
func (p *Promise[T]) Resolve(v T) bool {
	settled := false
	p.once.Do(func() {
		p.value = v
		settled = true
		close(p.done)
	})

	return settled
}

// Reject settles the promise with err. It returns false if the promise was
// already settled.
func (p *Promise[T]) Reject(err error) bool {
	settled := false
	p.once.Do(func() {
		p.err = err
		settled = true
		close(p.done)
	})

	return settled
}

// Done returns a channel that is closed once the promise settles.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// Settled tells if the promise has a value or an error.
func (p *Promise[T]) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Await blocks until the promise settles and returns its outcome.
func (p *Promise[T]) Await() (T, error) {
	<-p.done
	return p.value, p.err
}
