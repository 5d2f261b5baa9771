package promises

import (
	"context"
	"fmt"
	"sync"

	"github.com/sarchlab/vclock/idgen"
	"github.com/sarchlab/vclock/timing"
)

// Delay returns a promise that resolves with value once delay has elapsed on
// the scheduler's clock.
//
// If ctx is already done, the promise is rejected with a *timing.AbortError
// and no timer is created. If ctx is done later, the timer is cancelled and
// the promise is rejected with an AbortError whose cause is context.Cause.
func Delay[T any](
	ctx context.Context,
	s Scheduler,
	delay timing.VTimeInMs,
	value T,
) *Promise[T] {
	return DelayFunc(ctx, s, delay, func(idgen.ID) T { return value })
}

// Sleep is Delay resolving with the id of the underlying timer.
func Sleep(
	ctx context.Context,
	s Scheduler,
	delay timing.VTimeInMs,
) *Promise[idgen.ID] {
	return DelayFunc(ctx, s, delay, func(id idgen.ID) idgen.ID { return id })
}

// DelayFunc is Delay with the resolved value computed from the timer id when
// the timer fires.
func DelayFunc[T any](
	ctx context.Context,
	s Scheduler,
	delay timing.VTimeInMs,
	value func(id idgen.ID) T,
) *Promise[T] {
	p := NewPromise[T]()

	if ctx == nil {
		p.Reject(fmt.Errorf("%w: nil context", timing.ErrInvalidArgument))
		return p
	}

	if ctx.Err() != nil {
		p.Reject(timing.NewAbortError(context.Cause(ctx)))
		return p
	}

	op := &delayOp[T]{ctx: ctx, promise: p, scheduler: s}

	op.mu.Lock()
	defer op.mu.Unlock()

	op.timer = s.CreateTimer(false, func(...any) { op.fire(value) }, delay)
	op.stopListening = context.AfterFunc(ctx, func() {
		op.abort(context.Cause(ctx))
	})

	return p
}

type delayOp[T any] struct {
	mu            sync.Mutex
	ctx           context.Context
	promise       *Promise[T]
	scheduler     Scheduler
	timer         *timing.Timer
	stopListening func() bool
}

func (op *delayOp[T]) fire(value func(idgen.ID) T) {
	op.mu.Lock()
	defer op.mu.Unlock()

	op.stopListening()

	// The listener may not have run yet when the context is already done.
	if op.ctx.Err() != nil {
		op.promise.Reject(timing.NewAbortError(context.Cause(op.ctx)))
		return
	}

	op.promise.Resolve(value(op.timer.ID()))
}

func (op *delayOp[T]) abort(cause error) {
	op.mu.Lock()
	defer op.mu.Unlock()

	op.scheduler.CancelTimer(op.timer)
	op.promise.Reject(timing.NewAbortError(cause))
}
