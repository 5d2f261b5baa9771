package host

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sarchlab/vclock/datemock"
	"github.com/sarchlab/vclock/promises"
	"github.com/sarchlab/vclock/timing"
)

// RealBindings returns bindings backed by Go's time package.
func RealBindings(opts ...datemock.Option) Bindings {
	return Bindings{
		Timeout: TimeoutFuncs{
			SetTimeout:   realSetTimeout,
			ClearTimeout: stopHandle,
			After:        realAfter,
		},
		Interval: IntervalFuncs{
			SetInterval:   realSetInterval,
			ClearInterval: stopHandle,
			Interval:      realInterval,
		},
		Date: datemock.NewNative(opts...),
	}
}

func toDuration(ms timing.VTimeInMs) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// period keeps tickers valid; time.NewTicker panics on non-positive periods.
func period(ms timing.VTimeInMs) time.Duration {
	if ms < 1 {
		ms = 1
	}

	return toDuration(ms)
}

func stopHandle(h Handle) {
	if h != nil {
		h.Stop()
	}
}

func realSetTimeout(f timing.Callback, delay timing.VTimeInMs, args ...any) Handle {
	return time.AfterFunc(toDuration(delay), func() { f(args...) })
}

type realTicker struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *realTicker) Stop() bool {
	stopped := false
	t.once.Do(func() {
		if t.ticker != nil {
			t.ticker.Stop()
		}
		close(t.done)
		stopped = true
	})

	return stopped
}

func realSetInterval(f timing.Callback, interval timing.VTimeInMs, args ...any) Handle {
	t := &realTicker{
		ticker: time.NewTicker(period(interval)),
		done:   make(chan struct{}),
	}

	go func() {
		for {
			select {
			case <-t.ticker.C:
				f(args...)
			case <-t.done:
				return
			}
		}
	}()

	return t
}

func realAfter(ctx context.Context, delay timing.VTimeInMs, value any) Future {
	p := promises.NewPromise[any]()

	if ctx == nil {
		p.Reject(fmt.Errorf("%w: nil context", timing.ErrInvalidArgument))
		return p
	}

	if ctx.Err() != nil {
		p.Reject(timing.NewAbortError(context.Cause(ctx)))
		return p
	}

	timer := time.NewTimer(toDuration(delay))
	go func() {
		defer timer.Stop()

		select {
		case <-timer.C:
			p.Resolve(value)
		case <-ctx.Done():
			p.Reject(timing.NewAbortError(context.Cause(ctx)))
		}
	}()

	return p
}

type realTicks struct {
	ctx    context.Context
	ticker *time.Ticker
	closed chan struct{}
	once   sync.Once
	err    error
}

func realInterval(ctx context.Context, interval timing.VTimeInMs) TickStream {
	if ctx == nil {
		return &realTicks{
			closed: make(chan struct{}),
			err:    fmt.Errorf("%w: nil context", timing.ErrInvalidArgument),
		}
	}

	return &realTicks{
		ctx:    ctx,
		ticker: time.NewTicker(period(interval)),
		closed: make(chan struct{}),
	}
}

func (t *realTicks) Next() (timing.VTimeInMs, error) {
	if t.err != nil {
		t.Close()
		return 0, t.err
	}

	select {
	case <-t.closed:
		return 0, promises.ErrTicksClosed
	default:
	}

	if t.ctx.Err() != nil {
		t.Close()
		return 0, timing.NewAbortError(context.Cause(t.ctx))
	}

	select {
	case <-t.closed:
		return 0, promises.ErrTicksClosed
	case <-t.ctx.Done():
		t.Close()
		return 0, timing.NewAbortError(context.Cause(t.ctx))
	case now := <-t.ticker.C:
		return timing.VTimeInMs(now.UnixMilli()), nil
	}
}

func (t *realTicks) Close() {
	t.once.Do(func() {
		if t.ticker != nil {
			t.ticker.Stop()
		}
		close(t.closed)
	})
}
