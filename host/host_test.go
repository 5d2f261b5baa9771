package host

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sarchlab/vclock/datemock"
	"github.com/sarchlab/vclock/promises"
	"github.com/sarchlab/vclock/timing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeHandle struct {
	stopped bool
}

func (h *fakeHandle) Stop() bool {
	was := h.stopped
	h.stopped = true

	return !was
}

type fixedTeller timing.VTimeInMs

func (t fixedTeller) Now() timing.VTimeInMs {
	return timing.VTimeInMs(t)
}

func fakeBindings(calls *[]string) Bindings {
	return Bindings{
		Timeout: TimeoutFuncs{
			SetTimeout: func(timing.Callback, timing.VTimeInMs, ...any) Handle {
				*calls = append(*calls, "setTimeout")
				return &fakeHandle{}
			},
			ClearTimeout: func(Handle) {
				*calls = append(*calls, "clearTimeout")
			},
		},
		Interval: IntervalFuncs{
			SetInterval: func(timing.Callback, timing.VTimeInMs, ...any) Handle {
				*calls = append(*calls, "setInterval")
				return &fakeHandle{}
			},
			ClearInterval: func(Handle) {
				*calls = append(*calls, "clearInterval")
			},
		},
		Date: datemock.New(fixedTeller(1000)),
	}
}

var _ = Describe("Switchboard", func() {
	var (
		calls []string
		h     *Host
		board *Switchboard
	)

	BeforeEach(func() {
		calls = nil
		h = Real()
		board = NewSwitchboard(h, fakeBindings(&calls))
	})

	It("should replace only the installed facility", func() {
		Expect(board.Install(timing.ClockReading)).To(Succeed())

		Expect(h.Date().IsMock()).To(BeTrue())
		Expect(h.Date().Now()).To(Equal(int64(1000)))

		handle := h.SetTimeout(func(...any) {}, 10_000)
		h.ClearTimeout(handle)
		Expect(calls).To(BeEmpty())
	})

	It("should route calls to the mocked functions", func() {
		Expect(board.Install(timing.DelayedCallback)).To(Succeed())
		Expect(board.Install(timing.RepeatingCallback)).To(Succeed())

		h.ClearTimeout(h.SetTimeout(func(...any) {}, 5))
		h.ClearInterval(h.SetInterval(func(...any) {}, 5))

		Expect(calls).To(Equal([]string{
			"setTimeout", "clearTimeout", "setInterval", "clearInterval",
		}))
		Expect(board.Installed()).To(Equal([]timing.Facility{
			timing.DelayedCallback, timing.RepeatingCallback,
		}))
	})

	It("should restore the original bindings", func() {
		Expect(board.Install(timing.ClockReading)).To(Succeed())
		board.Uninstall(timing.ClockReading)

		Expect(h.Date().IsMock()).To(BeFalse())
		Expect(board.Installed()).To(BeEmpty())
	})

	It("should ignore uninstalling a facility that is not installed", func() {
		before := h.Date()

		board.Uninstall(timing.ClockReading)

		Expect(h.Date()).To(BeIdenticalTo(before))
	})

	It("should refuse to install twice", func() {
		Expect(board.Install(timing.ClockReading)).To(Succeed())

		Expect(board.Install(timing.ClockReading)).
			To(MatchError(timing.ErrInvalidState))
	})

	It("should refuse a second switchboard on the same host", func() {
		other := NewSwitchboard(h, fakeBindings(&calls))
		Expect(board.Install(timing.DelayedCallback)).To(Succeed())

		Expect(other.Install(timing.DelayedCallback)).
			To(MatchError(timing.ErrInvalidState))
		Expect(other.Install(timing.ClockReading)).To(Succeed())
	})

	It("should reject unknown facilities", func() {
		Expect(board.Install(timing.Facility("bogus"))).
			To(MatchError(timing.ErrInvalidArgument))
		Expect(board.Installed()).To(BeEmpty())
	})

	It("should plug into a clock as its installer", func() {
		clock := timing.MakeClockBuilder().WithInstaller(board).Build()

		Expect(clock.Enable([]timing.Facility{timing.ClockReading}, nil)).
			To(Succeed())
		Expect(h.Date().IsMock()).To(BeTrue())

		clock.Reset()
		Expect(h.Date().IsMock()).To(BeFalse())
	})
})

var _ = Describe("Real bindings", func() {
	var h *Host

	BeforeEach(func() {
		h = Real()
	})

	It("should read the wall clock", func() {
		before := time.Now().UnixMilli()
		now := h.Date().Now()

		Expect(now).To(BeNumerically(">=", before))
		Expect(h.Date().IsMock()).To(BeFalse())
	})

	It("should run a timeout", func() {
		var fired atomic.Int32

		h.SetTimeout(func(args ...any) {
			fired.Add(int32(args[0].(int)))
		}, 1, 3)

		Eventually(fired.Load).Should(Equal(int32(3)))
	})

	It("should clear a timeout", func() {
		var fired atomic.Bool

		handle := h.SetTimeout(func(...any) { fired.Store(true) }, 50)
		h.ClearTimeout(handle)

		Consistently(fired.Load, 100*time.Millisecond).Should(BeFalse())
	})

	It("should repeat an interval until cleared", func() {
		var fired atomic.Int32

		handle := h.SetInterval(func(...any) { fired.Add(1) }, 1)
		Eventually(fired.Load).Should(BeNumerically(">=", 2))

		h.ClearInterval(handle)
		Expect(handle.Stop()).To(BeFalse())
	})

	It("should resolve After with the value", func() {
		f := h.After(context.Background(), 1, "done")

		Eventually(f.Done()).Should(BeClosed())
		v, err := f.Await()
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("done"))
	})

	It("should reject After when the context ends", func() {
		reason := errors.New("shutting down")
		ctx, cancel := context.WithCancelCause(context.Background())

		f := h.After(ctx, 60_000, "never")
		cancel(reason)

		_, err := f.Await()
		Expect(err).To(MatchError(timing.ErrAborted))
		Expect(err).To(MatchError(reason))
	})

	It("should reject a nil context like the mocked bindings", func() {
		//nolint:staticcheck // a nil context is what is being tested
		_, err := h.After(nil, 1, "never").Await()
		Expect(err).To(MatchError(timing.ErrInvalidArgument))

		//nolint:staticcheck // a nil context is what is being tested
		ticks := h.Interval(nil, 1)
		_, err = ticks.Next()
		Expect(err).To(MatchError(timing.ErrInvalidArgument))

		ticks.Close()
	})

	It("should yield ticks until closed", func() {
		ticks := h.Interval(context.Background(), 1)

		first, err := ticks.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(BeNumerically(">", 0))

		ticks.Close()
		_, err = ticks.Next()
		Expect(err).To(MatchError(promises.ErrTicksClosed))
	})

	It("should fail ticks on a done context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		ticks := h.Interval(ctx, 1)
		_, err := ticks.Next()

		Expect(err).To(MatchError(timing.ErrAborted))
		Expect(err).To(MatchError(context.Canceled))
	})
})
