package timing

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Facility", func() {
	DescribeTable("should parse names and aliases",
		func(name string, want Facility) {
			f, err := ParseFacility(name)

			Expect(err).NotTo(HaveOccurred())
			Expect(f).To(Equal(want))
		},
		Entry("delayed", "delayed-callback", DelayedCallback),
		Entry("repeating", "repeating-callback", RepeatingCallback),
		Entry("clock", "clock-reading", ClockReading),
		Entry("setTimeout", "setTimeout", DelayedCallback),
		Entry("setInterval", " setInterval ", RepeatingCallback),
		Entry("Date", "Date", ClockReading),
	)

	It("should name the unsupported facility", func() {
		_, err := ParseFacility("setImmediate")

		Expect(err).To(MatchError(ErrInvalidArgument))
		Expect(err.Error()).To(ContainSubstring("setImmediate"))
	})

	It("should know the host alias of every facility", func() {
		for _, f := range AllFacilities() {
			alias := f.Alias()

			Expect(alias).NotTo(BeEmpty())
			Expect(ParseFacility(alias)).To(Equal(f))
		}

		Expect(Facility("bogus").Alias()).To(BeEmpty())
	})

	It("should drop repeated facilities", func() {
		fs, err := normalizeFacilities([]Facility{"Date", ClockReading, "setTimeout"})

		Expect(err).NotTo(HaveOccurred())
		Expect(fs).To(Equal([]Facility{ClockReading, DelayedCallback}))
	})
})

var _ = Describe("AbortError", func() {
	It("should match ErrAborted and unwrap to its cause", func() {
		cause := errors.New("user gave up")
		err := error(NewAbortError(cause))

		Expect(errors.Is(err, ErrAborted)).To(BeTrue())
		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(err.Error()).To(Equal("the operation was aborted: user gave up"))
	})

	It("should carry context cancellation", func() {
		err := error(NewAbortError(context.Canceled))

		Expect(errors.Is(err, context.Canceled)).To(BeTrue())

		var abortErr *AbortError
		Expect(errors.As(err, &abortErr)).To(BeTrue())
		Expect(abortErr.Cause).To(Equal(context.Canceled))
	})
})
