package monitoring

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/sarchlab/vclock/timing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Monitor", func() {
	var (
		clock   *timing.Clock
		m       *Monitor
		handler http.Handler
		fired   []timing.VTimeInMs
	)

	do := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, v any) {
		Expect(json.Unmarshal(rec.Body.Bytes(), v)).To(Succeed())
	}

	BeforeEach(func() {
		clock = timing.NewClock()
		m = NewMonitor()
		m.RegisterClock(clock)
		handler = m.Handler()
		fired = nil
	})

	record := func(...any) { fired = append(fired, clock.Now()) }

	It("should report the clock state", func() {
		Expect(clock.Enable(nil, 500)).To(Succeed())

		rec := do(http.MethodGet, "/api/now")

		Expect(rec.Code).To(Equal(http.StatusOK))
		var rsp nowRsp
		decode(rec, &rsp)
		Expect(rsp.Now).To(Equal(timing.VTimeInMs(500)))
		Expect(rsp.Enabled).To(BeTrue())
		Expect(rsp.Session).To(Equal(clock.Session()))
	})

	It("should list pending timers", func() {
		Expect(clock.Enable(nil, nil)).To(Succeed())
		clock.CreateTimer(false, record, 30)
		clock.CreateTimer(true, record, 10)

		rec := do(http.MethodGet, "/api/timers")

		var rsp []timerRsp
		decode(rec, &rsp)
		Expect(rsp).To(Equal([]timerRsp{
			{ID: 2, RunAt: 10, Interval: 10, Repeating: true},
			{ID: 1, RunAt: 30, Interval: 30},
		}))
	})

	It("should tick the clock", func() {
		Expect(clock.Enable(nil, nil)).To(Succeed())
		clock.CreateTimer(false, record, 30)

		rec := do(http.MethodPost, "/api/tick/30")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(fired).To(Equal([]timing.VTimeInMs{30}))

		var rsp nowRsp
		decode(rec, &rsp)
		Expect(rsp.Now).To(Equal(timing.VTimeInMs(30)))
	})

	It("should set the time and run all timers", func() {
		Expect(clock.Enable(nil, nil)).To(Succeed())
		clock.CreateTimer(false, record, 100)
		clock.CreateTimer(false, record, 200)

		Expect(do(http.MethodPost, "/api/settime/150").Code).To(Equal(http.StatusOK))
		Expect(do(http.MethodPost, "/api/runall").Code).To(Equal(http.StatusOK))

		Expect(fired).To(Equal([]timing.VTimeInMs{150, 200}))
	})

	It("should count timer activity", func() {
		Expect(clock.Enable(nil, nil)).To(Succeed())
		clock.CreateTimer(false, record, 1)
		clock.CreateTimer(false, record, 1).Stop()
		do(http.MethodPost, "/api/tick/1")

		var rsp statsRsp
		decode(do(http.MethodGet, "/api/stats"), &rsp)

		Expect(rsp).To(Equal(statsRsp{Created: 2, Canceled: 1, Fired: 1}))
	})

	It("should answer conflict when the clock is disabled", func() {
		rec := do(http.MethodPost, "/api/tick/1")

		Expect(rec.Code).To(Equal(http.StatusConflict))
		var rsp errorRsp
		decode(rec, &rsp)
		Expect(rsp.Error).To(ContainSubstring("not enabled"))
	})

	It("should reject malformed and wrong-method requests", func() {
		Expect(clock.Enable(nil, nil)).To(Succeed())

		Expect(do(http.MethodPost, "/api/tick/soon").Code).
			To(Equal(http.StatusNotFound))
		Expect(do(http.MethodGet, "/api/tick/1").Code).
			To(Equal(http.StatusMethodNotAllowed))
		Expect(do(http.MethodPost, "/api/tick/99999999999999999999").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should refuse a tick that overflows the virtual time", func() {
		Expect(clock.Enable(nil, 1000)).To(Succeed())
		clock.CreateTimer(false, record, 5)

		rec := do(http.MethodPost, "/api/tick/9223372036854775807")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(clock.Now()).To(Equal(timing.VTimeInMs(1000)))
		Expect(fired).To(BeEmpty())
	})

	It("should listen on the lowest allowed port", func() {
		Expect(NewMonitor().WithPortNumber(1000).listenAddr()).To(Equal(":1000"))
		Expect(NewMonitor().WithPortNumber(999).listenAddr()).To(Equal(":0"))
		Expect(NewMonitor().WithPortNumber(8080).listenAddr()).To(Equal(":8080"))
	})

	It("should serve over TCP", func() {
		Expect(clock.Enable(nil, 7)).To(Succeed())

		addr, err := m.StartServer()
		Expect(err).NotTo(HaveOccurred())
		defer func() {
			Expect(m.Shutdown(context.Background())).To(Succeed())
		}()

		rsp, err := http.Get("http://" + addr + "/api/now")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		body, err := io.ReadAll(rsp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`"now":7`))
	})

	It("should refuse to start without a clock", func() {
		_, err := NewMonitor().StartServer()

		Expect(err).To(HaveOccurred())
	})
})
