// Package monitoring serves a virtual clock over HTTP so that a process
// outside the test can inspect and advance it.
package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/gorilla/mux"

	"github.com/sarchlab/vclock/instrumentation/tracing"
	"github.com/sarchlab/vclock/timing"
)

// Monitor exposes a clock through a JSON API.
//
//	GET  /api/now              current time, session and state
//	GET  /api/timers           pending timers in firing order
//	GET  /api/stats            timer activity since registration
//	POST /api/tick/{ms}        Tick
//	POST /api/settime/{ms}     SetTime
//	POST /api/runall           RunAll
type Monitor struct {
	clock      *timing.Clock
	counter    *tracing.FireCounter
	portNumber int

	serverLock sync.Mutex
	server     *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// minPortNumber is the lowest port the monitor binds to explicitly.
const minPortNumber = 1000

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// refused and a random port is used instead.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < minPortNumber {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterClock sets the clock to serve and starts counting its timers.
func (m *Monitor) RegisterClock(c *timing.Clock) {
	m.clock = c
	m.counter = tracing.NewFireCounter()
	c.AcceptHook(m.counter)
}

// Handler returns the API routes.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/now", m.now).Methods(http.MethodGet)
	api.HandleFunc("/timers", m.listTimers).Methods(http.MethodGet)
	api.HandleFunc("/stats", m.stats).Methods(http.MethodGet)
	api.HandleFunc("/tick/{ms:[0-9]+}", m.tick).Methods(http.MethodPost)
	api.HandleFunc("/settime/{ms:[0-9]+}", m.setTime).Methods(http.MethodPost)
	api.HandleFunc("/runall", m.runAll).Methods(http.MethodPost)

	return r
}

// StartServer listens on the configured port and serves in the background.
// It returns the address the server listens on.
func (m *Monitor) StartServer() (string, error) {
	if m.clock == nil {
		return "", errors.New("no clock registered")
	}

	listener, err := net.Listen("tcp", m.listenAddr())
	if err != nil {
		return "", err
	}

	server := &http.Server{Handler: m.Handler()}

	m.serverLock.Lock()
	m.server = server
	m.serverLock.Unlock()

	addr := fmt.Sprintf("localhost:%d", listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring virtual clock with http://%s\n", addr)

	go func() {
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "monitoring server stopped: %v\n", err)
		}
	}()

	return addr, nil
}

func (m *Monitor) listenAddr() string {
	if m.portNumber < minPortNumber {
		return ":0"
	}

	return ":" + strconv.Itoa(m.portNumber)
}

// Shutdown stops the server started by StartServer.
func (m *Monitor) Shutdown(ctx context.Context) error {
	m.serverLock.Lock()
	server := m.server
	m.server = nil
	m.serverLock.Unlock()

	if server == nil {
		return nil
	}

	return server.Shutdown(ctx)
}

type nowRsp struct {
	Now     timing.VTimeInMs `json:"now"`
	Enabled bool             `json:"enabled"`
	Session string           `json:"session,omitempty"`
}

type timerRsp struct {
	ID        uint64           `json:"id"`
	RunAt     timing.VTimeInMs `json:"run_at"`
	Interval  timing.VTimeInMs `json:"interval"`
	Repeating bool             `json:"repeating"`
}

type statsRsp struct {
	Created         uint64 `json:"created"`
	Canceled        uint64 `json:"canceled"`
	Fired           uint64 `json:"fired"`
	RepeatingFired  uint64 `json:"repeating_fired"`
	PendingTimerNum int    `json:"pending"`
}

type errorRsp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nowRsp{
		Now:     m.clock.Now(),
		Enabled: m.clock.Enabled(),
		Session: m.clock.Session(),
	})
}

func (m *Monitor) listTimers(w http.ResponseWriter, _ *http.Request) {
	timers := m.clock.Timers()

	rsp := make([]timerRsp, 0, len(timers))
	for _, t := range timers {
		rsp = append(rsp, timerRsp{
			ID:        uint64(t.ID()),
			RunAt:     t.RunAt(),
			Interval:  t.Interval(),
			Repeating: t.IsRepeating(),
		})
	}

	writeJSON(w, http.StatusOK, rsp)
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	fired, repeating := m.counter.Fired()

	writeJSON(w, http.StatusOK, statsRsp{
		Created:         m.counter.Created(),
		Canceled:        m.counter.Canceled(),
		Fired:           fired,
		RepeatingFired:  repeating,
		PendingTimerNum: m.clock.Pending(),
	})
}

func (m *Monitor) tick(w http.ResponseWriter, r *http.Request) {
	m.advance(w, r, m.clock.Tick)
}

func (m *Monitor) setTime(w http.ResponseWriter, r *http.Request) {
	m.advance(w, r, m.clock.SetTime)
}

func (m *Monitor) runAll(w http.ResponseWriter, _ *http.Request) {
	m.reply(w, m.clock.RunAll())
}

func (m *Monitor) advance(
	w http.ResponseWriter,
	r *http.Request,
	move func(timing.VTimeInMs) error,
) {
	ms, err := strconv.ParseInt(mux.Vars(r)["ms"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRsp{Error: err.Error()})
		return
	}

	m.reply(w, move(timing.VTimeInMs(ms)))
}

func (m *Monitor) reply(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		m.now(w, nil)
	case errors.Is(err, timing.ErrInvalidState):
		writeJSON(w, http.StatusConflict, errorRsp{Error: err.Error()})
	default:
		writeJSON(w, http.StatusBadRequest, errorRsp{Error: err.Error()})
	}
}
