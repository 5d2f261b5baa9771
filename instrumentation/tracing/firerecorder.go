package tracing

import (
	"sync"

	"github.com/sarchlab/vclock/datarecording"
	"github.com/sarchlab/vclock/instrumentation/hooking"
	"github.com/sarchlab/vclock/timing"
)

// FireTableName is the table FireRecorder writes into.
const FireTableName = "timer_firings"

// FireRecord is one row of the firing table.
type FireRecord struct {
	Session     string
	TimerID     uint64
	ScheduledAt int64
	FiredAt     int64
	Repeating   bool
}

type sessionTeller interface {
	Session() string
}

// FireRecorder is a hook that stores every firing in a DataRecorder.
type FireRecorder struct {
	recorder datarecording.DataRecorder

	lock sync.Mutex
	err  error
}

// NewFireRecorder creates the firing table in recorder.
func NewFireRecorder(recorder datarecording.DataRecorder) (*FireRecorder, error) {
	if err := recorder.CreateTable(FireTableName, FireRecord{}); err != nil {
		return nil, err
	}

	return &FireRecorder{recorder: recorder}, nil
}

// Func records the firing.
func (r *FireRecorder) Func(ctx hooking.HookCtx) {
	if ctx.Pos != timing.HookPosBeforeFire {
		return
	}

	t, ok := ctx.Item.(*timing.Timer)
	if !ok {
		return
	}

	info := ctx.Detail.(timing.FireInfo)
	record := FireRecord{
		TimerID:     uint64(t.ID()),
		ScheduledAt: int64(info.ScheduledAt),
		FiredAt:     int64(info.Now),
		Repeating:   t.IsRepeating(),
	}

	if s, ok := ctx.Domain.(sessionTeller); ok {
		record.Session = s.Session()
	}

	err := r.recorder.InsertData(FireTableName, record)
	if err != nil {
		r.lock.Lock()
		if r.err == nil {
			r.err = err
		}
		r.lock.Unlock()
	}
}

// Err returns the first error met while recording.
func (r *FireRecorder) Err() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.err
}

// Flush writes the buffered records.
func (r *FireRecorder) Flush() error {
	if err := r.Err(); err != nil {
		return err
	}

	return r.recorder.Flush()
}
