package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecTableName is the table ExecRecorder writes into.
const ExecTableName = "exec_info"

const execTimeLayout = "2006-01-02 15:04:05.000000000"

// ExecInfo is one property of a program execution.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecRecorder records how and when the program that produced a recording
// was run.
type ExecRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
	wall     func() time.Time
}

// NewExecRecorder creates the execution table in recorder.
func NewExecRecorder(recorder DataRecorder) (*ExecRecorder, error) {
	if err := recorder.CreateTable(ExecTableName, ExecInfo{}); err != nil {
		return nil, err
	}

	return &ExecRecorder{
		recorder: recorder,
		wall:     time.Now,
	}, nil
}

// Start notes the start time, the command line, the working directory and
// any extra properties.
func (e *ExecRecorder) Start(extra ...ExecInfo) {
	e.entries = append(e.entries,
		ExecInfo{"Start Time", e.wall().Format(execTimeLayout)},
		ExecInfo{"Command", strings.Join(os.Args, " ")},
	)

	if cwd, err := os.Getwd(); err == nil {
		e.entries = append(e.entries, ExecInfo{"Working Directory", cwd})
	}

	e.entries = append(e.entries, extra...)
}

// End writes the noted properties along with the end time.
func (e *ExecRecorder) End() error {
	e.entries = append(e.entries,
		ExecInfo{"End Time", e.wall().Format(execTimeLayout)})

	for _, entry := range e.entries {
		if err := e.recorder.InsertData(ExecTableName, entry); err != nil {
			return err
		}
	}

	e.entries = nil

	return e.recorder.Flush()
}
