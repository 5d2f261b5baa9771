package tracing

import (
	"fmt"
	"log"

	"github.com/sarchlab/vclock/instrumentation/hooking"
	"github.com/sarchlab/vclock/timing"
)

// FireLogger is a hook that prints the timers being fired.
type FireLogger struct {
	logger    *log.Logger
	lifecycle bool
}

// NewFireLogger returns a FireLogger that writes into logger.
func NewFireLogger(logger *log.Logger) *FireLogger {
	return &FireLogger{logger: logger}
}

// WithLifecycle makes the logger also print timer creation and cancellation.
func (h *FireLogger) WithLifecycle() *FireLogger {
	h.lifecycle = true
	return h
}

// Func writes the timer information into the logger.
func (h *FireLogger) Func(ctx hooking.HookCtx) {
	t, ok := ctx.Item.(*timing.Timer)
	if !ok {
		return
	}

	switch ctx.Pos {
	case timing.HookPosBeforeFire:
		info := ctx.Detail.(timing.FireInfo)
		h.logger.Printf("%d, fire %s (due %d)", info.Now, describe(t), info.ScheduledAt)
	case timing.HookPosTimerCreated:
		if h.lifecycle {
			h.logger.Printf("create %s (due %d)", describe(t), t.RunAt())
		}
	case timing.HookPosTimerCanceled:
		if h.lifecycle {
			h.logger.Printf("cancel %s", describe(t))
		}
	}
}

func describe(t *timing.Timer) string {
	kind := "timeout"
	if t.IsRepeating() {
		kind = "interval"
	}

	return fmt.Sprintf("%s %d", kind, t.ID())
}
