package timing

import "github.com/sarchlab/vclock/instrumentation/hooking"

var (
	// HookPosTimerCreated marks a timer being added to the queue.
	HookPosTimerCreated = &hooking.HookPos{Name: "TimerCreated"}

	// HookPosTimerCanceled marks a timer being removed before it fired.
	HookPosTimerCanceled = &hooking.HookPos{Name: "TimerCanceled"}

	// HookPosBeforeFire marks a timer about to invoke its callback.
	HookPosBeforeFire = &hooking.HookPos{Name: "BeforeFire"}

	// HookPosAfterFire marks a timer whose callback has returned.
	HookPosAfterFire = &hooking.HookPos{Name: "AfterFire"}
)

// FireInfo is the Detail of the firing hooks.
type FireInfo struct {
	// Now is the virtual time of the tick that fired the timer.
	Now VTimeInMs

	// ScheduledAt is the time the timer was due. It can be earlier than Now
	// when a tick jumps past several due times.
	ScheduledAt VTimeInMs
}
