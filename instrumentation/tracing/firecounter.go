package tracing

import (
	"sync"

	"github.com/sarchlab/vclock/idgen"
	"github.com/sarchlab/vclock/instrumentation/hooking"
	"github.com/sarchlab/vclock/timing"
)

// FireCounter counts timer activity on a clock.
type FireCounter struct {
	lock          sync.Mutex
	created       uint64
	canceled      uint64
	fired         uint64
	repeatFirings uint64
	firedByTimer  map[idgen.ID]uint64
}

// NewFireCounter creates a new FireCounter.
func NewFireCounter() *FireCounter {
	return &FireCounter{
		firedByTimer: make(map[idgen.ID]uint64),
	}
}

// Func counts the hook.
func (c *FireCounter) Func(ctx hooking.HookCtx) {
	t, ok := ctx.Item.(*timing.Timer)
	if !ok {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	switch ctx.Pos {
	case timing.HookPosTimerCreated:
		c.created++
	case timing.HookPosTimerCanceled:
		c.canceled++
	case timing.HookPosBeforeFire:
		c.fired++
		c.firedByTimer[t.ID()]++

		if t.IsRepeating() {
			c.repeatFirings++
		}
	}
}

// Created returns the number of timers created.
func (c *FireCounter) Created() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.created
}

// Canceled returns the number of timers cancelled before firing.
func (c *FireCounter) Canceled() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.canceled
}

// Fired returns the number of callbacks invoked, and how many of those
// belonged to repeating timers.
func (c *FireCounter) Fired() (total, repeating uint64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.fired, c.repeatFirings
}

// FiredByTimer returns how many times the timer with the given id fired.
// Ids restart every session, so the counts of different sessions add up.
func (c *FireCounter) FiredByTimer(id idgen.ID) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.firedByTimer[id]
}
