package engine

import (
	"context"
	"time"

	"github.com/examgate/examgate-backend/internal/model"
)

// Run drives the attempt's timers: once per second it forces the
// automatic break end when the budget runs out, and fires the finalize
// latch when the countdown expires. Call in a goroutine; it returns when
// the attempt finalizes or the context is canceled. The finalize latch
// makes the race between this loop and a concurrent manual submit safe:
// whichever reaches Finalize first wins, the other is a no-op.
func (a *Attempt) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.done:
			return
		case <-ticker.C:
			a.Tick()
		}
	}
}

// Tick processes one timer event. Exposed separately so tests can drive
// the timers deterministically with a fake clock.
func (a *Attempt) Tick() {
	now := a.clock.Now()

	a.mu.Lock()
	if a.status == AttemptActive {
		a.syncBreakLocked(now)
	}
	active := a.status == AttemptActive
	a.mu.Unlock()

	if active && a.remainingAt(now) == 0 {
		a.Finalize(model.TriggerTimeExpired)
	}
}
