package scheduler

import (
	"sync/atomic"
	"time"
)

// WallTimer arms callbacks on the wall clock with time.AfterFunc.
type WallTimer struct {
	inFlight atomic.Int64
}

// NewWallTimer creates a wall-clock timer.
func NewWallTimer() *WallTimer {
	return &WallTimer{}
}

// After runs fn once after d on its own goroutine.
func (t *WallTimer) After(d time.Duration, fn func()) {
	t.inFlight.Add(1)
	time.AfterFunc(d, func() {
		defer t.inFlight.Add(-1)
		fn()
	})
}

// InFlight returns the number of armed callbacks that have not finished.
func (t *WallTimer) InFlight() int {
	return int(t.inFlight.Load())
}
