package testutil

import (
	"sync"
	"time"
)

// ManualTimer is a core.Timer whose callbacks run only when the test fires
// them. Armed delays are recorded for inspection.
type ManualTimer struct {
	mu      sync.Mutex
	pending []func()
	delays  []time.Duration
}

// NewManualTimer creates an empty manual timer.
func NewManualTimer() *ManualTimer {
	return &ManualTimer{}
}

// After records fn without scheduling it.
func (m *ManualTimer) After(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, fn)
	m.delays = append(m.delays, d)
}

// Pending returns the number of armed callbacks not yet fired.
func (m *ManualTimer) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Delays returns every delay ever armed, in arming order.
func (m *ManualTimer) Delays() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.delays))
	copy(out, m.delays)
	return out
}

// FireNext runs the oldest pending callback. It reports false when nothing
// is armed.
func (m *ManualTimer) FireNext() bool {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return false
	}
	fn := m.pending[0]
	m.pending = m.pending[1:]
	m.mu.Unlock()

	fn()
	return true
}

// FireAll runs pending callbacks until none remain, including ones armed
// by callbacks while firing. It returns how many ran.
func (m *ManualTimer) FireAll() int {
	n := 0
	for m.FireNext() {
		n++
	}
	return n
}
