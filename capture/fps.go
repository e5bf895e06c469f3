package capture

import (
	"sync"
	"time"
)

// FPSMeter computes the instantaneous frame rate from the time between the
// two most recent successful reads
type FPSMeter struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
	fps  float64
}

// NewFPSMeter returns a meter using the wall clock
func NewFPSMeter() *FPSMeter {
	return NewFPSMeterWithClock(time.Now)
}

// NewFPSMeterWithClock returns a meter reading time from the given clock
func NewFPSMeterWithClock(now func() time.Time) *FPSMeter {
	return &FPSMeter{now: now}
}

// Tick records a successful read
func (m *FPSMeter) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.now()

	if !m.last.IsZero() {
		if dt := t.Sub(m.last).Seconds(); dt > 0 {
			m.fps = 1 / dt
		}
	}

	m.last = t
}

// FPS returns the current frame rate, zero until two reads were recorded
func (m *FPSMeter) FPS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.fps
}
