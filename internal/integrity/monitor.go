// Package integrity observes host-provided presentation-state transitions
// and emits timestamped integrity events without ever blocking the
// candidate. The monitor is an advisory telemetry sidecar: it records, it
// never forces navigation or rejects input.
package integrity

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/khangtgr/assessly/internal/model"
)

// Event is one proctoring-relevant transition, ready for fire-and-forget
// delivery to the backing store.
type Event struct {
	AttemptID  uuid.UUID
	Type       model.IntegrityEventType
	OccurredAt time.Time
}

// PresentationSource is the capability interface a platform adapter
// implements over its native full-screen and visibility callbacks. A fake
// source that synthesizes transitions makes the monitor fully testable.
type PresentationSource interface {
	OnExclusivePresentationLost(fn func())
	OnVisibilityLost(fn func())
}

// EventSink receives emitted events. Delivery is loss-tolerant; the
// monitor's local counters are the authoritative totals at submit time.
type EventSink interface {
	Publish(Event)
}

// Monitor counts full-screen exits and tab switches for one attempt. Both
// counters are monotonically non-decreasing for the attempt's lifetime.
type Monitor struct {
	attemptID uuid.UUID
	sink      EventSink
	clock     func() time.Time

	mu              sync.Mutex
	fullscreenExits int
	tabSwitches     int
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock overrides the monitor's time source.
func WithClock(clock func() time.Time) Option {
	return func(m *Monitor) { m.clock = clock }
}

// NewMonitor registers transition callbacks on the source and returns the
// monitor. Counters start at zero.
func NewMonitor(attemptID uuid.UUID, source PresentationSource, sink EventSink, opts ...Option) *Monitor {
	m := &Monitor{attemptID: attemptID, sink: sink, clock: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	source.OnExclusivePresentationLost(m.recordFullscreenExit)
	source.OnVisibilityLost(m.recordTabSwitch)
	return m
}

func (m *Monitor) recordFullscreenExit() {
	m.mu.Lock()
	m.fullscreenExits++
	m.mu.Unlock()
	m.emit(model.EventFullscreenExit)
}

func (m *Monitor) recordTabSwitch() {
	m.mu.Lock()
	m.tabSwitches++
	m.mu.Unlock()
	m.emit(model.EventTabSwitch)
}

func (m *Monitor) emit(eventType model.IntegrityEventType) {
	if m.sink == nil {
		return
	}
	m.sink.Publish(Event{AttemptID: m.attemptID, Type: eventType, OccurredAt: m.clock()})
}

// Counters returns the current totals. These travel with the final submit so
// the attempt record stays accurate even when individual event deliveries
// were dropped.
func (m *Monitor) Counters() (fullscreenExits, tabSwitches int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fullscreenExits, m.tabSwitches
}
