package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/c360/coredata/errors"
)

// DefaultFailureThreshold is the number of consecutive failures after which a
// component is reported unhealthy.
const DefaultFailureThreshold = 3

// Monitor tracks health of multiple components in a thread-safe manner
type Monitor struct {
	mu        sync.RWMutex
	statuses  map[string]Status
	threshold int
	now       func() time.Time
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithFailureThreshold sets how many consecutive failures make a component
// unhealthy. Values below 1 are ignored.
func WithFailureThreshold(n int) MonitorOption {
	return func(m *Monitor) {
		if n > 0 {
			m.threshold = n
		}
	}
}

// NewMonitor creates a new health monitor
func NewMonitor(opts ...MonitorOption) *Monitor {
	m := &Monitor{
		statuses:  make(map[string]Status),
		threshold: DefaultFailureThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Update updates the health status for a named component
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = m.now()
	}
	m.statuses[name] = status
}

// Register adds a component as healthy with zeroed metrics unless it is
// already tracked.
func (m *Monitor) Register(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.statuses[name]; ok {
		return
	}
	status := NewHealthy(name, "Registered")
	status.Timestamp = m.now()
	m.statuses[name] = status.WithMetrics(&Metrics{})
}

// RecordSuccess marks a processing success for the component.
func (m *Monitor) RecordSuccess(name string) {
	m.record(name, nil)
}

// RecordFailure marks a processing failure for the component.
func (m *Monitor) RecordFailure(name string, err error) {
	m.record(name, err)
}

func (m *Monitor) record(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var metrics Metrics
	if prev, ok := m.statuses[name]; ok && prev.Metrics != nil {
		metrics = *prev.Metrics
	}
	metrics.Processed++
	metrics.LastActivity = now

	var status Status
	if err == nil {
		metrics.ConsecutiveFailures = 0
		metrics.LastErrorCode = 0
		status = NewHealthy(name, "Processing normally")
	} else {
		metrics.Failed++
		metrics.ConsecutiveFailures++
		metrics.LastErrorCode = errors.CodeOf(err)
		state := StateDegraded
		if metrics.ConsecutiveFailures >= m.threshold {
			state = StateUnhealthy
		}
		status = FromError(name, err, state)
	}
	status.Timestamp = now
	m.statuses[name] = status.WithMetrics(&metrics)
}

// Get retrieves the health status for a named component
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, exists := m.statuses[name]
	if exists && status.Metrics != nil {
		metrics := *status.Metrics
		status.Metrics = &metrics
	}
	return status, exists
}

// Remove removes a component from monitoring
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.statuses, name)
}

// AggregateHealth returns an aggregated health status with sub-statuses
// ordered by component name.
func (m *Monitor) AggregateHealth(systemName string) Status {
	m.mu.RLock()
	subStatuses := make([]Status, 0, len(m.statuses))
	for _, status := range m.statuses {
		subStatuses = append(subStatuses, status)
	}
	m.mu.RUnlock()

	sort.Slice(subStatuses, func(i, j int) bool {
		return subStatuses[i].Component < subStatuses[j].Component
	})
	return Aggregate(systemName, subStatuses)
}

// ListComponents returns the sorted names of all monitored components
func (m *Monitor) ListComponents() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.statuses))
	for name := range m.statuses {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handler serves the aggregate health as JSON. Unhealthy answers 503; healthy
// and degraded answer 200.
func (m *Monitor) Handler(systemName string) http.Handler {
	return StatusHandler(func() Status { return m.AggregateHealth(systemName) })
}

// StatusHandler serves the status returned by report with the same codes as
// Monitor.Handler.
func StatusHandler(report func() Status) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status := report()
		code := http.StatusOK
		if status.IsUnhealthy() {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	})
}
