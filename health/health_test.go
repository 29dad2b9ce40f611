package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/coredata/errors"
)

func TestSanitizeErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"unix path", "failed to open /etc/coredata/config.json", "failed to open [PATH]"},
		{"windows path", "cannot read C:\\Users\\Admin\\payload.xml", "cannot read [PATH]"},
		{"http url", "fetch https://bank.example.com/payloads/1 failed", "fetch [URL] failed"},
		{"nats url", "cannot connect to nats://localhost:4222", "cannot connect to [URL]"},
		{"redis url", "get redis://cache:6379/0 failed", "get [URL] failed"},
		{"ip address", "timeout connecting to 192.168.1.100", "timeout connecting to [IP]"},
		{"port", "failed to bind to :8080", "failed to bind to [PORT]"},
		{"credential", "auth failed password=hunter2", "auth failed [REDACTED]"},
		{"plain", "rule evaluation failed", "rule evaluation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeErrorMessage(tt.input))
		})
	}
}

func TestFromError(t *testing.T) {
	err := errors.New(errors.SourceUnavailable, "content.Open", "fetch https://bank.example.com/x", nil)

	status := FromError("inbound", err, StateDegraded)
	assert.True(t, status.IsDegraded())
	assert.False(t, status.Healthy)
	assert.Contains(t, status.Message, "source_unavailable: ")
	assert.NotContains(t, status.Message, "bank.example.com")

	status = FromError("inbound", fmt.Errorf("plain"), StateUnhealthy)
	assert.True(t, status.IsUnhealthy())
	assert.Equal(t, "plain", status.Message)

	assert.True(t, FromError("inbound", nil, StateUnhealthy).IsHealthy())
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		subs []Status
		want string
	}{
		{"empty", nil, StateHealthy},
		{"all healthy", []Status{NewHealthy("a", ""), NewHealthy("b", "")}, StateHealthy},
		{"one degraded", []Status{NewHealthy("a", ""), NewDegraded("b", "")}, StateDegraded},
		{"unhealthy wins", []Status{NewDegraded("a", ""), NewUnhealthy("b", "")}, StateUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("coredata", tt.subs)
			assert.Equal(t, tt.want, got.Status)
			assert.Len(t, got.SubStatuses, len(tt.subs))
		})
	}
}

func TestStatus_WithSubStatusDoesNotShare(t *testing.T) {
	base := NewHealthy("root", "").WithSubStatus(NewHealthy("a", ""))
	first := base.WithSubStatus(NewHealthy("b", ""))
	second := base.WithSubStatus(NewDegraded("c", ""))

	assert.Equal(t, "b", first.SubStatuses[1].Component)
	assert.Equal(t, "c", second.SubStatuses[1].Component)
	assert.Len(t, base.SubStatuses, 1)
}

func TestMonitor_FailureThreshold(t *testing.T) {
	m := NewMonitor(WithFailureThreshold(2))
	failure := errors.New(errors.DecodeFailure, "parser.Parse", "malformed content", nil)

	m.Register("inbound")
	status, ok := m.Get("inbound")
	require.True(t, ok)
	assert.True(t, status.IsHealthy())

	m.RecordFailure("inbound", failure)
	status, _ = m.Get("inbound")
	assert.True(t, status.IsDegraded())
	assert.Equal(t, 1003, status.Metrics.LastErrorCode)

	m.RecordFailure("inbound", failure)
	status, _ = m.Get("inbound")
	assert.True(t, status.IsUnhealthy())
	assert.Equal(t, 2, status.Metrics.ConsecutiveFailures)

	m.RecordSuccess("inbound")
	status, _ = m.Get("inbound")
	assert.True(t, status.IsHealthy())
	assert.Equal(t, int64(3), status.Metrics.Processed)
	assert.Equal(t, int64(2), status.Metrics.Failed)
	assert.Zero(t, status.Metrics.ConsecutiveFailures)
	assert.Zero(t, status.Metrics.LastErrorCode)
}

func TestMonitor_RegisterKeepsExisting(t *testing.T) {
	m := NewMonitor()
	m.RecordFailure("inbound", fmt.Errorf("boom"))
	m.Register("inbound")

	status, _ := m.Get("inbound")
	assert.True(t, status.IsDegraded())
}

func TestMonitor_UpdateSetsNameAndTimestamp(t *testing.T) {
	m := NewMonitor()
	m.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }

	m.Update("cache", Status{Component: "wrong", Status: StateHealthy})
	status, ok := m.Get("cache")
	require.True(t, ok)
	assert.Equal(t, "cache", status.Component)
	assert.Equal(t, 2024, status.Timestamp.Year())

	m.Remove("cache")
	_, ok = m.Get("cache")
	assert.False(t, ok)
}

func TestMonitor_GetReturnsCopy(t *testing.T) {
	m := NewMonitor()
	m.RecordSuccess("inbound")

	status, _ := m.Get("inbound")
	status.Metrics.Processed = 100

	again, _ := m.Get("inbound")
	assert.Equal(t, int64(1), again.Metrics.Processed)
}

func TestMonitor_AggregateOrdered(t *testing.T) {
	m := NewMonitor()
	m.Register("b")
	m.Register("a")
	m.RecordFailure("c", fmt.Errorf("boom"))

	agg := m.AggregateHealth("coredata")
	assert.True(t, agg.IsDegraded())
	require.Len(t, agg.SubStatuses, 3)
	assert.Equal(t, "a", agg.SubStatuses[0].Component)
	assert.Equal(t, []string{"a", "b", "c"}, m.ListComponents())
}

func TestMonitor_Concurrent(t *testing.T) {
	m := NewMonitor()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				m.RecordSuccess("inbound")
			} else {
				m.RecordFailure("inbound", fmt.Errorf("boom"))
			}
			_ = m.AggregateHealth("coredata")
		}(i)
	}
	wg.Wait()

	status, _ := m.Get("inbound")
	assert.Equal(t, int64(20), status.Metrics.Processed)
	assert.Equal(t, int64(10), status.Metrics.Failed)
}

func TestMonitor_Handler(t *testing.T) {
	m := NewMonitor(WithFailureThreshold(1))
	m.Register("inbound")

	rec := httptest.NewRecorder()
	m.Handler("coredata").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "coredata", body.Component)
	assert.True(t, body.Healthy)

	m.RecordFailure("inbound", fmt.Errorf("boom"))
	rec = httptest.NewRecorder()
	m.Handler("coredata").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
