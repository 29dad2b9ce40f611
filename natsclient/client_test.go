package natsclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/coredata/errors"
)

func TestConnectionStatus_String(t *testing.T) {
	assert.Equal(t, "disconnected", StatusDisconnected.String())
	assert.Equal(t, "connecting", StatusConnecting.String())
	assert.Equal(t, "connected", StatusConnected.String())
	assert.Equal(t, "circuit_open", StatusCircuitOpen.String())
	assert.Equal(t, "closed", StatusClosed.String())
	assert.Equal(t, "unknown", ConnectionStatus(42).String())
}

func TestNewClient_Options(t *testing.T) {
	_, err := NewClient("")
	assert.True(t, errors.IsInvalid(err))

	_, err = NewClient("nats://localhost:4222", WithTimeout(0))
	assert.True(t, errors.IsInvalid(err))

	_, err = NewClient("nats://localhost:4222", WithCircuitBreaker(0, time.Second))
	assert.True(t, errors.IsInvalid(err))

	c, err := NewClient("nats://localhost:4222",
		WithTimeout(time.Second),
		WithMaxReconnects(0),
		WithClientName("coredata-test"),
		WithCredentials("user", "pass"))
	require.NoError(t, err)
	assert.Equal(t, "nats://localhost:4222", c.URL())
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.False(t, c.IsHealthy())

	_, err = c.JetStream()
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.True(t, errors.IsTransient(err))
}

func TestCircuitBreaker(t *testing.T) {
	c, err := NewClient("nats://127.0.0.1:1", WithCircuitBreaker(2, 10*time.Second))
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.recordFailure()
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.Equal(t, int32(1), c.Failures())

	c.recordFailure()
	assert.Equal(t, StatusCircuitOpen, c.Status())
	assert.False(t, c.circuitAllows())

	err = c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, errors.IsTransient(err))

	// Backoff of one second elapses, the circuit closes for the next attempt.
	now = now.Add(1500 * time.Millisecond)
	assert.True(t, c.circuitAllows())
	assert.Equal(t, StatusDisconnected, c.Status())

	// The next opening waits twice as long.
	c.recordFailure()
	c.recordFailure()
	now = now.Add(1500 * time.Millisecond)
	assert.False(t, c.circuitAllows())
	now = now.Add(time.Second)
	assert.True(t, c.circuitAllows())
}

func TestConnect_Unreachable(t *testing.T) {
	c, err := NewClient("nats://127.0.0.1:1", WithTimeout(200*time.Millisecond), WithMaxReconnects(0))
	require.NoError(t, err)

	err = c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, int32(1), c.Failures())
}

func TestClose_Idempotent(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, StatusClosed, c.Status())
	assert.ErrorIs(t, c.Connect(context.Background()), ErrClientClosed)
}
