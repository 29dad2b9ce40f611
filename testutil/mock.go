package testutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

// Common test errors
var (
	ErrMockNotFound   = errors.New("mock resource not found")
	ErrMockConnection = errors.New("mock connection error")
)

// MockOpener is an in-memory content opener keyed by URL.
type MockOpener struct {
	mu      sync.Mutex
	content map[string][]byte
	errs    map[string]error
	calls   []string
}

// NewMockOpener creates an empty opener.
func NewMockOpener() *MockOpener {
	return &MockOpener{
		content: make(map[string][]byte),
		errs:    make(map[string]error),
	}
}

// Put serves data for url.
func (m *MockOpener) Put(url string, data []byte) *MockOpener {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[url] = append([]byte(nil), data...)
	return m
}

// Fail makes every Open of url return err.
func (m *MockOpener) Fail(url string, err error) *MockOpener {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[url] = err
	return m
}

// Open returns a reader over the content stored for url.
func (m *MockOpener) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, url)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.errs[url]; ok {
		return nil, err
	}
	data, ok := m.content[url]
	if !ok {
		return nil, ErrMockNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Calls returns the URLs passed to Open, in order.
func (m *MockOpener) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
