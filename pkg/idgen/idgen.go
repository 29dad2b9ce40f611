// Package idgen provides the unique ID service used to stamp messages and
// audit entries.
//
// Generators must be safe for concurrent use: a single generator is shared by
// every message processed in a process. An error from NextID is fatal to the
// operation that requested the identifier.
package idgen

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/sonyflake"
)

// Generator produces globally unique, time-ordered 64-bit identifiers.
type Generator interface {
	NextID() (uint64, error)
}

// Func adapts a function to the Generator interface.
type Func func() (uint64, error)

// NextID calls f.
func (f Func) NextID() (uint64, error) {
	return f()
}

// ErrUnavailable is returned when a generator cannot be constructed.
var ErrUnavailable = errors.New("idgen: generator unavailable")

// SonyflakeConfig configures the Sonyflake generator.
type SonyflakeConfig struct {
	// StartTime is the epoch for the 39-bit time component. Zero means
	// 2014-09-01 00:00:00 UTC, the library default.
	StartTime time.Time `json:"start_time" yaml:"start_time"`
	// MachineID overrides the machine id derived from the private IP address.
	// Zero keeps the library default.
	MachineID uint16 `json:"machine_id" yaml:"machine_id"`
}

// Sonyflake generates ids with the Sonyflake layout: 39 bits of time in 10ms
// units, 8 bits of sequence, 16 bits of machine id.
type Sonyflake struct {
	sf *sonyflake.Sonyflake
}

// NewSonyflake creates a Sonyflake generator. It fails when the machine id cannot
// be determined or the start time lies in the future.
func NewSonyflake(cfg SonyflakeConfig) (*Sonyflake, error) {
	settings := sonyflake.Settings{StartTime: cfg.StartTime}
	if cfg.MachineID != 0 {
		id := cfg.MachineID
		settings.MachineID = func() (uint16, error) { return id, nil }
	}

	sf := sonyflake.NewSonyflake(settings)
	if sf == nil {
		return nil, fmt.Errorf("%w: sonyflake settings rejected (start time %s, machine id %d)",
			ErrUnavailable, cfg.StartTime.Format(time.RFC3339), cfg.MachineID)
	}
	return &Sonyflake{sf: sf}, nil
}

// NextID returns the next id. It fails once the 39-bit time space is exhausted.
func (s *Sonyflake) NextID() (uint64, error) {
	return s.sf.NextID()
}

// Sequence hands out consecutive ids starting at a fixed value. It exists for
// tests and replay tooling that need deterministic identifiers.
type Sequence struct {
	mu   sync.Mutex
	next uint64
}

// NewSequence returns a generator whose first id is start. A start of zero is
// moved to one: zero is never a valid id.
func NewSequence(start uint64) *Sequence {
	if start == 0 {
		start = 1
	}
	return &Sequence{next: start}
}

// NextID returns the next id in the sequence.
func (s *Sequence) NextID() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next == 0 {
		return 0, fmt.Errorf("%w: sequence exhausted", ErrUnavailable)
	}
	id := s.next
	s.next++
	return id, nil
}

// Failing returns a generator that always fails with err.
func Failing(err error) Generator {
	return Func(func() (uint64, error) { return 0, err })
}
