package message

import (
	"encoding/json"
	"time"

	"github.com/c360/coredata/errors"
	"github.com/c360/coredata/pkg/idgen"
	"github.com/c360/coredata/pkg/timestamp"
	"github.com/c360/coredata/pkg/tree"
)

// ChangeLog is a single field-level delta inside an AuditLog. A nil OldValue
// or NewValue means the value was absent or not captured.
type ChangeLog struct {
	Field    string `json:"field"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
	Reason   string `json:"reason"`
}

// Provenance identifies who performed a mutation. Empty fields mean "not
// applicable".
type Provenance struct {
	Workflow string `json:"workflow"`
	Task     string `json:"task"`
	Service  string `json:"service"`
	Instance string `json:"instance"`
	Version  string `json:"version"`
}

// AuditLog records one mutation of a message. Entries are immutable once
// appended to a message's audit trail.
type AuditLog struct {
	ID        uint64    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Provenance
	Description string `json:"description"`
	// Hash is an optional integrity tag supplied by the embedding system.
	Hash    string      `json:"hash"`
	Changes []ChangeLog `json:"changes"`
}

// NewAuditLog stamps a new entry with an id from ids and the current time of
// clock (wall clock when nil).
func NewAuditLog(ids idgen.Generator, clock timestamp.Clock, prov Provenance, description string, changes ...ChangeLog) (AuditLog, error) {
	id, err := ids.NextID()
	if err != nil {
		return AuditLog{}, errors.New(errors.IDExhausted, "message.NewAuditLog", "audit id assignment", err)
	}
	if changes == nil {
		changes = []ChangeLog{}
	}
	return AuditLog{
		ID:          id,
		Timestamp:   timestamp.Now(clock),
		Provenance:  prov,
		Description: description,
		Changes:     changes,
	}, nil
}

// Clone returns a deep copy: neither the Changes slice nor any object or array
// held in OldValue or NewValue is shared with a.
func (a AuditLog) Clone() AuditLog {
	changes := make([]ChangeLog, len(a.Changes))
	for i, c := range a.Changes {
		c.OldValue = tree.Clone(c.OldValue)
		c.NewValue = tree.Clone(c.NewValue)
		changes[i] = c
	}
	a.Changes = changes
	return a
}

// MarshalJSON renders the timestamp as ISO-8601.
func (a AuditLog) MarshalJSON() ([]byte, error) {
	type alias AuditLog
	if a.Changes == nil {
		a.Changes = []ChangeLog{}
	}
	return json.Marshal(struct {
		alias
		Timestamp string `json:"timestamp"`
	}{alias(a), timestamp.Format(a.Timestamp)})
}

// UnmarshalJSON parses the ISO-8601 timestamp.
func (a *AuditLog) UnmarshalJSON(data []byte) error {
	type alias AuditLog
	aux := struct {
		*alias
		Timestamp string `json:"timestamp"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ts, err := timestamp.Parse(aux.Timestamp)
	if err != nil {
		return err
	}
	a.Timestamp = ts
	if a.Changes == nil {
		a.Changes = []ChangeLog{}
	}
	return nil
}
