package message

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/c360/coredata/pkg/timestamp"
)

// Status is the coarse processing state of a message.
type Status int

const (
	// StatusReceived is the state of a newly constructed message.
	StatusReceived Status = iota
	// StatusProcessing means a workflow is running against the message.
	StatusProcessing
	// StatusCompleted means the last workflow finished successfully.
	StatusCompleted
	// StatusFailed means the last workflow stopped with an error.
	StatusFailed
)

// The "Recieved" spelling is the established wire tag and must not change
// without a version bump. The correct spelling is accepted on decode.
var statusTags = newTagTable("status", strings.ToLower, map[Status]string{
	StatusReceived:   "Recieved",
	StatusProcessing: "Processing",
	StatusCompleted:  "Completed",
	StatusFailed:     "Failed",
}).withAlias("Received", StatusReceived)

func (s Status) String() string                { return statusTags.name(s) }
func (s Status) MarshalText() ([]byte, error)  { return statusTags.marshal(s) }
func (s *Status) UnmarshalText(b []byte) error { return unmarshalInto(statusTags, b, s) }

// Terminal reports whether the status ends a processing run.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Progress tracks where a message is in its processing lifecycle. It is owned
// by the embedding system; the core only initializes it.
type Progress struct {
	Status         Status    `json:"status"`
	WorkflowID     string    `json:"workflow_id"`
	PrevTask       string    `json:"prev_task"`
	PrevStatusCode string    `json:"prev_status_code"`
	Timestamp      time.Time `json:"timestamp"`
}

// MarshalJSON renders the timestamp as ISO-8601.
func (p Progress) MarshalJSON() ([]byte, error) {
	type alias Progress
	return json.Marshal(struct {
		alias
		Timestamp string `json:"timestamp"`
	}{alias(p), timestamp.Format(p.Timestamp)})
}

// UnmarshalJSON parses the ISO-8601 timestamp.
func (p *Progress) UnmarshalJSON(data []byte) error {
	type alias Progress
	aux := struct {
		*alias
		Timestamp string `json:"timestamp"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ts, err := timestamp.Parse(aux.Timestamp)
	if err != nil {
		return err
	}
	p.Timestamp = ts
	return nil
}
