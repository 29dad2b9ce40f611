package message

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/c360/coredata/errors"
	"github.com/c360/coredata/pkg/idgen"
	"github.com/c360/coredata/pkg/timestamp"
	"github.com/c360/coredata/pkg/tree"
)

// DefaultAlias names a message in its creation audit entry when no alias is given.
const DefaultAlias = "Message"

// Message is the aggregate root: a payload, its canonical data, its processing
// progress and the append-only audit trail of every mutation to the data.
//
// A Message is not safe for concurrent use. Callers give each message a single
// owner or guard it with their own lock.
type Message struct {
	id       uint64
	parentID *string
	payload  Payload
	tenant   string
	origin   string
	data     any
	metadata any
	progress Progress
	audit    []AuditLog
}

// Option configures message construction.
type Option func(*options)

type options struct {
	alias      string
	parentID   *string
	metadata   any
	clock      timestamp.Clock
	provenance Provenance
}

// WithAlias sets the human-readable name used in the creation audit entry.
// Default "Message".
func WithAlias(alias string) Option {
	return func(o *options) {
		if alias != "" {
			o.alias = alias
		}
	}
}

// WithParent links the message to the message it was derived or split from.
func WithParent(parentID string) Option {
	return func(o *options) {
		o.parentID = &parentID
	}
}

// WithMetadata sets the initial free-form metadata. Default nil.
func WithMetadata(metadata any) Option {
	return func(o *options) {
		o.metadata = metadata
	}
}

// WithClock sets the clock used for the progress and creation timestamps.
// Default wall clock.
func WithClock(clock timestamp.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithProvenance stamps the creation audit entry. Default empty provenance.
func WithProvenance(prov Provenance) Option {
	return func(o *options) {
		o.provenance = prov
	}
}

// New creates a message around payload. The id comes from ids; if ids fails no
// message is returned and the error is fatal (kind IDExhausted).
//
// The new message has nil data and metadata, status Received, and an audit
// trail holding exactly one "<Alias> created" entry.
func New(ids idgen.Generator, payload Payload, tenant, origin string, opts ...Option) (*Message, error) {
	o := options{alias: DefaultAlias, clock: timestamp.SystemClock}
	for _, opt := range opts {
		opt(&o)
	}

	id, err := ids.NextID()
	if err != nil {
		return nil, errors.New(errors.IDExhausted, "message.New", "message id assignment", err)
	}

	created, err := NewAuditLog(ids, o.clock, o.provenance, creationDescription(o.alias), ChangeLog{
		Field:  "payload",
		Reason: "Initial message creation for " + strings.ToLower(o.alias),
	})
	if err != nil {
		return nil, err
	}

	return &Message{
		id:       id,
		parentID: o.parentID,
		payload:  payload,
		tenant:   tenant,
		origin:   origin,
		metadata: o.metadata,
		progress: Progress{
			Status:    StatusReceived,
			Timestamp: timestamp.Now(o.clock),
		},
		audit: []AuditLog{created},
	}, nil
}

// creationDescription upper-cases the first letter of alias and appends " created".
func creationDescription(alias string) string {
	r, size := utf8.DecodeRuneInString(alias)
	if r == utf8.RuneError {
		return DefaultAlias + " created"
	}
	return string(unicode.ToUpper(r)) + alias[size:] + " created"
}

// ID returns the identifier assigned at construction.
func (m *Message) ID() uint64 { return m.id }

// ParentID returns the originating message id, if any.
func (m *Message) ParentID() (string, bool) {
	if m.parentID == nil {
		return "", false
	}
	return *m.parentID, true
}

// Payload returns the payload descriptor.
func (m *Message) Payload() Payload { return m.payload }

// Tenant returns the owning tenant.
func (m *Message) Tenant() string { return m.tenant }

// Origin returns the system the message came from.
func (m *Message) Origin() string { return m.origin }

// Data returns a deep copy of the canonical data tree. It is nil until the
// message is parsed. Editing the copy never changes the message.
func (m *Message) Data() any { return tree.Clone(m.data) }

// Metadata returns the free-form metadata.
func (m *Message) Metadata() any { return m.metadata }

// SetMetadata replaces the free-form metadata. Metadata is not audited.
func (m *Message) SetMetadata(metadata any) { m.metadata = metadata }

// Progress returns the processing progress.
func (m *Message) Progress() Progress { return m.progress }

// SetProgress replaces the processing progress. The timestamp is normalized.
func (m *Message) SetProgress(p Progress) {
	p.Timestamp = timestamp.Normalize(p.Timestamp)
	m.progress = p
}

// Audit returns a copy of the audit trail, oldest first.
func (m *Message) Audit() []AuditLog {
	out := make([]AuditLog, len(m.audit))
	for i, entry := range m.audit {
		out[i] = entry.Clone()
	}
	return out
}

// AuditLen returns the number of audit entries.
func (m *Message) AuditLen() int { return len(m.audit) }

// LastAudit returns the newest audit entry.
func (m *Message) LastAudit() (AuditLog, bool) {
	if len(m.audit) == 0 {
		return AuditLog{}, false
	}
	return m.audit[len(m.audit)-1].Clone(), true
}

// Commit replaces the canonical data and appends entry to the audit trail in
// one step. It is the only write path for data and is reserved for the
// document parser and the enrichment engine. Go visibility cannot restrict
// callers across packages, so the rule is a convention: any other caller
// bypasses the audit guarantees those two give. The message takes ownership of
// data; entry is copied.
//
// An entry stamped earlier than the current last entry is re-stamped with the
// last entry's time so the trail stays chronologically ordered.
func (m *Message) Commit(data any, entry AuditLog) {
	entry = entry.Clone()
	entry.Timestamp = timestamp.Normalize(entry.Timestamp)
	if n := len(m.audit); n > 0 && entry.Timestamp.Before(m.audit[n-1].Timestamp) {
		entry.Timestamp = m.audit[n-1].Timestamp
	}
	m.data = data
	m.audit = append(m.audit, entry)
}

// wireFormat is the canonical serialized form of a Message.
type wireFormat struct {
	ID       uint64     `json:"id"`
	ParentID *string    `json:"parent_id"`
	Payload  Payload    `json:"payload"`
	Tenant   string     `json:"tenant"`
	Origin   string     `json:"origin"`
	Data     any        `json:"data"`
	Metadata any        `json:"metadata"`
	Progress Progress   `json:"progress"`
	Audit    []AuditLog `json:"audit"`
}

// MarshalJSON implements json.Marshaler for Message.
func (m *Message) MarshalJSON() ([]byte, error) {
	audit := m.audit
	if audit == nil {
		audit = []AuditLog{}
	}
	return json.Marshal(wireFormat{
		ID:       m.id,
		ParentID: m.parentID,
		Payload:  m.payload,
		Tenant:   m.tenant,
		Origin:   m.origin,
		Data:     m.data,
		Metadata: m.metadata,
		Progress: m.progress,
		Audit:    audit,
	})
}

// UnmarshalJSON implements json.Unmarshaler for Message.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire wireFormat
	if err := json.Unmarshal(data, &wire); err != nil {
		return errors.WrapInvalid(err, "Message", "UnmarshalJSON", "wire format decode")
	}
	if wire.ID == 0 {
		return errors.WrapInvalid(errors.ErrInvalidData, "Message", "UnmarshalJSON", "id check")
	}

	*m = Message{
		id:       wire.ID,
		parentID: wire.ParentID,
		payload:  wire.Payload,
		tenant:   wire.Tenant,
		origin:   wire.Origin,
		data:     wire.Data,
		metadata: wire.Metadata,
		progress: wire.Progress,
		audit:    wire.Audit,
	}
	if m.audit == nil {
		m.audit = []AuditLog{}
	}
	return nil
}
