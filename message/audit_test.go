package message_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/c360/coredata/errors"
	"github.com/c360/coredata/message"
	"github.com/c360/coredata/pkg/idgen"
	"github.com/c360/coredata/pkg/timestamp"
)

func TestNewAuditLog(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	entry, err := message.NewAuditLog(idgen.NewSequence(77), timestamp.Fixed(when),
		message.Provenance{Workflow: "wf", Task: "t1"}, "Payload parsed")
	require.NoError(t, err)

	assert.Equal(t, uint64(77), entry.ID)
	assert.Equal(t, when, entry.Timestamp)
	assert.Equal(t, "wf", entry.Workflow)
	assert.Equal(t, "t1", entry.Task)
	assert.Empty(t, entry.Hash)
	assert.NotNil(t, entry.Changes)
	assert.Empty(t, entry.Changes)
}

func TestNewAuditLog_IDFailure(t *testing.T) {
	_, err := message.NewAuditLog(idgen.Failing(errors.New("exhausted")), nil, message.Provenance{}, "x")
	assert.ErrorIs(t, err, cerrors.ErrIDExhausted)
}

func TestAuditLog_JSON(t *testing.T) {
	entry := message.AuditLog{
		ID:          9,
		Timestamp:   time.Date(2024, 1, 2, 3, 4, 5, 600000000, time.UTC),
		Provenance:  message.Provenance{Service: "enricher", Version: "2"},
		Description: "Enrichment applied",
		Hash:        "sha256:abc",
		Changes: []message.ChangeLog{
			{Field: "data.amount", OldValue: nil, NewValue: 42.0, Reason: "Enriched field data.amount"},
		},
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": 9,
		"timestamp": "2024-01-02T03:04:05.6Z",
		"workflow": "",
		"task": "",
		"description": "Enrichment applied",
		"hash": "sha256:abc",
		"service": "enricher",
		"instance": "",
		"version": "2",
		"changes": [
			{"field": "data.amount", "old_value": null, "new_value": 42, "reason": "Enriched field data.amount"}
		]
	}`, string(data))

	var decoded message.AuditLog
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, entry, decoded)
}

func TestAuditLog_NilChangesMarshalAsArray(t *testing.T) {
	data, err := json.Marshal(message.AuditLog{ID: 1})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []any{}, raw["changes"])
	assert.Equal(t, "", raw["timestamp"])
}

func TestAuditLog_BadTimestamp(t *testing.T) {
	var entry message.AuditLog
	err := json.Unmarshal([]byte(`{"id":1,"timestamp":"last tuesday","changes":[]}`), &entry)
	assert.Error(t, err)
}

func TestAuditLog_CloneIsDeep(t *testing.T) {
	ids := idgen.NewSequence(1)
	msg, err := message.New(ids, message.DefaultPayload(), "tenant", "origin")
	require.NoError(t, err)

	entry, err := message.NewAuditLog(ids, nil, message.Provenance{}, "Enrichment applied", message.ChangeLog{
		Field:    "data.party",
		OldValue: map[string]any{"bic": "OLD"},
		NewValue: map[string]any{"bic": "NEW", "tags": []any{"a"}},
		Reason:   "Enriched field data.party",
	})
	require.NoError(t, err)
	msg.Commit(map[string]any{"party": map[string]any{"bic": "NEW"}}, entry)

	// Edits to the committed entry value do not reach the trail.
	entry.Changes[0].OldValue.(map[string]any)["bic"] = "CALLER"

	// Nor do edits to a copy returned by Audit.
	trail := msg.Audit()
	last := trail[len(trail)-1]
	last.Changes[0].OldValue.(map[string]any)["bic"] = "TAMPERED"
	last.Changes[0].NewValue.(map[string]any)["tags"].([]any)[0] = "TAMPERED"
	last.Changes[0].Field = "data.other"

	stored, ok := msg.LastAudit()
	require.True(t, ok)
	assert.Equal(t, message.ChangeLog{
		Field:    "data.party",
		OldValue: map[string]any{"bic": "OLD"},
		NewValue: map[string]any{"bic": "NEW", "tags": []any{"a"}},
		Reason:   "Enriched field data.party",
	}, stored.Changes[0])
}
