package schema

import (
	"sync"

	"github.com/c360/coredata/errors"
	"github.com/c360/coredata/message"
)

// Registry maps payload schemas to validators. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	validators map[message.Schema]Validator
}

// NewRegistry returns a registry holding the built-in validators.
func NewRegistry() (*Registry, error) {
	iso, err := ISO20022()
	if err != nil {
		return nil, err
	}
	r := &Registry{validators: make(map[message.Schema]Validator)}
	r.Register(message.SchemaISO20022, iso)
	r.Register(message.SchemaGeneric, WellFormed{})
	return r, nil
}

// Register installs or replaces the validator for s.
func (r *Registry) Register(s message.Schema, v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[s] = v
}

// Validator returns the validator registered for s.
func (r *Registry) Validator(s message.Schema) (Validator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[s]
	return v, ok
}

// Validate checks doc with the validator for s.
func (r *Registry) Validate(s message.Schema, doc any) error {
	v, ok := r.Validator(s)
	if !ok {
		return errors.Newf(errors.SchemaValidationFailure, "schema.Validate", nil,
			"no validator registered for schema %s", s)
	}
	return v.Validate(doc)
}
