// Package schema validates decoded documents against the message standard named
// by a payload.
//
// A Registry maps each message.Schema to a Validator. NewRegistry installs the
// built-in validators:
//
//   - message.SchemaISO20022: JSON Schema (draft-07) over the canonical tree of
//     an ISO 20022 Document. The embedded schema covers FI to FI customer credit
//     transfers (pacs.008) and customer credit transfer initiations (pain.001).
//   - message.SchemaGeneric: well-formedness only; any non-empty document passes.
//
// Validation failures are returned as errors of kind SchemaValidationFailure
// whose Details carry one "field: description" line per violation.
package schema
