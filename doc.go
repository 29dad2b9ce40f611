// Package coredata is the data-mutation core of a message processing platform.
// It turns raw payloads into structured document trees and enriches them with
// rule-driven field changes, recording every step in an append-only audit trail.
//
// # Philosophy: Every Change Is Explained
//
// A message never changes without an audit entry saying who changed it, when,
// why, and what each field held before and after. Parsing and enrichment are
// the only two operations that mutate a message's data. Both either commit a
// complete change with its audit entry or leave the message untouched.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│            service                  │  Named pipelines, batches,
//	│   (pipelines, metrics, health)      │  lifecycle, /metrics, /health
//	└─────────────────────────────────────┘
//	           ↓ runs
//	┌─────────────────┐   ┌───────────────┐
//	│ processor/parser│ → │processor/enrich│  Parse once, then apply
//	│ (xml, json,     │   │ (rules, audit) │  rules in order
//	│  schemas)       │   └───────────────┘
//	└─────────────────┘           ↓ evaluates with
//	           ↓ reads from       processor/rule/expression
//	┌─────────────────────────────────────┐
//	│         storage/content             │  file, http(s), nats
//	│  (resolver, openers, retries)       │  object store, redis
//	└─────────────────────────────────────┘
//
// # Packages
//
//   - message: Message, Payload, Progress and AuditLog types with their JSON forms
//   - errors: the error classes and the numbered error kinds
//   - processor/parser: decoding of XML and JSON payloads, charset handling
//   - processor/schema: JSON Schema validation of parsed documents
//   - processor/enrich: the enrichment engine and rule definitions
//   - processor/rule/expression: the JSON rule expression evaluator
//   - storage/content: retrieval of by-reference payload content
//   - workflow: workflow definitions that contribute enrichment rules
//   - service: pipelines wired from configuration
//   - config: layered JSON and YAML configuration with environment overrides
//   - pkg/idgen, pkg/timestamp, pkg/tree: ids, clocks and document tree paths
//
// The coredata command in cmd/coredata runs payload files through a configured
// pipeline and prints the resulting messages as JSON.
package coredata
