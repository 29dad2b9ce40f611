// Package testutil provides fixtures and test doubles shared by coredata tests.
//
// # Fixtures
//
// Sample documents are embedded from testdata/ and returned as fresh byte
// slices so tests may modify them:
//
//	xml := testutil.PACS008XML()           // valid pacs.008.001.07 credit transfer
//	bad := testutil.PACS008MissingMsgID()  // well-formed, fails ISO 20022 validation
//	js := testutil.PAIN001JSON()           // pain.001 initiation in canonical JSON form
//
// # Identifiers and time
//
// NewIDs returns a deterministic generator and FixedClock a clock pinned to
// FixedTime, so audit entries can be compared structurally.
//
// # Doubles
//
// MockOpener serves content by URL from memory and records every Open call.
// It is safe for concurrent use.
package testutil
