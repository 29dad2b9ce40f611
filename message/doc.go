// Package message provides the financial message envelope: a Payload describing
// where the raw content lives, a canonical data tree, processing Progress, and
// an append-only audit trail of AuditLog entries.
//
// # Construction
//
// A message is created once, with an identifier from an idgen.Generator:
//
//	ids, _ := idgen.NewSonyflake(idgen.SonyflakeConfig{})
//	payload := message.NewInline(xmlBytes, message.FormatXML, message.SchemaISO20022, message.EncodingUTF8)
//	msg, err := message.New(ids, payload, "tenant-a", "swift-gateway", message.WithAlias("pacs008"))
//
// The new message has nil data, status Received and a single audit entry
// described "Pacs008 created".
//
// # Mutation
//
// Canonical data changes only through Commit, which the document parser
// (processor/parser) and the enrichment engine (processor/enrich) call with the
// new data and the audit entry describing the change. Entries are never edited
// or removed. Data, Audit and LastAudit hand out deep copies, so readers cannot
// change a message behind its trail. Commit itself is exported for those two
// packages; other code that calls it is outside the audit guarantees.
//
// # Wire format
//
// Messages marshal to JSON with explicit tag tables for every enum:
//
//	type      inline | file
//	format    xml | json
//	schema    iso20022 | generic
//	encoding  UTF-8 | UTF-16 | UTF-32 | ASCII | ISO-8859-1
//	status    Recieved | Processing | Completed | Failed
//
// "Recieved" is the historical spelling and is kept for compatibility.
// Timestamps are ISO-8601 strings. Inline content is base64 encoded.
package message
