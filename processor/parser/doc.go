// Package parser turns a message payload into the message's structured data.
//
// # Overview
//
// Parse runs a fixed pipeline over a Message:
//
//  1. Read the raw bytes: inline content when present, otherwise the payload
//     URL through a content.Opener. Neither present fails with MissingSource.
//  2. Transcode from the declared encoding (UTF-8, UTF-16, UTF-32, ASCII,
//     ISO-8859-1) to UTF-8.
//  3. Decode by format into a tree of map[string]any, []any and scalars.
//  4. Validate the tree with the validator registered for the payload schema.
//  5. Commit the tree as the message data with one audit entry.
//
// Steps 1 to 4 never touch the message, so a failed Parse leaves data and
// audit trail exactly as they were.
//
// # Usage
//
//	ids, _ := idgen.NewSonyflake(idgen.SonyflakeConfig{})
//	p, err := parser.New(parser.DefaultConfig(), ids,
//	    parser.WithProvenance(message.Provenance{Service: "ingest"}))
//	if err != nil {
//	    return err
//	}
//	if err := p.Parse(ctx, msg, ""); err != nil {
//	    switch errors.KindOf(err) {
//	    case errors.SchemaValidationFailure:
//	        // reject the message
//	    case errors.SourceUnavailable:
//	        // retry later
//	    }
//	}
//
// # XML Mapping
//
// XMLDecoder produces the same tree shape a JSON rendering of the document
// would have:
//
//	<Amt Ccy="EUR">10.00</Amt>        -> {"Amt": {"@Ccy": "EUR", "#text": "10.00"}}
//	<Nm>Muster GmbH</Nm>              -> {"Nm": "Muster GmbH"}
//	<A><L>1</L><L>2</L></A>           -> {"A": {"L": ["1", "2"]}}
//
// Element text is never converted to numbers; schemas describe amounts as
// strings.
//
// # Errors
//
// Decoding errors are reported as DecodeFailure with the decoder error in the
// chain (ErrEmptyData, ErrTrailingData, ErrInvalidEncoding, ...). Schema
// violations keep one entry per offending field in CoreError.Details.
package parser
