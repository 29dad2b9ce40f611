// Package enrich applies declarative enrichment rules to a message's canonical
// data and records every write in the message's audit trail.
//
// A rule names a target field, always rooted at "data", and a JSON-logic
// expression evaluated against caller-supplied input:
//
//	rules := []enrich.Rule{
//		{Field: "data.amount", Rule: map[string]any{"var": "new_amount"}},
//	}
//	err := engine.Enrich(ctx, msg, rules, map[string]any{"new_amount": 42}, "")
//
// A call is all-or-nothing. Every field path is validated before any rule
// runs, rules are evaluated in order against a copy of the data so later rules
// see earlier writes, and the result is committed together with a single audit
// entry holding one change per rule. When any path is invalid or any rule fails
// to evaluate, the message is left exactly as it was.
package enrich
