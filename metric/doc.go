// Package metric provides the Prometheus metrics for message processing.
//
// A MetricsRegistry owns a private prometheus.Registry with the processing
// metrics (Metrics) and the Go runtime collectors. Components add their own
// collectors through the MetricsRegistrar interface; Server exposes everything
// on /metrics.
//
// Result labels are "ok" or the error kind name, so a dashboard can split
// failures into decode, schema and rule problems without parsing messages:
//
//	coredata_parser_parse_total{pipeline="inbound",format="xml",schema="iso20022",result="schema_validation_failure"}
package metric
