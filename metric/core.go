package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/coredata/errors"
)

// Namespace prefixes every coredata metric.
const Namespace = "coredata"

// ResultOK is the result label of a successful operation. Failures are
// labelled with the error kind, e.g. "decode_failure".
const ResultOK = "ok"

// Metrics contains the message processing metrics
type Metrics struct {
	ParseTotal        *prometheus.CounterVec
	EnrichTotal       *prometheus.CounterVec
	RulesApplied      *prometheus.CounterVec
	AuditEntries      *prometheus.CounterVec
	MessagesProcessed *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	InFlight          *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		ParseTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "parser",
				Name:      "parse_total",
				Help:      "Payload parse attempts by format, schema and result",
			},
			[]string{"pipeline", "format", "schema", "result"},
		),

		EnrichTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "enrich",
				Name:      "batches_total",
				Help:      "Enrichment batches by result",
			},
			[]string{"pipeline", "result"},
		),

		RulesApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "enrich",
				Name:      "rules_applied_total",
				Help:      "Rules applied in committed enrichment batches",
			},
			[]string{"pipeline"},
		),

		AuditEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "audit",
				Name:      "entries_total",
				Help:      "Audit entries appended to messages",
			},
			[]string{"pipeline", "operation"},
		),

		MessagesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "messages",
				Name:      "processed_total",
				Help:      "Messages that reached a terminal status",
			},
			[]string{"pipeline", "status"},
		),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pipeline", "stage"},
		),

		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "messages",
				Name:      "in_flight",
				Help:      "Messages currently being processed",
			},
			[]string{"pipeline"},
		),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.ParseTotal,
		c.EnrichTotal,
		c.RulesApplied,
		c.AuditEntries,
		c.MessagesProcessed,
		c.StageDuration,
		c.InFlight,
	}
}

// Result returns the result label for err.
func Result(err error) string {
	if err == nil {
		return ResultOK
	}
	return errors.KindOf(err).String()
}

// RecordParse counts a parse attempt and, on success, its audit entry.
func (c *Metrics) RecordParse(pipeline, format, schema string, err error) {
	c.ParseTotal.WithLabelValues(pipeline, format, schema, Result(err)).Inc()
	if err == nil {
		c.AuditEntries.WithLabelValues(pipeline, "parse").Inc()
	}
}

// RecordEnrich counts an enrichment batch. rules is only counted on success
// because failed batches are not committed.
func (c *Metrics) RecordEnrich(pipeline string, rules int, err error) {
	c.EnrichTotal.WithLabelValues(pipeline, Result(err)).Inc()
	if err == nil {
		c.RulesApplied.WithLabelValues(pipeline).Add(float64(rules))
		c.AuditEntries.WithLabelValues(pipeline, "enrich").Inc()
	}
}

// RecordProcessed counts a message reaching a terminal status.
func (c *Metrics) RecordProcessed(pipeline, status string) {
	c.MessagesProcessed.WithLabelValues(pipeline, status).Inc()
}

// RecordStageDuration records how long a stage took.
func (c *Metrics) RecordStageDuration(pipeline, stage string, duration time.Duration) {
	c.StageDuration.WithLabelValues(pipeline, stage).Observe(duration.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns the function that
// decrements it.
func (c *Metrics) TrackInFlight(pipeline string) func() {
	g := c.InFlight.WithLabelValues(pipeline)
	g.Inc()
	return g.Dec
}
