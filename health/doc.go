// Package health tracks the health of coredata pipelines and content sources.
//
// Three states are reported: healthy, degraded and unhealthy. A Monitor keeps
// one Status per named component and folds processing outcomes into it: a
// success resets a component to healthy, a failure degrades it, and a run of
// consecutive failures at or above the monitor's threshold marks it unhealthy.
//
//	monitor := health.NewMonitor(health.WithFailureThreshold(5))
//	monitor.RecordSuccess("inbound")
//	monitor.RecordFailure("inbound", err)
//
//	status := monitor.AggregateHealth("coredata")
//	if status.IsUnhealthy() {
//	    // alert
//	}
//
// Error messages are sanitized before they are stored so that URLs, paths,
// addresses and credentials from failed content fetches never reach the
// health endpoint. Monitor.Handler serves the aggregate as JSON and answers
// 503 when the aggregate is unhealthy.
package health
