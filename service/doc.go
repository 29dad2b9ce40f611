// Package service wires the document parser and the enrichment engine into
// named, configuration-driven pipelines.
//
// A Pipeline processes one message at a time:
//
//	Received → Processing → (parse if data is empty) → (enrich) → Completed
//	                                     └──────── on error ───────→ Failed
//
// On failure the message keeps every audit entry written before the failing
// stage, its progress is set to Failed, PrevTask names the stage and
// PrevStatusCode holds the numeric code of the error ("1003" for a decode
// failure). Each stage runs in an OpenTelemetry span, is timed in the
// Prometheus registry and is reported to the health monitor.
//
// ProcessBatch fans a slice of messages out over a bounded errgroup; every
// message is owned by exactly one goroutine for the duration of the batch.
//
// Service builds all pipelines of a config.Config, sharing one content
// resolver and exposing metrics and health over HTTP when enabled:
//
//	svc, err := service.New(cfg, service.Dependencies{Logger: logger})
//	if err != nil {
//	    return err
//	}
//	if err := svc.Start(ctx); err != nil {
//	    return err
//	}
//	defer svc.Stop(context.Background())
//
//	err = svc.Process(ctx, "inbound", msg, input)
package service
