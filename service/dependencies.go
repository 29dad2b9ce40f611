package service

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/c360/coredata/health"
	"github.com/c360/coredata/metric"
	"github.com/c360/coredata/natsclient"
	"github.com/c360/coredata/pkg/idgen"
	"github.com/c360/coredata/pkg/timestamp"
	"github.com/c360/coredata/storage/content"
)

// Dependencies are the shared collaborators injected into a Service. Nil
// fields are built from the configuration or fall back to defaults.
type Dependencies struct {
	Logger          *slog.Logger
	MetricsRegistry *metric.MetricsRegistry
	Health          *health.Monitor
	TracerProvider  trace.TracerProvider
	// IDs overrides the Sonyflake generator built from the idgen section.
	IDs   idgen.Generator
	Clock timestamp.Clock
	// NATSClient is shared with the content resolver and not closed by it.
	NATSClient *natsclient.Client
	// Openers registers extra content openers by URL scheme.
	Openers map[string]content.Opener
}
