package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/c360/coredata/errors"
	"github.com/c360/coredata/health"
	"github.com/c360/coredata/message"
	"github.com/c360/coredata/metric"
	"github.com/c360/coredata/pkg/timestamp"
	"github.com/c360/coredata/processor/enrich"
)

const (
	instrumentationName    = "github.com/c360/coredata/service"
	instrumentationVersion = "0.1.0"
)

// Stage names used for progress, metrics and spans.
const (
	StageParse  = "parse"
	StageEnrich = "enrich"
)

// Parser populates a message's data from its payload.
type Parser interface {
	Parse(ctx context.Context, msg *message.Message, description string) error
}

// Enricher applies a rule batch to a message.
type Enricher interface {
	Enrich(ctx context.Context, msg *message.Message, rules []enrich.Rule, input any, description string) error
}

// Pipeline runs parse then enrich for one message at a time and keeps the
// message's progress current. A Pipeline is safe for concurrent use as long
// as each message has a single owner.
type Pipeline struct {
	name        string
	workflow    string
	description string
	rules       []enrich.Rule
	concurrency int

	parser   Parser
	enricher Enricher

	metrics    *metric.Metrics
	health     *health.Monitor
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	clock      timestamp.Clock
	logger     *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithRules sets the enrichment rules applied after parsing.
func WithRules(rules []enrich.Rule) PipelineOption {
	return func(p *Pipeline) {
		p.rules = append([]enrich.Rule(nil), rules...)
	}
}

// WithDescription sets the description of the enrichment audit entry.
func WithDescription(description string) PipelineOption {
	return func(p *Pipeline) {
		p.description = description
	}
}

// WithWorkflow records the workflow name in the message progress.
func WithWorkflow(name string) PipelineOption {
	return func(p *Pipeline) {
		p.workflow = name
	}
}

// WithConcurrency bounds ProcessBatch. Values below 1 select GOMAXPROCS.
func WithConcurrency(n int) PipelineOption {
	return func(p *Pipeline) {
		p.concurrency = n
	}
}

// WithPipelineMetrics records stage outcomes in m.
func WithPipelineMetrics(m *metric.Metrics) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithHealth reports each processed message to the monitor.
func WithHealth(monitor *health.Monitor) PipelineOption {
	return func(p *Pipeline) {
		p.health = monitor
	}
}

// WithTracerProvider sets the tracer provider. Default otel.GetTracerProvider().
func WithTracerProvider(tp trace.TracerProvider) PipelineOption {
	return func(p *Pipeline) {
		if tp != nil {
			p.tracer = tp.Tracer(instrumentationName, trace.WithInstrumentationVersion(instrumentationVersion))
		}
	}
}

// WithPipelineClock sets the clock used for progress timestamps.
func WithPipelineClock(clock timestamp.Clock) PipelineOption {
	return func(p *Pipeline) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithPipelineLogger sets the logger. Default slog.Default().
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a named pipeline.
func NewPipeline(name string, parser Parser, enricher Enricher, opts ...PipelineOption) (*Pipeline, error) {
	if name == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("pipeline name is required"), "Pipeline", "New", "name check")
	}
	if parser == nil || enricher == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Pipeline", "New", "processor check")
	}

	p := &Pipeline{
		name:       name,
		parser:     parser,
		enricher:   enricher,
		propagator: propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}),
		clock:      timestamp.SystemClock,
		logger:     slog.Default(),
	}
	WithTracerProvider(otel.GetTracerProvider())(p)
	for _, opt := range opts {
		opt(p)
	}
	if err := enrich.ValidateRules(p.rules); err != nil {
		return nil, err
	}
	if p.concurrency < 1 {
		p.concurrency = runtime.GOMAXPROCS(0)
	}
	p.logger = p.logger.With("pipeline", name)
	if p.health != nil {
		p.health.Register(name)
	}
	return p, nil
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }

// Rules returns a copy of the pipeline's rules.
func (p *Pipeline) Rules() []enrich.Rule {
	return append([]enrich.Rule(nil), p.rules...)
}

// Process runs the pipeline on msg. Progress moves to Processing, then to
// Completed, or to Failed with the error code in PrevStatusCode. Messages
// whose data is already populated skip the parse stage.
func (p *Pipeline) Process(ctx context.Context, msg *message.Message, input any) (err error) {
	ctx = p.extract(ctx, msg)
	ctx, span := p.tracer.Start(ctx, "coredata.pipeline.process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("coredata.pipeline", p.name),
			attribute.String("coredata.message.id", strconv.FormatUint(msg.ID(), 10)),
			attribute.String("coredata.tenant", msg.Tenant()),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, errors.KindOf(err).String())
		}
		span.End()
	}()

	if p.metrics != nil {
		defer p.metrics.TrackInFlight(p.name)()
	}

	logger := p.logger.With("message_id", msg.ID(), "tenant", msg.Tenant())
	p.advance(msg, message.StatusProcessing, msg.Progress().PrevTask, "")

	if msg.Data() == nil {
		payload := msg.Payload()
		err = p.stage(ctx, StageParse, func(ctx context.Context) error {
			return p.parser.Parse(ctx, msg, "")
		})
		if p.metrics != nil {
			p.metrics.RecordParse(p.name, payload.Format.String(), payload.Schema.String(), err)
		}
		if err != nil {
			return p.fail(logger, msg, StageParse, err)
		}
		p.advance(msg, message.StatusProcessing, StageParse, "")
	}

	if len(p.rules) > 0 {
		err = p.stage(ctx, StageEnrich, func(ctx context.Context) error {
			return p.enricher.Enrich(ctx, msg, p.rules, input, p.description)
		})
		if p.metrics != nil {
			p.metrics.RecordEnrich(p.name, len(p.rules), err)
		}
		if err != nil {
			return p.fail(logger, msg, StageEnrich, err)
		}
		p.advance(msg, message.StatusProcessing, StageEnrich, "")
	}

	p.advance(msg, message.StatusCompleted, msg.Progress().PrevTask, "")
	if p.metrics != nil {
		p.metrics.RecordProcessed(p.name, message.StatusCompleted.String())
	}
	if p.health != nil {
		p.health.RecordSuccess(p.name)
	}
	logger.Debug("Message processed", "audit_entries", msg.AuditLen())
	return nil
}

// stage runs fn in a child span and records its duration.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "coredata.pipeline."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	if p.metrics != nil {
		p.metrics.RecordStageDuration(p.name, name, time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.KindOf(err).String())
		span.SetAttributes(attribute.Int("coredata.error.code", errors.CodeOf(err)))
	}
	return err
}

// fail marks msg Failed with the error's numeric code and returns err.
func (p *Pipeline) fail(logger *slog.Logger, msg *message.Message, stage string, err error) error {
	p.advance(msg, message.StatusFailed, stage, strconv.Itoa(errors.CodeOf(err)))
	if p.metrics != nil {
		p.metrics.RecordProcessed(p.name, message.StatusFailed.String())
	}
	if p.health != nil {
		p.health.RecordFailure(p.name, err)
	}
	logger.Warn("Message processing failed",
		"stage", stage,
		"code", errors.CodeOf(err),
		"kind", errors.KindOf(err).String(),
		"class", errors.Classify(err).String(),
		"error", err)
	return err
}

func (p *Pipeline) advance(msg *message.Message, status message.Status, task, code string) {
	msg.SetProgress(message.Progress{
		Status:         status,
		WorkflowID:     p.workflow,
		PrevTask:       task,
		PrevStatusCode: code,
		Timestamp:      timestamp.Now(p.clock),
	})
}

// extract continues a trace carried in the message metadata, when the
// metadata is a string-keyed object holding W3C trace context entries.
func (p *Pipeline) extract(ctx context.Context, msg *message.Message) context.Context {
	meta, ok := msg.Metadata().(map[string]any)
	if !ok {
		return ctx
	}
	carrier := propagation.MapCarrier{}
	for k, v := range meta {
		if s, ok := v.(string); ok {
			carrier[k] = s
		}
	}
	return p.propagator.Extract(ctx, carrier)
}

// ProcessBatch processes msgs with at most the configured number of
// goroutines. Each message is handled by exactly one goroutine. The returned
// slice holds one error per message, nil on success. Messages not started
// before ctx is done get ctx.Err() and are left untouched.
func (p *Pipeline) ProcessBatch(ctx context.Context, msgs []*message.Message, input any) []error {
	results := make([]error, len(msgs))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, msg := range msgs {
		if err := ctx.Err(); err != nil {
			results[i] = err
			continue
		}
		i, msg := i, msg
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = err
				return nil
			}
			results[i] = p.Process(ctx, msg, input)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range results {
		if err != nil {
			failed++
		}
	}
	p.logger.Info("Batch processed", "messages", len(msgs), "failed", failed)
	return results
}
