package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/coredata/config"
	"github.com/c360/coredata/errors"
	"github.com/c360/coredata/health"
	"github.com/c360/coredata/message"
	"github.com/c360/coredata/metric"
	"github.com/c360/coredata/natsclient"
	"github.com/c360/coredata/pkg/idgen"
	"github.com/c360/coredata/pkg/timestamp"
	"github.com/c360/coredata/processor/enrich"
	"github.com/c360/coredata/processor/parser"
	"github.com/c360/coredata/processor/rule/expression"
	"github.com/c360/coredata/storage/content"
)

// Status represents the current status of a service
type Status int

// Possible service statuses
const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Info holds runtime information for a service
type Info struct {
	Name              string        `json:"name"`
	Instance          string        `json:"instance"`
	Status            string        `json:"status"`
	Uptime            time.Duration `json:"uptime"`
	StartTime         time.Time     `json:"start_time"`
	MessagesProcessed int64         `json:"messages_processed"`
	MessagesFailed    int64         `json:"messages_failed"`
	LastActivity      time.Time     `json:"last_activity"`
	Pipelines         []string      `json:"pipelines"`
}

// Service owns the pipelines built from a configuration together with the
// content resolver, metrics endpoint and health monitor they share.
type Service struct {
	name      string
	cfg       *config.Config
	pipelines map[string]*Pipeline
	resolver  *content.Resolver
	registry  *metric.MetricsRegistry
	health    *health.Monitor
	server    *metric.Server
	logger    *slog.Logger

	status       atomic.Value // Status
	startTime    atomic.Value // time.Time
	lastActivity atomic.Value // time.Time
	processed    atomic.Int64
	failed       atomic.Int64

	mu sync.Mutex
}

// New builds a service from cfg. Every configured pipeline gets its own parser
// and enrichment engine stamped with the pipeline's provenance; the content
// resolver, schema registry and evaluator are shared.
func New(cfg *config.Config, deps Dependencies) (*Service, error) {
	if cfg == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Service", "New", "config check")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("service", cfg.Platform.Service, "instance", cfg.Platform.Instance)

	ids := deps.IDs
	if ids == nil {
		sf, err := idgen.NewSonyflake(cfg.IDGen)
		if err != nil {
			return nil, errors.WrapFatal(err, "Service", "New", "id generator")
		}
		ids = sf
	}
	clock := deps.Clock
	if clock == nil {
		clock = timestamp.SystemClock
	}
	registry := deps.MetricsRegistry
	if registry == nil {
		registry = metric.NewMetricsRegistry()
	}
	monitor := deps.Health
	if monitor == nil {
		monitor = health.NewMonitor()
	}
	policy, err := cfg.PathPolicy()
	if err != nil {
		return nil, errors.WrapInvalid(err, "Service", "New", "path policy")
	}

	resolverOpts := []content.Option{content.WithLogger(logger)}
	if deps.NATSClient != nil {
		resolverOpts = append(resolverOpts, content.WithNATSClient(deps.NATSClient))
	}
	for scheme, opener := range deps.Openers {
		resolverOpts = append(resolverOpts, content.WithOpener(scheme, opener))
	}
	sources := cfg.Sources
	if sources.MaxContentBytes == 0 {
		sources.MaxContentBytes = cfg.Parser.MaxContentBytes
	}
	resolver, err := content.NewResolver(sources, resolverOpts...)
	if err != nil {
		return nil, err
	}

	s := &Service{
		name:      cfg.Platform.Service,
		cfg:       cfg,
		pipelines: make(map[string]*Pipeline, len(cfg.Pipelines)),
		resolver:  resolver,
		registry:  registry,
		health:    monitor,
		logger:    logger,
	}
	s.status.Store(StatusStopped)
	s.startTime.Store(time.Time{})
	s.lastActivity.Store(time.Time{})

	evaluator := expression.NewEvaluator()
	for name, pc := range cfg.Pipelines {
		rules, err := cfg.PipelineRules(name)
		if err != nil {
			_ = resolver.Close(context.Background())
			return nil, err
		}
		prov := message.Provenance{
			Workflow: pc.Workflow,
			Task:     name,
			Service:  cfg.Platform.Service,
			Instance: cfg.Platform.Instance,
			Version:  cfg.Platform.Version,
		}

		p, err := parser.New(cfg.Parser, ids,
			parser.WithOpener(resolver),
			parser.WithProvenance(prov),
			parser.WithClock(clock),
			parser.WithLogger(logger))
		if err != nil {
			_ = resolver.Close(context.Background())
			return nil, err
		}
		e, err := enrich.New(evaluator, ids,
			enrich.WithPolicy(policy),
			enrich.WithProvenance(prov),
			enrich.WithClock(clock),
			enrich.WithLogger(logger))
		if err != nil {
			_ = resolver.Close(context.Background())
			return nil, err
		}

		pipeline, err := NewPipeline(name, p, e,
			WithRules(rules),
			WithDescription(pc.Description),
			WithWorkflow(pc.Workflow),
			WithConcurrency(pc.Concurrency),
			WithPipelineMetrics(registry.CoreMetrics()),
			WithHealth(monitor),
			WithTracerProvider(deps.TracerProvider),
			WithPipelineClock(clock),
			WithPipelineLogger(logger))
		if err != nil {
			_ = resolver.Close(context.Background())
			return nil, err
		}
		s.pipelines[name] = pipeline
	}

	if cfg.Metrics.Enabled {
		s.server = metric.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path, registry)
		s.server.Handle("/health", health.StatusHandler(s.Health))
	}
	return s, nil
}

// Name returns the service name
func (s *Service) Name() string {
	return s.name
}

// Status returns the current service status
func (s *Service) Status() Status {
	return s.status.Load().(Status)
}

// Health returns the aggregated health of all pipelines.
func (s *Service) Health() health.Status {
	if s.Status() != StatusRunning {
		return health.NewUnhealthy(s.name, "Service is "+s.Status().String())
	}
	status := s.health.AggregateHealth(s.name)
	if conn, ok := s.resolver.NATSStatus(); ok {
		sub := natsHealth(conn)
		status = status.WithSubStatus(sub)
		if status.IsHealthy() && !sub.IsHealthy() {
			status.Status, status.Healthy = health.StateDegraded, false
			status.Message = "Object store " + conn.String()
		}
	}
	return status
}

// natsHealth maps the object store connection onto a health status. The
// connection is dialled on first use, so a client that never connected is
// still healthy.
func natsHealth(conn natsclient.ConnectionStatus) health.Status {
	const component = "content.nats"
	switch conn {
	case natsclient.StatusConnected, natsclient.StatusDisconnected:
		return health.NewHealthy(component, conn.String())
	case natsclient.StatusConnecting:
		return health.NewDegraded(component, conn.String())
	default:
		return health.NewUnhealthy(component, conn.String())
	}
}

// Pipeline returns the named pipeline.
func (s *Service) Pipeline(name string) (*Pipeline, bool) {
	p, ok := s.pipelines[name]
	return p, ok
}

// Start starts the metrics endpoint when enabled. Starting a running service
// is a no-op.
func (s *Service) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.Status()
	if current == StatusRunning || current == StatusStarting {
		return nil
	}
	s.status.Store(StatusStarting)

	if s.server != nil {
		if err := s.server.Start(); err != nil {
			s.status.Store(StatusStopped)
			return err
		}
		s.logger.Info("Metrics server started", "address", s.server.Address())
	}

	now := time.Now()
	s.startTime.Store(now)
	s.lastActivity.Store(now)
	s.status.Store(StatusRunning)
	s.logger.Info("Service started", "pipelines", len(s.pipelines))
	return nil
}

// Stop stops the metrics endpoint and releases the content resolver, waiting
// at most until ctx is done.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.Status()
	if current == StatusStopped || current == StatusStopping {
		return nil
	}
	s.status.Store(StatusStopping)

	var errs []error
	if s.server != nil {
		if err := s.server.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.resolver.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	s.status.Store(StatusStopped)
	s.logger.Info("Service stopped",
		"processed", s.processed.Load(),
		"failed", s.failed.Load())
	if len(errs) > 0 {
		return errors.WrapTransient(stderrors.Join(errs...), "Service", "Stop", "release resources")
	}
	return nil
}

// Process runs the named pipeline on msg.
func (s *Service) Process(ctx context.Context, pipeline string, msg *message.Message, input any) error {
	p, ok := s.pipelines[pipeline]
	if !ok {
		return errors.WrapInvalid(fmt.Errorf("unknown pipeline %q", pipeline), "Service", "Process", "pipeline lookup")
	}
	err := p.Process(ctx, msg, input)
	s.track(err)
	return err
}

// ProcessBatch runs the named pipeline on msgs. See Pipeline.ProcessBatch.
func (s *Service) ProcessBatch(ctx context.Context, pipeline string, msgs []*message.Message, input any) ([]error, error) {
	p, ok := s.pipelines[pipeline]
	if !ok {
		return nil, errors.WrapInvalid(fmt.Errorf("unknown pipeline %q", pipeline), "Service", "ProcessBatch", "pipeline lookup")
	}
	results := p.ProcessBatch(ctx, msgs, input)
	for _, err := range results {
		s.track(err)
	}
	return results, nil
}

func (s *Service) track(err error) {
	s.processed.Add(1)
	if err != nil {
		s.failed.Add(1)
	}
	s.lastActivity.Store(time.Now())
}

// Info returns runtime information about the service.
func (s *Service) Info() Info {
	names := make([]string, 0, len(s.pipelines))
	for name := range s.pipelines {
		names = append(names, name)
	}
	sort.Strings(names)

	start := s.startTime.Load().(time.Time)
	var uptime time.Duration
	if !start.IsZero() && s.Status() == StatusRunning {
		uptime = time.Since(start)
	}
	return Info{
		Name:              s.name,
		Instance:          s.cfg.Platform.Instance,
		Status:            s.Status().String(),
		Uptime:            uptime,
		StartTime:         start,
		MessagesProcessed: s.processed.Load(),
		MessagesFailed:    s.failed.Load(),
		LastActivity:      s.lastActivity.Load().(time.Time),
		Pipelines:         names,
	}
}

// MetricsAddress returns the scrape URL, or "" when metrics are disabled.
func (s *Service) MetricsAddress() string {
	if s.server == nil {
		return ""
	}
	return s.server.Address()
}
