package enrich

import (
	"context"
	"log/slog"

	"github.com/c360/coredata/errors"
	"github.com/c360/coredata/message"
	"github.com/c360/coredata/pkg/idgen"
	"github.com/c360/coredata/pkg/timestamp"
	"github.com/c360/coredata/pkg/tree"
)

// DefaultDescription is the audit description used when the caller gives none.
const DefaultDescription = "Enrichment applied"

// Evaluator evaluates a rule expression against input.
type Evaluator interface {
	Apply(rule, input any) (any, error)
}

// Engine applies enrichment rules to messages. An Engine holds no per-message
// state and may be shared; each message must still have a single owner.
type Engine struct {
	evaluator  Evaluator
	ids        idgen.Generator
	policy     tree.Policy
	clock      timestamp.Clock
	provenance message.Provenance
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy sets how non-object intermediate nodes are handled.
// Default tree.CoerceObjects.
func WithPolicy(policy tree.Policy) Option {
	return func(e *Engine) {
		e.policy = policy
	}
}

// WithClock sets the clock used to stamp audit entries.
func WithClock(clock timestamp.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithProvenance stamps every audit entry written by the engine.
func WithProvenance(prov message.Provenance) Option {
	return func(e *Engine) {
		e.provenance = prov
	}
}

// WithLogger sets the logger. Default slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an engine evaluating rules with evaluator and stamping audit
// entries with ids from ids.
func New(evaluator Evaluator, ids idgen.Generator, opts ...Option) (*Engine, error) {
	if evaluator == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Engine", "New", "evaluator check")
	}
	if ids == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Engine", "New", "id generator check")
	}
	e := &Engine{
		evaluator: evaluator,
		ids:       ids,
		policy:    tree.CoerceObjects,
		clock:     timestamp.SystemClock,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

type plannedRule struct {
	Rule
	path tree.Path
}

// Enrich evaluates rules in order against input and writes each result to its
// field. On success it appends exactly one audit entry with one change per
// rule. On any error msg is unchanged.
func (e *Engine) Enrich(ctx context.Context, msg *message.Message, rules []Rule, input any, description string) error {
	plan := make([]plannedRule, 0, len(rules))
	for _, r := range rules {
		path, err := r.target()
		if err != nil {
			return err
		}
		plan = append(plan, plannedRule{Rule: r, path: path})
	}

	if description == "" {
		description = DefaultDescription
	}

	data := msg.Data()
	changes := make([]message.ChangeLog, 0, len(plan))
	for _, r := range plan {
		if err := ctx.Err(); err != nil {
			return errors.WrapTransient(err, "Engine", "Enrich", "context check")
		}

		raw, err := e.evaluator.Apply(r.Rule.Rule, input)
		if err != nil {
			return errors.Newf(errors.RuleEvaluationFailure, "enrich.Enrich", err, "rule for %q failed", r.Field)
		}
		value, err := tree.Normalize(raw)
		if err != nil {
			return errors.Newf(errors.RuleEvaluationFailure, "enrich.Enrich", err, "rule for %q produced a non-data value", r.Field)
		}

		var old any
		data, old, err = tree.Set(data, r.path, tree.Clone(value), e.policy)
		if err != nil {
			return errors.Newf(errors.InvalidFieldPath, "enrich.Enrich", err, "cannot write %q", r.Field)
		}

		changes = append(changes, message.ChangeLog{
			Field:    r.Field,
			OldValue: tree.Clone(old),
			NewValue: tree.Clone(value),
			Reason:   r.reason(),
		})
	}

	entry, err := message.NewAuditLog(e.ids, e.clock, e.provenance, description, changes...)
	if err != nil {
		return err
	}
	msg.Commit(data, entry)

	e.logger.Debug("Message enriched",
		"message_id", msg.ID(),
		"rules", len(plan),
		"audit_id", entry.ID)
	return nil
}
