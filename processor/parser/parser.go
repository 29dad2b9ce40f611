package parser

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/c360/coredata/errors"
	"github.com/c360/coredata/message"
	"github.com/c360/coredata/pkg/idgen"
	"github.com/c360/coredata/pkg/timestamp"
	"github.com/c360/coredata/processor/schema"
	"github.com/c360/coredata/storage/content"
)

// DefaultDescription is the audit description used when the caller gives none.
const DefaultDescription = "Payload parsed"

// DataField is the message field written by Parse.
const DataField = "data"

// Config configures a Parser.
type Config struct {
	// MaxContentBytes bounds the raw payload size. Zero means no limit.
	MaxContentBytes int64 `json:"max_content_bytes" yaml:"max_content_bytes"`
	// DefaultDescription replaces DefaultDescription when set.
	DefaultDescription string `json:"default_description" yaml:"default_description"`
}

// DefaultConfig returns the parser defaults.
func DefaultConfig() Config {
	return Config{
		MaxContentBytes:    16 << 20,
		DefaultDescription: DefaultDescription,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxContentBytes < 0 {
		return errors.WrapInvalid(fmt.Errorf("max content bytes %d is negative", c.MaxContentBytes),
			"Config", "Validate", "size limit check")
	}
	return nil
}

// Parser reads a message payload, decodes it into a tree, validates it and
// stores it as the message data. A Parser may be shared; each message must
// still have a single owner.
type Parser struct {
	cfg        Config
	ids        idgen.Generator
	opener     content.Opener
	validators *schema.Registry
	decoders   map[message.Format]Decoder
	clock      timestamp.Clock
	provenance message.Provenance
	logger     *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithOpener sets how payload URLs are opened. Default is a content.Resolver
// with content.DefaultConfig.
func WithOpener(opener content.Opener) Option {
	return func(p *Parser) {
		p.opener = opener
	}
}

// WithValidators sets the schema registry. Default schema.NewRegistry().
func WithValidators(r *schema.Registry) Option {
	return func(p *Parser) {
		p.validators = r
	}
}

// WithDecoder installs or replaces the decoder for a format.
func WithDecoder(format message.Format, d Decoder) Option {
	return func(p *Parser) {
		p.decoders[format] = d
	}
}

// WithClock sets the clock used to stamp audit entries.
func WithClock(clock timestamp.Clock) Option {
	return func(p *Parser) {
		p.clock = clock
	}
}

// WithProvenance stamps every audit entry written by the parser.
func WithProvenance(prov message.Provenance) Option {
	return func(p *Parser) {
		p.provenance = prov
	}
}

// WithLogger sets the logger. Default slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a parser stamping audit entries with ids from ids.
func New(cfg Config, ids idgen.Generator, opts ...Option) (*Parser, error) {
	if ids == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Parser", "New", "id generator check")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.DefaultDescription == "" {
		cfg.DefaultDescription = DefaultDescription
	}

	p := &Parser{
		cfg: cfg,
		ids: ids,
		decoders: map[message.Format]Decoder{
			message.FormatXML:  NewXMLDecoder(),
			message.FormatJSON: NewJSONDecoder(),
		},
		clock:  timestamp.SystemClock,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.validators == nil {
		registry, err := schema.NewRegistry()
		if err != nil {
			return nil, errors.WrapFatal(err, "Parser", "New", "schema registry")
		}
		p.validators = registry
	}
	if p.opener == nil {
		resolver, err := content.NewResolver(content.DefaultConfig(), content.WithLogger(p.logger))
		if err != nil {
			return nil, err
		}
		p.opener = resolver
	}
	return p, nil
}

// Parse populates msg's data from its payload and appends one audit entry.
// On any error msg is unchanged.
func (p *Parser) Parse(ctx context.Context, msg *message.Message, description string) error {
	payload := msg.Payload()

	raw, err := p.read(ctx, payload)
	if err != nil {
		return err
	}

	text, err := Transcode(raw, payload.Encoding)
	if err != nil {
		return errors.Newf(errors.DecodeFailure, "parser.Parse", err, "payload is not valid %s", payload.Encoding)
	}

	decoder, ok := p.decoders[payload.Format]
	if !ok {
		return errors.Newf(errors.DecodeFailure, "parser.Parse", ErrUnsupportedInput, "cannot decode %s", payload.Format)
	}
	doc, err := decoder.Decode(text)
	if err != nil {
		return errors.Newf(errors.DecodeFailure, "parser.Parse", err, "malformed %s payload", payload.Format)
	}

	if err := p.validators.Validate(payload.Schema, doc); err != nil {
		if errors.KindOf(err) == errors.SchemaValidationFailure {
			return err
		}
		return errors.Newf(errors.SchemaValidationFailure, "parser.Parse", err, "%s document rejected", payload.Schema)
	}

	if description == "" {
		description = p.cfg.DefaultDescription
	}
	entry, err := message.NewAuditLog(p.ids, p.clock, p.provenance, description, message.ChangeLog{
		Field:  DataField,
		Reason: fmt.Sprintf("Parsed %s payload against %s schema", payload.Format, payload.Schema),
	})
	if err != nil {
		return err
	}
	msg.Commit(doc, entry)

	p.logger.Debug("Message parsed",
		"message_id", msg.ID(),
		"format", payload.Format.String(),
		"schema", payload.Schema.String(),
		"bytes", len(raw),
		"audit_id", entry.ID)
	return nil
}

// read returns the raw payload bytes: inline content first, then the URL.
func (p *Parser) read(ctx context.Context, payload message.Payload) ([]byte, error) {
	limit := p.cfg.MaxContentBytes

	if len(payload.Content) > 0 {
		if limit > 0 && int64(len(payload.Content)) > limit {
			return nil, p.tooLarge(int64(len(payload.Content)))
		}
		return payload.Content, nil
	}
	if payload.URL == "" {
		return nil, errors.New(errors.MissingSource, "parser.Parse", "payload has no content or URL", nil)
	}

	rc, err := p.opener.Open(ctx, payload.URL)
	if err != nil {
		if stderrors.Is(err, ErrContentTooLarge) {
			return nil, errors.Newf(errors.DecodeFailure, "parser.Parse", err, "payload at %s exceeds limit", payload.URL)
		}
		if errors.KindOf(err) == errors.SourceUnavailable {
			return nil, err
		}
		return nil, errors.Newf(errors.SourceUnavailable, "parser.Parse", err, "cannot open %s", payload.URL)
	}
	defer rc.Close()

	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Newf(errors.SourceUnavailable, "parser.Parse", err, "cannot read %s", payload.URL)
	}
	if limit > 0 && int64(len(raw)) > limit {
		return nil, p.tooLarge(int64(len(raw)))
	}
	return raw, nil
}

func (p *Parser) tooLarge(n int64) error {
	return errors.Newf(errors.DecodeFailure, "parser.Parse", ErrContentTooLarge,
		"payload of at least %d bytes exceeds limit of %d", n, p.cfg.MaxContentBytes)
}
