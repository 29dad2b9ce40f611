package content

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/c360/coredata/errors"
	"github.com/c360/coredata/natsclient"
)

// Opener opens the content behind a URL. The caller closes the reader.
type Opener interface {
	Open(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, rawURL string) (io.ReadCloser, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return f(ctx, rawURL)
}

// Resolver routes URLs to the opener registered for their scheme. It is safe
// for concurrent use.
type Resolver struct {
	mu      sync.RWMutex
	openers map[string]Opener
	nats    *NATSOpener
	redis   *RedisOpener
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*resolverOptions)

type resolverOptions struct {
	httpClient  *http.Client
	natsClient  *natsclient.Client
	redisClient redis.UniversalClient
	openers     map[string]Opener
	logger      *slog.Logger
}

// WithHTTPClient replaces the HTTP client used for http and https URLs.
func WithHTTPClient(client *http.Client) Option {
	return func(o *resolverOptions) {
		o.httpClient = client
	}
}

// WithNATSClient uses an existing NATS client for nats URLs instead of dialing
// Config.NATS.URL. The resolver does not close it.
func WithNATSClient(client *natsclient.Client) Option {
	return func(o *resolverOptions) {
		o.natsClient = client
	}
}

// WithRedisClient uses an existing redis client for redis URLs instead of
// dialing Config.Redis.URL. The resolver does not close it.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *resolverOptions) {
		o.redisClient = client
	}
}

// WithOpener registers opener for scheme, replacing any built-in one.
func WithOpener(scheme string, opener Opener) Option {
	return func(o *resolverOptions) {
		o.openers[strings.ToLower(scheme)] = opener
	}
}

// WithLogger sets the logger. Default slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolverOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewResolver builds a resolver for file, http, https and, when configured,
// nats and redis URLs.
func NewResolver(cfg Config, opts ...Option) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := resolverOptions{openers: make(map[string]Opener), logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Resolver{openers: make(map[string]Opener), logger: o.logger}
	r.openers["file"] = FileOpener{BaseDir: cfg.BaseDir}

	httpOpener := NewHTTPOpener(cfg.HTTP, o.httpClient, cfg.MaxContentBytes)
	r.openers["http"] = httpOpener
	r.openers["https"] = httpOpener

	switch {
	case o.natsClient != nil:
		r.nats = NewNATSOpener(o.natsClient, cfg.NATS, cfg.MaxContentBytes, false)
	case cfg.NATS.URL != "":
		client, err := natsclient.NewClient(cfg.NATS.URL, natsOptions(cfg.NATS, o.logger)...)
		if err != nil {
			return nil, err
		}
		r.nats = NewNATSOpener(client, cfg.NATS, cfg.MaxContentBytes, true)
	}
	if r.nats != nil {
		r.openers["nats"] = r.nats
	}

	switch {
	case o.redisClient != nil:
		r.redis = NewRedisOpener(o.redisClient, cfg.Redis, cfg.MaxContentBytes, false)
	case cfg.Redis.URL != "":
		client, err := dialRedis(cfg.Redis)
		if err != nil {
			if closeErr := r.Close(context.Background()); closeErr != nil {
				err = stderrors.Join(err, closeErr)
			}
			return nil, err
		}
		r.redis = NewRedisOpener(client, cfg.Redis, cfg.MaxContentBytes, true)
	}
	if r.redis != nil {
		r.openers["redis"] = r.redis
		r.openers["rediss"] = r.redis
	}

	for scheme, opener := range o.openers {
		r.openers[scheme] = opener
	}
	return r, nil
}

// NATSStatus reports the object store connection state. ok is false when no
// nats opener is configured.
func (r *Resolver) NATSStatus() (status natsclient.ConnectionStatus, ok bool) {
	if r.nats == nil {
		return natsclient.StatusDisconnected, false
	}
	return r.nats.client.Status(), true
}

// Supports reports whether a scheme has an opener.
func (r *Resolver) Supports(scheme string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.openers[strings.ToLower(scheme)]
	return ok
}

// Open resolves rawURL and opens it. Every failure has kind SourceUnavailable.
func (r *Resolver) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	scheme := schemeOf(rawURL)

	r.mu.RLock()
	opener, ok := r.openers[scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Newf(errors.SourceUnavailable, "content.Open", nil,
			"no opener for scheme %q", scheme)
	}

	rc, err := opener.Open(ctx, rawURL)
	if err != nil {
		r.logger.Debug("Content open failed", "scheme", scheme, "url", redact(rawURL), "error", err)
		if errors.KindOf(err) == errors.SourceUnavailable {
			return nil, err
		}
		return nil, errors.Newf(errors.SourceUnavailable, "content.Open", err, "cannot open %s", redact(rawURL))
	}
	return rc, nil
}

// Close releases the NATS and redis connections the resolver dialed.
func (r *Resolver) Close(ctx context.Context) error {
	var errs []error
	if r.nats != nil {
		if err := r.nats.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// schemeOf returns the lower-cased URL scheme, or "file" for bare paths
// including Windows drive paths such as C:\data\x.xml.
func schemeOf(rawURL string) string {
	i := strings.Index(rawURL, "://")
	if i <= 1 {
		return "file"
	}
	return strings.ToLower(rawURL[:i])
}

// redact drops user info and query parameters, which may carry credentials.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return rawURL
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func natsOptions(cfg NATSConfig, logger *slog.Logger) []natsclient.ClientOption {
	opts := []natsclient.ClientOption{
		natsclient.WithTimeout(natsTimeout(cfg)),
		natsclient.WithClientName("coredata-content"),
		natsclient.WithLogger(logger),
	}
	switch {
	case cfg.Token != "":
		opts = append(opts, natsclient.WithToken(cfg.Token))
	case cfg.Username != "":
		opts = append(opts, natsclient.WithCredentials(cfg.Username, cfg.Password))
	}
	if cfg.MaxReconnects != 0 {
		opts = append(opts, natsclient.WithMaxReconnects(cfg.MaxReconnects))
	}
	if cfg.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(cfg.ReconnectWait))
	}
	return opts
}
