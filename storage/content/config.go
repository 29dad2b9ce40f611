package content

import (
	"fmt"
	"time"

	"github.com/c360/coredata/errors"
)

// Config configures the Resolver.
type Config struct {
	// BaseDir anchors relative file paths. Empty means the working directory.
	BaseDir string `json:"base_dir" yaml:"base_dir"`
	// MaxContentBytes bounds what any remote opener reads for one URL. Zero
	// means no limit.
	MaxContentBytes int64       `json:"max_content_bytes" yaml:"max_content_bytes"`
	HTTP            HTTPConfig  `json:"http" yaml:"http"`
	NATS            NATSConfig  `json:"nats" yaml:"nats"`
	Redis           RedisConfig `json:"redis" yaml:"redis"`
}

// HTTPConfig configures fetching over HTTP(S).
type HTTPConfig struct {
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// RatePerSecond limits requests across all messages. Zero disables limiting.
	RatePerSecond float64            `json:"rate_per_second" yaml:"rate_per_second"`
	Burst         int                `json:"burst" yaml:"burst"`
	Retry         errors.RetryConfig `json:"retry" yaml:"retry"`
}

// NATSConfig configures the object store opener. An empty URL disables it.
type NATSConfig struct {
	URL string `json:"url" yaml:"url"`
	// DefaultBucket is used for nats:///<object> URLs without a bucket.
	DefaultBucket string        `json:"default_bucket" yaml:"default_bucket"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout"`
	// Username and Password, or Token, authenticate the connection.
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	Token    string `json:"token,omitempty" yaml:"token,omitempty"`
	// MaxReconnects of zero keeps the client default, -1 retries forever.
	MaxReconnects int `json:"max_reconnects,omitempty" yaml:"max_reconnects,omitempty"`
	// ReconnectWait of zero keeps the client default.
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty" yaml:"reconnect_wait,omitempty"`
}

// RedisConfig configures the redis opener. An empty URL disables it.
type RedisConfig struct {
	URL string `json:"url" yaml:"url"`
	// KeyPrefix is prepended to every key named by a redis:// URL.
	KeyPrefix string        `json:"key_prefix" yaml:"key_prefix"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultConfig returns the resolver defaults.
func DefaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Timeout:       10 * time.Second,
			RatePerSecond: 50,
			Burst:         10,
			Retry:         errors.DefaultRetryConfig(),
		},
		NATS: NATSConfig{
			DefaultBucket: "payloads",
			Timeout:       5 * time.Second,
		},
		Redis: RedisConfig{
			Timeout: 5 * time.Second,
		},
	}
}

// Validate checks the configuration for impossible values.
func (c Config) Validate() error {
	if c.MaxContentBytes < 0 {
		return errors.WrapInvalid(fmt.Errorf("max content bytes %d is negative", c.MaxContentBytes),
			"Config", "Validate", "content limit check")
	}
	if c.HTTP.Timeout < 0 {
		return errors.WrapInvalid(fmt.Errorf("http timeout %v is negative", c.HTTP.Timeout),
			"Config", "Validate", "http timeout check")
	}
	if c.HTTP.RatePerSecond < 0 {
		return errors.WrapInvalid(fmt.Errorf("rate %v is negative", c.HTTP.RatePerSecond),
			"Config", "Validate", "http rate check")
	}
	if c.HTTP.RatePerSecond > 0 && c.HTTP.Burst < 1 {
		return errors.WrapInvalid(fmt.Errorf("burst must be at least 1 when rate limiting"),
			"Config", "Validate", "http burst check")
	}
	if c.HTTP.Retry.MaxRetries < 0 {
		return errors.WrapInvalid(fmt.Errorf("max retries %d is negative", c.HTTP.Retry.MaxRetries),
			"Config", "Validate", "retry check")
	}
	if c.NATS.Timeout < 0 || c.NATS.ReconnectWait < 0 {
		return errors.WrapInvalid(fmt.Errorf("nats timeout %v or reconnect wait %v is negative", c.NATS.Timeout, c.NATS.ReconnectWait),
			"Config", "Validate", "nats timeout check")
	}
	if c.Redis.Timeout < 0 {
		return errors.WrapInvalid(fmt.Errorf("redis timeout %v is negative", c.Redis.Timeout),
			"Config", "Validate", "redis timeout check")
	}
	return nil
}
