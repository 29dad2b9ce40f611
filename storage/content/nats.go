package content

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/c360/coredata/errors"
	"github.com/c360/coredata/natsclient"
)

// NATSOpener reads objects from a JetStream object store. URLs have the form
// nats://<bucket>/<object>; the object name may contain slashes.
type NATSOpener struct {
	client        *natsclient.Client
	defaultBucket string
	maxBytes      int64
	owned         bool

	mu sync.Mutex
}

// NewNATSOpener wraps client. When owned is true Close also closes the client.
// Objects over maxBytes are rejected from their metadata before any chunk is
// fetched; zero means no limit.
func NewNATSOpener(client *natsclient.Client, cfg NATSConfig, maxBytes int64, owned bool) *NATSOpener {
	return &NATSOpener{client: client, defaultBucket: cfg.DefaultBucket, maxBytes: maxBytes, owned: owned}
}

// Open fetches the object named by rawURL.
func (n *NATSOpener) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	bucket, object, err := n.locate(rawURL)
	if err != nil {
		return nil, err
	}
	if err := n.connect(ctx); err != nil {
		return nil, err
	}
	data, err := n.client.GetObject(ctx, bucket, object, n.maxBytes)
	if err != nil {
		if stderrors.Is(err, errors.ErrContentTooLarge) {
			return nil, errors.WrapInvalid(err, "NATSOpener", "Open", "size check")
		}
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Close closes the client if the opener created it.
func (n *NATSOpener) Close(ctx context.Context) error {
	if !n.owned {
		return nil
	}
	return n.client.Close(ctx)
}

// connect dials on first use. Concurrent first calls share one dial.
func (n *NATSOpener) connect(ctx context.Context) error {
	if n.client.IsHealthy() {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.client.IsHealthy() {
		return nil
	}
	return n.client.Connect(ctx)
}

func (n *NATSOpener) locate(rawURL string) (bucket, object string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", errors.WrapInvalid(err, "NATSOpener", "Open", "parse URL")
	}
	bucket = u.Host
	if bucket == "" {
		bucket = n.defaultBucket
	}
	object = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || object == "" {
		return "", "", errors.WrapInvalid(fmt.Errorf("%q is not nats://<bucket>/<object>", rawURL),
			"NATSOpener", "Open", "parse URL")
	}
	return bucket, object, nil
}

// natsTimeout returns the dial timeout, defaulting when unset.
func natsTimeout(cfg NATSConfig) time.Duration {
	if cfg.Timeout <= 0 {
		return 5 * time.Second
	}
	return cfg.Timeout
}
