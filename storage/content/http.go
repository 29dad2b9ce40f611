package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/coredata/errors"
	"github.com/c360/coredata/pkg/retry"
)

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 512

// HTTPOpener fetches http and https URLs.
type HTTPOpener struct {
	client   *http.Client
	limiter  *rate.Limiter
	retry    retry.Config
	timeout  time.Duration
	maxBytes int64
}

// NewHTTPOpener creates an opener. A nil client gets a default one. Bodies over
// maxBytes are rejected without being buffered; zero means no limit.
func NewHTTPOpener(cfg HTTPConfig, client *http.Client, maxBytes int64) *HTTPOpener {
	if client == nil {
		client = &http.Client{}
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	retryCfg := cfg.Retry.ToRetryConfig()
	retryCfg.Retryable = errors.IsTransient
	return &HTTPOpener{
		client:   client,
		limiter:  rate.NewLimiter(limit, burst),
		retry:    retryCfg,
		timeout:  cfg.Timeout,
		maxBytes: maxBytes,
	}
}

// Open fetches rawURL and returns its body. The response is read in full before
// returning so that the timeout covers the transfer and retries see body errors.
func (h *HTTPOpener) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	body, err := retry.DoWithResult(ctx, h.retry, func(ctx context.Context) ([]byte, error) {
		return h.fetch(ctx, rawURL)
	})
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (h *HTTPOpener) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, errors.WrapTransient(err, "HTTPOpener", "Open", "rate limit wait")
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.WrapInvalid(err, "HTTPOpener", "Open", "create request")
	}
	req.Header.Set("Accept", "application/xml, application/json;q=0.9, */*;q=0.1")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, errors.WrapTransient(err, "HTTPOpener", "Open", "send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, errors.WrapTransient(statusErr, "HTTPOpener", "Open", "status check")
		}
		return nil, errors.WrapInvalid(statusErr, "HTTPOpener", "Open", "status check")
	}

	if h.maxBytes > 0 && resp.ContentLength > h.maxBytes {
		return nil, errTooLarge("HTTPOpener", resp.ContentLength, h.maxBytes)
	}
	body, over, err := readLimited(resp.Body, h.maxBytes)
	if err != nil {
		return nil, errors.WrapTransient(err, "HTTPOpener", "Open", "read body")
	}
	if over {
		return nil, errTooLarge("HTTPOpener", int64(len(body)), h.maxBytes)
	}
	return body, nil
}
