// Package retry provides exponential backoff for transient failures.
//
// The content openers use it when an external payload (HTTP URL, object store
// entry) cannot be reached on the first attempt:
//
//	cfg := retry.DefaultConfig()
//	cfg.Retryable = errors.IsTransient
//	body, err := retry.DoWithResult(ctx, cfg, func(ctx context.Context) ([]byte, error) {
//	    return fetch(ctx, url)
//	})
//
// Errors rejected by Config.Retryable are returned unwrapped on the first
// occurrence. Cancellation of ctx stops the loop during backoff.
package retry
