// Package content opens the byte streams behind file-backed payloads.
//
// A Resolver dispatches on the URL scheme of Payload.URL:
//
//   - file:///abs/path and bare paths read the local filesystem. Relative paths
//     are resolved against Config.BaseDir.
//   - http:// and https:// issue a GET with a per-request timeout, a shared
//     token-bucket rate limit and retries on transient failures (network
//     errors, 429 and 5xx responses).
//   - nats://<bucket>/<object> reads an object from a NATS JetStream object
//     store. The connection is opened on first use.
//   - redis://<key> reads a string value from redis, with Config.Redis.KeyPrefix
//     prepended to the key.
//
// Every failure is reported as an error of kind SourceUnavailable; the cause is
// kept in the chain so callers can still tell a missing file from a timeout.
package content
