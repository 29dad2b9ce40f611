// Package natsclient manages the NATS connection used to fetch payload content
// from JetStream object stores.
//
// The client wraps a single *nats.Conn with a simple circuit breaker: after a
// configurable number of consecutive connection failures it refuses further
// attempts until a backoff period has elapsed, doubling the backoff each time
// the circuit re-opens.
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//		natsclient.WithTimeout(5*time.Second),
//		natsclient.WithLogger(logger))
//	if err := client.Connect(ctx); err != nil { ... }
//	defer client.Close(ctx)
//
//	data, err := client.GetObject(ctx, "payloads", "2024/03/pacs008.xml", 16<<20)
//
// Tests use NewTestClient, which starts a NATS server with JetStream in a
// container through testcontainers-go.
package natsclient
