package paginate

import "context"

// Response is a successful round trip: the `data` member of the GraphQL
// response and the HTTP status it came with.
type Response struct {
	Data       map[string]any
	StatusCode int
}

// Transport sends a query document with its variables upstream.
//
// Implementations report failures as errors, preferably *TransportError, and
// own any retry or timeout policy. They must be safe for concurrent use:
// independent traversals may share one Transport.
//
// Provided implementations:
//   - internal/httptp.Transport: JSON over HTTP POST
//   - MockTransport: pre-seeded responses for tests
type Transport interface {
	Execute(ctx context.Context, query string, variables map[string]any) (*Response, error)
}
