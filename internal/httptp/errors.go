package httptp

import "errors"

var (
	// ErrNoEndpoint indicates the transport was built without an endpoint.
	ErrNoEndpoint = errors.New("httptp: no endpoint configured")
	// ErrClosed indicates Execute was called after Close.
	ErrClosed = errors.New("httptp: closed")
)
