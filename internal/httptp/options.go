package httptp

import (
	"net/http"
	"time"
)

// DefaultEndpoint is the production GraphQL endpoint.
const DefaultEndpoint = "https://api.airstack.xyz/gql"

// Options configures the HTTP transport.
//
// Defaults:
// - Endpoint: DefaultEndpoint
// - Timeout:  60s (used only if the incoming context has no deadline)
// - Client:   a fresh http.Client
//
// APIKey is sent verbatim in the Authorization header when non-empty.
type Options struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	Client   *http.Client
	Headers  http.Header
}

// Option mutates Options.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Endpoint: DefaultEndpoint,
		Timeout:  60 * time.Second,
	}
}

func WithEndpoint(url string) Option       { return func(o *Options) { o.Endpoint = url } }
func WithAPIKey(key string) Option         { return func(o *Options) { o.APIKey = key } }
func WithTimeout(d time.Duration) Option   { return func(o *Options) { o.Timeout = d } }
func WithHTTPClient(c *http.Client) Option { return func(o *Options) { o.Client = c } }
func WithHeader(name, value string) Option {
	return func(o *Options) {
		if o.Headers == nil {
			o.Headers = http.Header{}
		}
		o.Headers.Add(name, value)
	}
}
