package events

import "time"

// QueryStart is emitted before a query document is sent upstream. Call pairs
// it with its QueryFinish, since several queries may share one request id.
type QueryStart struct {
	Call     uint64
	Endpoint string
	Query    string
}

// QueryFinish is emitted after the upstream round trip completes.
// StatusCode is 0 when no HTTP response was received.
type QueryFinish struct {
	Call       uint64
	Endpoint   string
	Query      string
	StatusCode int
	Err        error
	Duration   time.Duration
}
