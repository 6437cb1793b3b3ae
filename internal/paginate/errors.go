package paginate

import (
	"errors"
	"fmt"
)

// ErrTraversalBusy is returned when a step starts while another step of the
// same traversal is still running.
var ErrTraversalBusy = errors.New("paginate: traversal step already in flight")

// ParseError reports query text that could not be parsed. It is fatal for the
// traversal.
type ParseError struct {
	Query string
	Err   error
}

func (e *ParseError) Error() string { return fmt.Sprintf("paginate: parse query: %v", e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// TransportError reports a failed round trip. StatusCode is 0 when no
// response was received.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("paginate: transport: status %d: %s", e.StatusCode, msg)
	}
	return "paginate: transport: " + msg
}

func (e *TransportError) Unwrap() error { return e.Err }

func asTransportError(err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	return &TransportError{Err: err}
}
