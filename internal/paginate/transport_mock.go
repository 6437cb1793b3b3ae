package paginate

import (
	"context"
	"fmt"
	"maps"
	"sync"
)

// CallRecord captures a single Execute invocation for assertions.
type CallRecord struct {
	Query     string
	Variables map[string]any
}

// MockTransport implements Transport and returns pre-seeded responses in
// order, while recording Execute invocations for inspection.
type MockTransport struct {
	mu        sync.Mutex
	responses []map[string]any
	errs      []error
	idx       int
	calls     []CallRecord
	handler   func(query string, variables map[string]any) (map[string]any, error)
}

// NewMockTransport creates a MockTransport that returns the provided data
// payloads in order for successive Execute calls.
func NewMockTransport(responses ...map[string]any) *MockTransport {
	cp := make([]map[string]any, len(responses))
	copy(cp, responses)
	return &MockTransport{responses: cp}
}

// NewMockTransportWithErrors allows seeding per-call errors alongside
// responses. For call i, a non-nil errs[i] is returned instead of
// responses[i].
func NewMockTransportWithErrors(responses []map[string]any, errs []error) *MockTransport {
	m := NewMockTransport(responses...)
	m.errs = append([]error(nil), errs...)
	return m
}

// NewMockTransportFunc creates a MockTransport that answers every call with
// fn. Calls are still recorded.
func NewMockTransportFunc(fn func(query string, variables map[string]any) (map[string]any, error)) *MockTransport {
	return &MockTransport{handler: fn}
}

// Execute records the invocation and returns the next queued response.
// If responses are exhausted, it returns an error.
func (m *MockTransport) Execute(ctx context.Context, query string, variables map[string]any) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, CallRecord{Query: query, Variables: maps.Clone(variables)})

	if m.handler != nil {
		data, err := m.handler(query, variables)
		if err != nil {
			return nil, err
		}
		return &Response{Data: data, StatusCode: 200}, nil
	}

	if m.idx >= len(m.responses) && m.idx >= len(m.errs) {
		return nil, fmt.Errorf("mock transport: no more responses")
	}
	if m.idx < len(m.errs) {
		if err := m.errs[m.idx]; err != nil {
			m.idx++
			return nil, err
		}
	}
	var data map[string]any
	if m.idx < len(m.responses) {
		data = m.responses[m.idx]
	}
	m.idx++
	return &Response{Data: data, StatusCode: 200}, nil
}

// Calls returns a snapshot of recorded Execute invocations.
func (m *MockTransport) Calls() []CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CallRecord, len(m.calls))
	copy(out, m.calls)
	return out
}
