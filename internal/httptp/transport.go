package httptp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	eventbus "github.com/hanpama/pagegraph/internal/eventbus"
	events "github.com/hanpama/pagegraph/internal/events"
	"github.com/hanpama/pagegraph/internal/paginate"
)

// Transport posts query documents as JSON to a GraphQL endpoint and maps the
// outcome onto paginate.Response or *paginate.TransportError.
type Transport struct {
	opts   *Options
	client *http.Client
	closed atomic.Bool
}

// calls numbers round trips process-wide.
var calls atomic.Uint64

func New(opts ...Option) *Transport {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	client := o.Client
	if client == nil {
		client = &http.Client{}
	}
	return &Transport{opts: o, client: client}
}

// Ensure we satisfy paginate.Transport
var _ paginate.Transport = (*Transport)(nil)

type requestBody struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type responseBody struct {
	Data   map[string]any `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
	Error any `json:"error"`
}

func (t *Transport) Execute(ctx context.Context, query string, variables map[string]any) (resp *paginate.Response, err error) {
	if t.closed.Load() {
		return nil, &paginate.TransportError{Err: ErrClosed}
	}
	if t.opts.Endpoint == "" {
		return nil, &paginate.TransportError{Err: ErrNoEndpoint}
	}

	if _, ok := ctx.Deadline(); !ok && t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	call := calls.Add(1)
	start := time.Now()
	status := 0
	eventbus.Publish(ctx, events.QueryStart{Call: call, Endpoint: t.opts.Endpoint, Query: query})
	defer func() {
		eventbus.Publish(ctx, events.QueryFinish{
			Call:       call,
			Endpoint:   t.opts.Endpoint,
			Query:      query,
			StatusCode: status,
			Err:        err,
			Duration:   time.Since(start),
		})
	}()

	payload, err := json.Marshal(requestBody{Query: query, Variables: variables})
	if err != nil {
		return nil, &paginate.TransportError{Message: "encode request", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.opts.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &paginate.TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if t.opts.APIKey != "" {
		req.Header.Set("Authorization", t.opts.APIKey)
	}
	for name, values := range t.opts.Headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	hresp, err := t.client.Do(req)
	if err != nil {
		return nil, &paginate.TransportError{Err: err}
	}
	defer hresp.Body.Close()
	status = hresp.StatusCode

	raw, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, &paginate.TransportError{StatusCode: status, Message: "read response", Err: err}
	}
	return decodeResponse(status, hresp.Status, raw)
}

// decodeResponse maps an HTTP reply onto the transport contract:
//   - 422: the status text
//   - other non-200: the body's `error` member, or the raw body
//   - 200 with `errors`: the joined messages
//   - 200: the `data` member
func decodeResponse(status int, statusText string, raw []byte) (*paginate.Response, error) {
	var body responseBody
	decodeErr := json.Unmarshal(raw, &body)

	if status != http.StatusOK {
		if status == http.StatusUnprocessableEntity {
			return nil, &paginate.TransportError{StatusCode: status, Message: reason(status, statusText)}
		}
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && body.Error != nil {
			msg = fmt.Sprint(body.Error)
		}
		if msg == "" {
			msg = reason(status, statusText)
		}
		return nil, &paginate.TransportError{StatusCode: status, Message: msg}
	}
	if decodeErr != nil {
		return nil, &paginate.TransportError{StatusCode: status, Message: "invalid JSON response", Err: decodeErr}
	}
	if len(body.Errors) > 0 {
		msgs := make([]string, len(body.Errors))
		for i, e := range body.Errors {
			msgs[i] = e.Message
		}
		return nil, &paginate.TransportError{StatusCode: status, Message: strings.Join(msgs, "; ")}
	}
	return &paginate.Response{Data: body.Data, StatusCode: status}, nil
}

func reason(status int, statusText string) string {
	if statusText != "" {
		return statusText
	}
	return http.StatusText(status)
}

// Close makes further Execute calls fail and releases idle connections.
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.client.CloseIdleConnections()
	return nil
}
