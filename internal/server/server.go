package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	eventbus "github.com/hanpama/pagegraph/internal/eventbus"
	events "github.com/hanpama/pagegraph/internal/events"
	onchain "github.com/hanpama/pagegraph/internal/onchain"
	reqid "github.com/hanpama/pagegraph/internal/reqid"
)

// Grapher builds the ranked onchain graph of an identity.
type Grapher interface {
	Graph(ctx context.Context, identity string, w onchain.Weights) ([]onchain.Profile, error)
}

// Handler is an http.Handler that serves ranked onchain graphs as JSON.
// A partial graph is still served, with the failure listed under errors.
type Handler struct {
	graph   Grapher
	weights onchain.Weights
	opt     Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a handler answering with g, scoring with w.
func New(g Grapher, w onchain.Weights, opts ...Option) *Handler {
	op := Options{Timeout: 2 * time.Minute}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{graph: g, weights: w, opt: op}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.NewContext(ctx)
	w.Header().Set("X-Request-Id", strconv.FormatInt(rid, 10))
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	if r.Method == http.MethodOptions {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		writeJSON(w, status, errorResponse("method not allowed"), h.opt.Pretty)
		return
	}

	req, rerr := parseRequest(r, h.opt.MaxBodyBytes)
	if rerr != nil {
		status = http.StatusBadRequest
		if rerr.Error() == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResponse(rerr.Error()), h.opt.Pretty)
		return
	}

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	profiles, err := h.graph.Graph(ctx, req.Identity, h.weights)
	if req.Top > 0 && len(profiles) > req.Top {
		profiles = profiles[:req.Top]
	}
	res := graphResult{Data: profiles}
	if res.Data == nil {
		res.Data = []onchain.Profile{}
	}
	if err != nil {
		res.Errors = []apiError{{Message: err.Error()}}
		var oe *onchain.Error
		if errors.As(err, &oe) {
			res.Errors[0].Category = string(oe.Category)
		}
		if len(profiles) == 0 {
			status = http.StatusBadGateway
		}
	}
	writeJSON(w, status, res, h.opt.Pretty)
}

// ------------------ Request parsing ------------------

// GraphRequest names the identity (address, ENS name, social handle) whose
// graph is requested. Top limits the number of profiles returned; 0 returns
// all of them.
type GraphRequest struct {
	Identity string `json:"identity"`
	Top      int    `json:"top,omitempty"`
}

func parseRequest(r *http.Request, maxBody int64) (GraphRequest, error) {
	if r.Method == http.MethodGet {
		req := GraphRequest{Identity: strings.TrimSpace(r.URL.Query().Get("identity"))}
		if v := r.URL.Query().Get("top"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return GraphRequest{}, errors.New("invalid 'top'")
			}
			req.Top = n
		}
		if req.Identity == "" {
			return GraphRequest{}, errors.New("missing 'identity'")
		}
		return req, nil
	}

	// POST
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return GraphRequest{}, errors.New("unsupported Content-Type")
	}
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return GraphRequest{}, errors.New("failed to read body")
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return GraphRequest{}, errors.New(errBodyTooLargeMessage)
	}
	var req GraphRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return GraphRequest{}, errors.New("invalid JSON")
	}
	req.Identity = strings.TrimSpace(req.Identity)
	if req.Identity == "" {
		return GraphRequest{}, errors.New("missing 'identity'")
	}
	if req.Top < 0 {
		return GraphRequest{}, errors.New("invalid 'top'")
	}
	return req, nil
}

// ------------------ Response formatting ------------------

type apiError struct {
	Message  string `json:"message"`
	Category string `json:"category,omitempty"`
}

type graphResult struct {
	Data   []onchain.Profile `json:"data"`
	Errors []apiError        `json:"errors,omitempty"`
}

type errorResult struct {
	Data   any        `json:"data"`
	Errors []apiError `json:"errors"`
}

func errorResponse(msg string) errorResult {
	return errorResult{Errors: []apiError{{Message: msg}}}
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

const errBodyTooLargeMessage = "body too large"

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	if !contains(opts.AllowedOrigins, "*") && !contains(opts.AllowedOrigins, origin) {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
