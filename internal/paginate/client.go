package paginate

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	eventbus "github.com/hanpama/pagegraph/internal/eventbus"
	events "github.com/hanpama/pagegraph/internal/events"
	language "github.com/hanpama/pagegraph/internal/language"
	pageinfo "github.com/hanpama/pagegraph/internal/pageinfo"
	reqid "github.com/hanpama/pagegraph/internal/reqid"
	rewrite "github.com/hanpama/pagegraph/internal/rewrite"
)

// Client executes queries and paginated traversals through a Transport.
type Client struct {
	transport Transport
	logger    *slog.Logger
}

type Option func(*Client)

// WithLogger sets the logger used for traversal diagnostics.
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.logger = l } }

// NewClient creates a Client on top of t.
func NewClient(t Transport, opts ...Option) *Client {
	c := &Client{transport: t, logger: slog.Default()}
	for _, f := range opts {
		f(c)
	}
	return c
}

// Execute runs query once, without any pagination bookkeeping.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (*Response, error) {
	resp, err := c.transport.Execute(ctx, query, variables)
	if err != nil {
		return nil, asTransportError(err)
	}
	return resp, nil
}

// ExecutePaginated starts a new traversal of query with its own History.
func (c *Client) ExecutePaginated(ctx context.Context, query string, variables map[string]any) (*Page, error) {
	return c.Paginate(ctx, query, variables, NewHistory())
}

// Paginate executes one step of the traversal recorded in h.
func (c *Client) Paginate(ctx context.Context, query string, variables map[string]any, h *History) (*Page, error) {
	if err := h.acquire(); err != nil {
		return nil, err
	}
	defer h.release()
	ctx, id := reqid.Ensure(ctx)
	p, err := c.step(ctx, id, query, variables, h)
	if err != nil {
		return nil, err
	}
	p.depth = h.Len()
	return p, nil
}

func (c *Client) step(ctx context.Context, traversal int64, query string, variables map[string]any, h *History) (*Page, error) {
	doc, err := language.ParseQuery(query)
	if err != nil {
		return nil, &ParseError{Query: query, Err: err}
	}
	if rewrite.AugmentPageInfo(doc) {
		query = language.Print(doc)
	}
	vars := maps.Clone(variables)
	if vars == nil {
		vars = map[string]any{}
	}

	resp, err := c.transport.Execute(ctx, query, vars)
	if err != nil {
		c.logger.WarnContext(ctx, "paginated query failed", "traversal", traversal, "error", err)
		return nil, asTransportError(err)
	}

	p := &Page{
		Data:       resp.Data,
		StatusCode: resp.StatusCode,
		Query:      query,
		Variables:  vars,
		Branches:   rewrite.Keys(doc),
		client:     c,
		history:    h,
		traversal:  traversal,
	}
	if p.Data == nil {
		p.Data = map[string]any{}
	}
	infos := pageinfo.Extract(p.Data)
	p.PageInfo = make(map[string]pageinfo.Info, len(p.Branches))
	for _, key := range p.Branches {
		info := infos[key]
		p.PageInfo[key] = info
		p.HasNextPage = p.HasNextPage || info.HasNext()
		p.HasPrevPage = p.HasPrevPage || info.HasPrev()
	}

	var unpaged []string
	for _, key := range slices.Sorted(maps.Keys(p.Data)) {
		if !slices.Contains(p.Branches, key) {
			unpaged = append(unpaged, key)
		}
	}
	if len(unpaged) > 0 {
		// Keys selected through top-level fragment spreads cannot be rewritten.
		c.logger.DebugContext(ctx, "response keys outside paginated branches",
			"traversal", traversal,
			"keys", unpaged,
		)
	}

	eventbus.Publish(ctx, events.PageFetched{
		Branches:    p.Branches,
		HasNextPage: p.HasNextPage,
		HasPrevPage: p.HasPrevPage,
	})
	c.logger.DebugContext(ctx, "page fetched",
		"traversal", traversal,
		"branches", p.Branches,
		"hasNextPage", p.HasNextPage,
		"hasPrevPage", p.HasPrevPage,
	)
	return p, nil
}
