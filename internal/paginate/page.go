package paginate

import (
	"context"
	"maps"
	"slices"

	eventbus "github.com/hanpama/pagegraph/internal/eventbus"
	events "github.com/hanpama/pagegraph/internal/events"
	language "github.com/hanpama/pagegraph/internal/language"
	pageinfo "github.com/hanpama/pagegraph/internal/pageinfo"
	reqid "github.com/hanpama/pagegraph/internal/reqid"
	rewrite "github.com/hanpama/pagegraph/internal/rewrite"
)

// Direction selects which cursor a step follows.
type Direction string

const (
	Next Direction = "next"
	Prev Direction = "prev"
)

// Page is the outcome of one traversal step.
type Page struct {
	// Data is the response's data member.
	Data       map[string]any
	StatusCode int
	// Query is the text actually sent, after page info augmentation. It is
	// empty on the terminal page.
	Query     string
	Variables map[string]any
	// Branches lists the branch keys of Query in document order.
	Branches []string
	PageInfo map[string]pageinfo.Info

	// HasNextPage is true when any branch has a next cursor.
	HasNextPage bool
	// HasPrevPage is true when any branch has a previous cursor.
	HasPrevPage bool

	client    *Client
	history   *History
	traversal int64
	// depth is the number of history steps leading to this page.
	depth int
	// resume and resumeVars hold the last query sent before the traversal ran
	// out of branches, so that Prev from the terminal page has a document to
	// restore into.
	resume     string
	resumeVars map[string]any
}

// Next fetches the following page of every branch that has one.
func (p *Page) Next(ctx context.Context) (*Page, error) { return p.Advance(ctx, Next) }

// Prev fetches the preceding page of every branch that has one, reviving
// branches pruned by the most recent forward step.
func (p *Page) Prev(ctx context.Context) (*Page, error) { return p.Advance(ctx, Prev) }

// advance is a built follow-up step. Its history change is applied only once
// the step has succeeded.
type advance struct {
	query string
	vars  map[string]any
	// done is set when no branch is left to query.
	done bool
	// push is the history entry a forward step records; nil records nothing.
	push  map[string]string
	depth int
}

// Advance builds the follow-up query in direction d and executes it. A failed
// step leaves the traversal's history as it was, so p can be advanced again.
func (p *Page) Advance(ctx context.Context, d Direction) (*Page, error) {
	if err := p.history.acquire(); err != nil {
		return nil, err
	}
	defer p.history.release()
	ctx = reqid.WithID(ctx, p.traversal)

	a, err := p.build(ctx, d)
	if err != nil {
		return nil, err
	}
	var next *Page
	if a.done {
		next = p.terminal()
	} else {
		next, err = p.client.step(ctx, p.traversal, a.query, a.vars, p.history)
		if err != nil {
			return nil, err
		}
	}

	p.history.truncate(min(p.depth, a.depth))
	if a.push != nil {
		p.history.Push(a.push)
	}
	next.depth = a.depth
	return next, nil
}

// build rewrites p.Query for direction d without touching the history.
func (p *Page) build(ctx context.Context, d Direction) (advance, error) {
	source, sourceVars := p.Query, p.Variables
	if len(p.Branches) == 0 {
		if d == Next || p.resume == "" {
			return advance{done: true, depth: p.depth}, nil
		}
		source, sourceVars = p.resume, p.resumeVars
	}
	doc, err := language.ParseQuery(source)
	if err != nil {
		return advance{}, &ParseError{Query: source, Err: err}
	}
	vars := maps.Clone(sourceVars)
	if vars == nil {
		vars = map[string]any{}
	}

	a := advance{depth: p.depth + 1}
	var revive map[string]string
	if d == Prev {
		revive = p.history.at(p.depth - 1)
		a.depth = max(p.depth-1, 0)
	} else {
		a.push = map[string]string{}
	}

	var pruned []string
	if len(p.Branches) == 0 {
		for _, key := range rewrite.Keys(doc) {
			rewrite.Prune(doc, key)
		}
		rewrite.DropUnusedVariables(doc)
	}
	for _, key := range p.Branches {
		info := p.PageInfo[key]
		cursor := info.NextCursor
		if d == Prev {
			cursor = info.PrevCursor
		}
		if cursor != "" {
			rewrite.SetCursor(doc, key, cursor, vars)
			continue
		}
		if d == Next {
			a.push[key] = source
		}
		rewrite.Prune(doc, key)
		rewrite.DropUnusedVariables(doc)
		pruned = append(pruned, key)
	}

	var restored []string
	for _, key := range slices.Sorted(maps.Keys(revive)) {
		savedDoc, err := language.ParseQuery(revive[key])
		if err != nil {
			return advance{}, &ParseError{Query: revive[key], Err: err}
		}
		if rewrite.Restore(doc, savedDoc, key) {
			restored = append(restored, key)
		}
	}

	a.done = len(rewrite.Branches(doc)) == 0
	eventbus.Publish(ctx, events.PageAdvance{
		Direction: string(d),
		Pruned:    pruned,
		Restored:  restored,
		Exhausted: a.done,
	})
	p.client.logger.DebugContext(ctx, "page advance",
		"traversal", p.traversal,
		"direction", string(d),
		"pruned", pruned,
		"restored", restored,
		"exhausted", a.done,
	)
	if !a.done {
		a.query = language.Print(doc)
		a.vars = vars
	}
	return a, nil
}

// terminal is the page after the last one: nothing selected, nothing left.
func (p *Page) terminal() *Page {
	resume, resumeVars := p.Query, p.Variables
	if len(p.Branches) == 0 {
		resume, resumeVars = p.resume, p.resumeVars
	}
	return &Page{
		Data:       map[string]any{},
		Variables:  map[string]any{},
		PageInfo:   map[string]pageinfo.Info{},
		client:     p.client,
		history:    p.history,
		traversal:  p.traversal,
		resume:     resume,
		resumeVars: resumeVars,
	}
}
