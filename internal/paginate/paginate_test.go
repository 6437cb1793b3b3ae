package paginate

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	language "github.com/hanpama/pagegraph/internal/language"
	rewrite "github.com/hanpama/pagegraph/internal/rewrite"
)

const twoBranchQuery = `query Q($a: Address!, $b: Address!) {
	A: TokenBalances(input: {filter: {owner: {_eq: $a}}, limit: 2}) { TokenBalance { id } }
	B: TokenTransfers(input: {filter: {from: {_eq: $b}}, limit: 2}) { TokenTransfer { id } }
}`

func branch(next, prev string) map[string]any {
	return map[string]any{
		"pageInfo": map[string]any{"nextCursor": next, "prevCursor": prev},
		"items":    []any{},
	}
}

func mustParse(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v\n%s", err, q)
	}
	return d
}

func cursorOf(t *testing.T, query, key string) (string, bool) {
	t.Helper()
	doc := mustParse(t, query)
	for _, b := range rewrite.Find(doc, key) {
		if arg := b.Field.Arguments.ForName("input"); arg != nil {
			if v := arg.Value.Children.ForName("cursor"); v != nil {
				return v.Raw, true
			}
		}
	}
	return "", false
}

func TestAggregateFlagsAndAdvanceNext(t *testing.T) {
	mt := NewMockTransport(
		map[string]any{"A": branch("c1", ""), "B": branch("", "")},
		map[string]any{"A": branch("", "p1")},
	)
	c := NewClient(mt)
	vars := map[string]any{"a": "0x1", "b": "0x2"}

	page, err := c.ExecutePaginated(context.Background(), twoBranchQuery, vars)
	require.NoError(t, err)
	require.True(t, page.HasNextPage)
	require.False(t, page.HasPrevPage)
	require.Equal(t, []string{"A", "B"}, page.Branches)

	next, err := page.Next(context.Background())
	require.NoError(t, err)
	require.False(t, next.HasNextPage)
	require.True(t, next.HasPrevPage)

	calls := mt.Calls()
	require.Len(t, calls, 2)
	sent := mustParse(t, calls[1].Query)
	require.Equal(t, []string{"A"}, rewrite.Keys(sent))
	cur, ok := cursorOf(t, calls[1].Query, "A")
	require.True(t, ok)
	require.Equal(t, "c1", cur)
	// $b was only used by B.
	require.Nil(t, sent.Operations[0].VariableDefinitions.ForName("b"))
	require.NotNil(t, sent.Operations[0].VariableDefinitions.ForName("a"))
	// The caller's map is never touched.
	require.Equal(t, map[string]any{"a": "0x1", "b": "0x2"}, vars)
}

func TestQueryIsAugmentedWithPageInfo(t *testing.T) {
	mt := NewMockTransport(map[string]any{"A": branch("", ""), "B": branch("", "")})
	c := NewClient(mt)
	page, err := c.ExecutePaginated(context.Background(), twoBranchQuery, nil)
	require.NoError(t, err)

	doc := mustParse(t, mt.Calls()[0].Query)
	require.False(t, rewrite.AugmentPageInfo(doc), "sent query should already select page info")
	require.Equal(t, mt.Calls()[0].Query, page.Query)
}

func TestPrevRevivesBranchPrunedGoingForward(t *testing.T) {
	mt := NewMockTransport(
		map[string]any{"A": branch("", ""), "B": branch("b2", "")},
		map[string]any{"B": branch("", "b1")},
		map[string]any{"A": branch("", ""), "B": branch("b2", "")},
	)
	c := NewClient(mt)
	ctx := context.Background()

	first, err := c.ExecutePaginated(ctx, twoBranchQuery, map[string]any{"a": "0x1", "b": "0x2"})
	require.NoError(t, err)
	second, err := first.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"B"}, second.Branches)
	require.Equal(t, 1, second.history.Len())

	back, err := second.Prev(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, back.history.Len())

	sent := mt.Calls()[2].Query
	doc := mustParse(t, sent)
	require.ElementsMatch(t, []string{"A", "B"}, rewrite.Keys(doc))
	require.NotNil(t, doc.Operations[0].VariableDefinitions.ForName("a"))

	// A comes back with the arguments it had before it was exhausted.
	_, hasCursor := cursorOf(t, sent, "A")
	require.False(t, hasCursor)
	a := rewrite.Find(doc, "A")[0].Field.Arguments.ForName("input").Value
	require.Equal(t, "2", a.Children.ForName("limit").Raw)

	cur, _ := cursorOf(t, sent, "B")
	require.Equal(t, "b1", cur)
	require.True(t, back.HasNextPage)
}

func TestPrevWithoutHistoryPrunesBranchesWithoutCursor(t *testing.T) {
	mt := NewMockTransport(
		map[string]any{"A": branch("a2", "a0"), "B": branch("b2", "")},
		map[string]any{"A": branch("a1", "")},
	)
	c := NewClient(mt)
	page, err := c.ExecutePaginated(context.Background(), twoBranchQuery, nil)
	require.NoError(t, err)

	_, err = page.Prev(context.Background())
	require.NoError(t, err)
	sent := mt.Calls()[1].Query
	require.Equal(t, []string{"A"}, rewrite.Keys(mustParse(t, sent)))
	cur, _ := cursorOf(t, sent, "A")
	require.Equal(t, "a0", cur)
}

func TestCursorVariableKeepsQueryTextStable(t *testing.T) {
	q := `query Q($after: String) { A: TokenBalances(input: {cursor: $after, limit: 5}) { TokenBalance { id } } }`
	mt := NewMockTransport(
		map[string]any{"A": branch("c1", "")},
		map[string]any{"A": branch("c2", "c0")},
		map[string]any{"A": branch("", "c1")},
	)
	c := NewClient(mt)
	ctx := context.Background()
	page, err := c.ExecutePaginated(ctx, q, map[string]any{"after": ""})
	require.NoError(t, err)
	page, err = page.Next(ctx)
	require.NoError(t, err)
	_, err = page.Next(ctx)
	require.NoError(t, err)

	calls := mt.Calls()
	require.Equal(t, calls[0].Query, calls[1].Query)
	require.Equal(t, calls[1].Query, calls[2].Query)
	require.Equal(t, "", calls[0].Variables["after"])
	require.Equal(t, "c1", calls[1].Variables["after"])
	require.Equal(t, "c2", calls[2].Variables["after"])
}

func TestExhaustedTraversalYieldsTerminalPage(t *testing.T) {
	mt := NewMockTransport(map[string]any{"A": branch("", ""), "B": branch("", "")})
	c := NewClient(mt)
	page, err := c.ExecutePaginated(context.Background(), twoBranchQuery, nil)
	require.NoError(t, err)
	require.False(t, page.HasNextPage)

	last, err := page.Next(context.Background())
	require.NoError(t, err)
	require.Empty(t, last.Branches)
	require.False(t, last.HasNextPage)
	require.False(t, last.HasPrevPage)
	require.Len(t, mt.Calls(), 1)

	again, err := last.Next(context.Background())
	require.NoError(t, err)
	require.Empty(t, again.Branches)
}

func TestMissingPageInfoDegradesToSinglePage(t *testing.T) {
	mt := NewMockTransport(map[string]any{"A": map[string]any{"items": []any{}}})
	c := NewClient(mt)
	page, err := c.ExecutePaginated(context.Background(), twoBranchQuery, nil)
	require.NoError(t, err)
	require.False(t, page.HasNextPage)
	require.False(t, page.HasPrevPage)
}

func TestTransportErrorIsSurfaced(t *testing.T) {
	boom := errors.New("connection reset")
	mt := NewMockTransportWithErrors(
		[]map[string]any{{"A": branch("c1", ""), "B": branch("", "")}},
		[]error{nil, boom},
	)
	c := NewClient(mt)
	page, err := c.ExecutePaginated(context.Background(), twoBranchQuery, nil)
	require.NoError(t, err)

	_, err = page.Next(context.Background())
	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, te.StatusCode)

	// The failed step leaves the earlier page usable.
	require.True(t, page.HasNextPage)
	require.NotEmpty(t, page.Data)
}

func TestTransportErrorPassesThroughTyped(t *testing.T) {
	mt := NewMockTransportWithErrors(nil, []error{&TransportError{StatusCode: 422, Message: "Unprocessable Entity"}})
	_, err := NewClient(mt).ExecutePaginated(context.Background(), twoBranchQuery, nil)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, 422, te.StatusCode)
	require.Contains(t, err.Error(), "Unprocessable Entity")
}

func TestParseErrorIsFatal(t *testing.T) {
	mt := NewMockTransport()
	_, err := NewClient(mt).ExecutePaginated(context.Background(), `query { A(`, nil)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Empty(t, mt.Calls())
}

func TestConcurrentStepIsRejected(t *testing.T) {
	mt := NewMockTransport(map[string]any{"A": branch("c1", ""), "B": branch("", "")})
	c := NewClient(mt)
	h := NewHistory()
	page, err := c.Paginate(context.Background(), twoBranchQuery, nil, h)
	require.NoError(t, err)

	require.NoError(t, h.acquire())
	_, err = page.Next(context.Background())
	require.ErrorIs(t, err, ErrTraversalBusy)
	h.release()
}

func TestExecuteWithoutPagination(t *testing.T) {
	mt := NewMockTransport(map[string]any{"A": map[string]any{"items": []any{}}})
	resp, err := NewClient(mt).Execute(context.Background(), `{ A { items } }`, nil)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, `{ A { items } }`, mt.Calls()[0].Query)
}

func TestHistoryStack(t *testing.T) {
	h := NewHistory()
	_, ok := h.Pop()
	require.False(t, ok)

	h.Push(nil)
	h.Push(map[string]string{"A": "query { A }"})
	saved, ok := h.Pop()
	require.True(t, ok)
	require.Equal(t, "query { A }", saved["A"])
	saved, ok = h.Pop()
	require.True(t, ok)
	require.Empty(t, saved)
	require.Equal(t, 0, h.Len())
}

func TestFailedPrevKeepsHistoryForRetry(t *testing.T) {
	unavailable := &TransportError{StatusCode: 503, Message: "Service Unavailable"}
	mt := NewMockTransportWithErrors(
		[]map[string]any{
			{"A": branch("", ""), "B": branch("b2", "")},
			{"B": branch("", "b1")},
			nil,
			{"A": branch("", ""), "B": branch("b2", "")},
		},
		[]error{nil, nil, unavailable},
	)
	c := NewClient(mt)
	ctx := context.Background()

	first, err := c.ExecutePaginated(ctx, twoBranchQuery, map[string]any{"a": "0x1", "b": "0x2"})
	require.NoError(t, err)
	second, err := first.Next(ctx)
	require.NoError(t, err)

	_, err = second.Prev(ctx)
	require.ErrorIs(t, err, unavailable)
	require.Equal(t, 1, second.history.Len())

	back, err := second.Prev(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"A", "B"}, rewrite.Keys(mustParse(t, mt.Calls()[3].Query)))
	require.Equal(t, 0, back.history.Len())
}

func TestFailedNextRecordsOneStepOnRetry(t *testing.T) {
	mt := NewMockTransportWithErrors(
		[]map[string]any{
			{"A": branch("a2", ""), "B": branch("", "")},
			nil,
			{"A": branch("", "a1")},
			{"A": branch("", "a1")},
			{"A": branch("a2", ""), "B": branch("", "")},
		},
		[]error{nil, errors.New("connection reset")},
	)
	c := NewClient(mt)
	ctx := context.Background()

	first, err := c.ExecutePaginated(ctx, twoBranchQuery, map[string]any{"a": "0x1", "b": "0x2"})
	require.NoError(t, err)
	_, err = first.Next(ctx)
	require.Error(t, err)
	require.Equal(t, 0, first.history.Len())

	_, err = first.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, first.history.Len())

	// Advancing the same page again replaces its step instead of stacking one.
	second, err := first.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, second.history.Len())

	back, err := second.Prev(ctx)
	require.NoError(t, err)
	sent := mt.Calls()[4].Query
	require.ElementsMatch(t, []string{"A", "B"}, rewrite.Keys(mustParse(t, sent)))
	cur, _ := cursorOf(t, sent, "A")
	require.Equal(t, "a1", cur)
	require.Equal(t, 0, back.history.Len())
}

func TestPrevFromTerminalPageRevivesLastBranches(t *testing.T) {
	mt := NewMockTransport(
		map[string]any{"A": branch("", ""), "B": branch("", "")},
		map[string]any{"A": branch("", ""), "B": branch("", "")},
	)
	c := NewClient(mt)
	ctx := context.Background()
	page, err := c.ExecutePaginated(ctx, twoBranchQuery, map[string]any{"a": "0x1", "b": "0x2"})
	require.NoError(t, err)

	last, err := page.Next(ctx)
	require.NoError(t, err)
	require.Empty(t, last.Branches)
	require.Empty(t, last.Query)
	require.Len(t, mt.Calls(), 1)

	back, err := last.Prev(ctx)
	require.NoError(t, err)
	require.Len(t, mt.Calls(), 2)
	sent := mt.Calls()[1]
	doc := mustParse(t, sent.Query)
	require.Equal(t, []string{"A", "B"}, rewrite.Keys(doc))
	require.NotNil(t, doc.Operations[0].VariableDefinitions.ForName("a"))
	require.NotNil(t, doc.Operations[0].VariableDefinitions.ForName("b"))
	require.Equal(t, "0x1", sent.Variables["a"])
	require.Equal(t, []string{"A", "B"}, back.Branches)
	require.Equal(t, 0, back.history.Len())
}

func TestFragmentSpreadKeysAreNotBranches(t *testing.T) {
	q := `query Q {
	A: TokenBalances(input: {limit: 2}) { TokenBalance { id } }
	...Extra
}
fragment Extra on Query { C: TokenTransfers(input: {limit: 2}) { TokenTransfer { id } } }`
	mt := NewMockTransport(map[string]any{"A": branch("", ""), "C": branch("c1", "")})
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	page, err := NewClient(mt, WithLogger(logger)).ExecutePaginated(context.Background(), q, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"A"}, page.Branches)
	require.False(t, page.HasNextPage)
	require.Contains(t, logs.String(), "response keys outside paginated branches")
	require.Contains(t, logs.String(), "C")
}
