package rewrite

import (
	"testing"

	"github.com/stretchr/testify/require"

	language "github.com/hanpama/pagegraph/internal/language"
)

const twoBranchQuery = `query Q($name1: Address!, $name2: Address!) {
	TokenBalances(input: {filter: {tokenAddress: {_eq: $name1}}, blockchain: ethereum}) {
		TokenBalance { id }
	}
	test2: TokenTransfers(input: {filter: {tokenAddress: {_eq: $name2}}, blockchain: ethereum, cursor: "t1"}) {
		TokenTransfer { id }
	}
}`

func TestPruneOneOfTwoBranches(t *testing.T) {
	doc := mustParseQuery(t, twoBranchQuery)
	require.True(t, Prune(doc, "TokenBalances"))
	dropped := DropUnusedVariables(doc)
	require.Equal(t, []string{"name1"}, dropped)

	got := reparse(t, doc)
	require.Equal(t, []string{"test2"}, Keys(got))
	require.Equal(t, []string{"name2"}, variableNames(got.Operations[0]))
	// The surviving branch keeps its arguments untouched.
	require.Equal(t, "t1", cursorOf(t, got, "test2").Raw)
	input := Find(got, "test2")[0].Field.Arguments.ForName("input").Value
	require.Equal(t, "ethereum", input.Children.ForName("blockchain").Raw)
}

func TestPruneOnlyBranchClearsVariables(t *testing.T) {
	doc := mustParseQuery(t, `query Q($id: Address!) { a: TokenBalances(input: {filter: {owner: {_eq: $id}}}) { TokenBalance { id } } }`)
	require.True(t, Prune(doc, "a"))
	require.Empty(t, doc.Operations[0].SelectionSet)
	require.Nil(t, doc.Operations[0].VariableDefinitions)
}

func TestPruneUnknownKey(t *testing.T) {
	doc := mustParseQuery(t, twoBranchQuery)
	require.False(t, Prune(doc, "nope"))
	require.Equal(t, []string{"TokenBalances", "test2"}, Keys(doc))
}

func TestPruneMatchesExactKeyOnly(t *testing.T) {
	doc := mustParseQuery(t, `{ test: A { id } test2: B { id } }`)
	require.True(t, Prune(doc, "test"))
	require.Equal(t, []string{"test2"}, Keys(doc))
}

func TestPruneInsideInlineFragment(t *testing.T) {
	doc := mustParseQuery(t, `{
		a: A { id }
		... on Query { b: B { id } }
		... on Query { c: C { id } d: D { id } }
	}`)
	require.True(t, Prune(doc, "b"))
	require.True(t, Prune(doc, "c"))

	got := reparse(t, doc)
	require.Equal(t, []string{"a", "d"}, Keys(got))
	// The emptied fragment is gone, the other one keeps d.
	require.Len(t, got.Operations[0].SelectionSet, 2)
	frag, ok := got.Operations[0].SelectionSet[1].(*language.InlineFragment)
	require.True(t, ok)
	require.Len(t, frag.SelectionSet, 1)
}

func TestPruneLeavesFragmentSpreads(t *testing.T) {
	doc := mustParseQuery(t, `{ a: A { id } ...Rest } fragment Rest on Query { b: B { id } }`)
	require.True(t, Prune(doc, "a"))
	require.False(t, Prune(doc, "b"))
	require.Len(t, doc.Operations[0].SelectionSet, 1)
	_, ok := doc.Operations[0].SelectionSet[0].(*language.FragmentSpread)
	require.True(t, ok)
}

func TestDropUnusedVariablesKeepsFragmentUsage(t *testing.T) {
	doc := mustParseQuery(t, `query Q($a: ID, $b: ID) { x: X(id: $a) { id } ...F } fragment F on Query { y: Y(id: $b) { id } }`)
	require.True(t, Prune(doc, "x"))
	require.Equal(t, []string{"a"}, DropUnusedVariables(doc))
	require.Equal(t, []string{"b"}, variableNames(doc.Operations[0]))
}

func TestDropUnusedVariablesWordBoundary(t *testing.T) {
	doc := mustParseQuery(t, `query Q($user: ID, $userName: String) { a: A(id: $userName) { id } }`)
	require.Equal(t, []string{"user"}, DropUnusedVariables(doc))
}

func TestPruneText(t *testing.T) {
	out, removed, err := PruneText(twoBranchQuery, "test2")
	require.NoError(t, err)
	require.True(t, removed)
	got := mustParseQuery(t, out)
	require.Equal(t, []string{"TokenBalances"}, Keys(got))
	require.Equal(t, []string{"name1"}, variableNames(got.Operations[0]))

	_, _, err = PruneText(`{ broken(`, "a")
	require.Error(t, err)
}
