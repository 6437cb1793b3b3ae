package rewrite

import (
	"testing"

	language "github.com/hanpama/pagegraph/internal/language"
)

// mustParseQuery parses a query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

// reparse prints doc and parses the text again, so assertions run against
// what a server would actually receive.
func reparse(t *testing.T, doc *language.QueryDocument) *language.QueryDocument {
	t.Helper()
	return mustParseQuery(t, language.Print(doc))
}

func cursorOf(t *testing.T, doc *language.QueryDocument, key string) *language.Value {
	t.Helper()
	for _, b := range Find(doc, key) {
		if arg := b.Field.Arguments.ForName("input"); arg != nil {
			if v := arg.Value.Children.ForName("cursor"); v != nil {
				return v
			}
		}
	}
	return nil
}

func variableNames(op *language.OperationDefinition) []string {
	var out []string
	for _, v := range op.VariableDefinitions {
		out = append(out, v.Variable)
	}
	return out
}
