package rewrite

import (
	"regexp"

	language "github.com/hanpama/pagegraph/internal/language"
)

// Prune removes every branch keyed by key, together with inline fragments
// emptied by the removal. Fragment spreads are left alone. An operation whose
// selection set ends up empty loses all its variable definitions.
//
// It reports whether anything was removed.
func Prune(doc *language.QueryDocument, key string) bool {
	found := Find(doc, key)
	// Later discoveries sit at higher indexes or deeper frames; removing in
	// reverse keeps earlier indexes valid.
	for i := len(found) - 1; i >= 0; i-- {
		found[i].remove()
	}
	if len(found) == 0 {
		return false
	}
	for _, op := range queryOperations(doc) {
		if len(op.SelectionSet) == 0 {
			op.VariableDefinitions = nil
		}
	}
	return true
}

// DropUnusedVariables removes variable definitions that are referenced
// nowhere but in their own declaration. Usage is counted in the printed text
// of each operation together with the document's fragments.
//
// It returns the names of the dropped variables.
func DropUnusedVariables(doc *language.QueryDocument) []string {
	var dropped []string
	for _, op := range doc.Operations {
		if len(op.VariableDefinitions) == 0 {
			continue
		}
		text := language.Print(&language.QueryDocument{
			Operations: language.OperationList{op},
			Fragments:  doc.Fragments,
		})
		kept := op.VariableDefinitions[:0:0]
		for _, def := range op.VariableDefinitions {
			if countReferences(text, def.Variable) <= 1 {
				dropped = append(dropped, def.Variable)
				continue
			}
			kept = append(kept, def)
		}
		if len(kept) == 0 {
			kept = nil
		}
		op.VariableDefinitions = kept
	}
	return dropped
}

func countReferences(text, name string) int {
	re := regexp.MustCompile(`\$` + regexp.QuoteMeta(name) + `\b`)
	return len(re.FindAllStringIndex(text, -1))
}

// PruneText parses query, prunes the branch keyed by key, drops dangling
// variables and prints the result.
func PruneText(query, key string) (string, bool, error) {
	doc, err := language.ParseQuery(query)
	if err != nil {
		return "", false, err
	}
	if !Prune(doc, key) {
		return query, false, nil
	}
	DropUnusedVariables(doc)
	return language.Print(doc), true, nil
}
