package rewrite

import (
	"slices"

	language "github.com/hanpama/pagegraph/internal/language"
)

// Restore copies the branch keyed by key from saved back into doc. The field
// is re-inserted at its saved index, clamped to the current selection set; a
// branch that lived inside an inline fragment comes back wrapped in a fragment
// with the same type condition and directives. Variable definitions the branch
// references are copied over when doc lacks them.
//
// Operations are matched by name, falling back to position. Nothing happens
// when doc already has the branch. It reports whether a branch was restored.
func Restore(doc, saved *language.QueryDocument, key string) bool {
	if len(Find(doc, key)) > 0 {
		return false
	}
	restored := false
	savedOps := queryOperations(saved)
	targets := queryOperations(doc)
	for i, sop := range savedOps {
		target := matchOperation(targets, sop, i)
		if target == nil {
			continue
		}
		var branch *Branch
		walkOperation(sop, func(b Branch) bool {
			if b.Key() == key {
				branch = &b
				return false
			}
			return true
		})
		if branch == nil {
			continue
		}

		var sel language.Selection = branch.Field
		index := branch.Index
		if branch.frame.parent != nil {
			index = branch.Path[0]
			sel = &language.InlineFragment{
				TypeCondition: branch.frame.owner.TypeCondition,
				Directives:    branch.frame.owner.Directives,
				SelectionSet:  language.SelectionSet{branch.Field},
			}
		}
		index = min(index, len(target.SelectionSet))
		target.SelectionSet = slices.Insert(slices.Clone(target.SelectionSet), index, sel)

		for _, name := range fieldVariables(branch.Field) {
			if target.VariableDefinitions.ForName(name) != nil {
				continue
			}
			if def := sop.VariableDefinitions.ForName(name); def != nil {
				target.VariableDefinitions = append(target.VariableDefinitions, def)
			}
		}
		restored = true
	}
	return restored
}

func matchOperation(ops []*language.OperationDefinition, want *language.OperationDefinition, i int) *language.OperationDefinition {
	if want.Name != "" {
		for _, op := range ops {
			if op.Name == want.Name {
				return op
			}
		}
	}
	if i < len(ops) {
		return ops[i]
	}
	return nil
}

// fieldVariables lists the variables referenced anywhere under f.
func fieldVariables(f *language.Field) []string {
	var names []string
	seen := map[string]struct{}{}
	var values []*language.Value
	sets := []language.SelectionSet{{f}}
	for len(sets) > 0 {
		set := sets[len(sets)-1]
		sets = sets[:len(sets)-1]
		for i := len(set) - 1; i >= 0; i-- {
			var dirs language.DirectiveList
			switch sel := set[i].(type) {
			case *language.Field:
				for _, arg := range sel.Arguments {
					values = append(values, arg.Value)
				}
				dirs = sel.Directives
				sets = append(sets, sel.SelectionSet)
			case *language.InlineFragment:
				dirs = sel.Directives
				sets = append(sets, sel.SelectionSet)
			case *language.FragmentSpread:
				dirs = sel.Directives
			}
			for _, d := range dirs {
				for _, arg := range d.Arguments {
					values = append(values, arg.Value)
				}
			}
		}
	}
	for len(values) > 0 {
		v := values[0]
		values = values[1:]
		if v == nil {
			continue
		}
		if v.Kind == language.Variable {
			if _, ok := seen[v.Raw]; !ok {
				seen[v.Raw] = struct{}{}
				names = append(names, v.Raw)
			}
			continue
		}
		for _, c := range v.Children {
			values = append(values, c.Value)
		}
	}
	return names
}
