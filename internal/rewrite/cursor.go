package rewrite

import (
	language "github.com/hanpama/pagegraph/internal/language"
)

const (
	inputArgument = "input"
	cursorField   = "cursor"
)

// findInput returns the branch field's `input` argument.
func findInput(f *language.Field) *language.Argument {
	for _, arg := range f.Arguments {
		if arg.Name == inputArgument {
			return arg
		}
	}
	return nil
}

func cursorChild(input *language.Value) *language.ChildValue {
	if input == nil || input.Kind != language.ObjectValue {
		return nil
	}
	for _, c := range input.Children {
		if c.Name == cursorField {
			return c
		}
	}
	return nil
}

// HasCursor reports whether the branch keyed by key carries a cursor field in
// its input object.
func HasCursor(doc *language.QueryDocument, key string) bool {
	for _, b := range Find(doc, key) {
		if arg := findInput(b.Field); arg != nil && cursorChild(arg.Value) != nil {
			return true
		}
	}
	return false
}

// SetCursor points the branch keyed by key at cursor. A missing `input`
// argument or `cursor` field is created. When the existing cursor is a
// variable reference and vars is non-nil, the variable's value is updated
// instead of the document. When the whole input object is a variable holding
// an object, a copy of that object with the cursor set is stored back.
//
// It reports whether any branch was updated. An unknown key is a no-op.
func SetCursor(doc *language.QueryDocument, key, cursor string, vars map[string]any) bool {
	updated := false
	for _, b := range Find(doc, key) {
		if setFieldCursor(b.Field, cursor, vars) {
			updated = true
		}
	}
	return updated
}

func setFieldCursor(f *language.Field, cursor string, vars map[string]any) bool {
	arg := findInput(f)
	if arg == nil {
		f.Arguments = append(f.Arguments, &language.Argument{
			Name: inputArgument,
			Value: &language.Value{
				Kind: language.ObjectValue,
				Children: language.ChildValueList{
					{Name: cursorField, Value: language.StringLiteral(cursor)},
				},
			},
		})
		return true
	}

	switch arg.Value.Kind {
	case language.ObjectValue:
		c := cursorChild(arg.Value)
		if c == nil {
			arg.Value.Children = append(arg.Value.Children, &language.ChildValue{
				Name:  cursorField,
				Value: language.StringLiteral(cursor),
			})
			return true
		}
		if c.Value.Kind == language.Variable && vars != nil {
			vars[c.Value.Raw] = cursor
			return true
		}
		c.Value = language.StringLiteral(cursor)
		return true
	case language.Variable:
		if vars == nil {
			return false
		}
		obj, ok := vars[arg.Value.Raw].(map[string]any)
		if !ok {
			return false
		}
		cp := make(map[string]any, len(obj)+1)
		for k, v := range obj {
			cp[k] = v
		}
		cp[cursorField] = cursor
		vars[arg.Value.Raw] = cp
		return true
	default:
		// Not an input object; the branch cannot be paged.
		return false
	}
}
