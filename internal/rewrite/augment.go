package rewrite

import (
	language "github.com/hanpama/pagegraph/internal/language"
)

const (
	pageInfoField   = "pageInfo"
	nextCursorField = "nextCursor"
	prevCursorField = "prevCursor"
)

// AugmentPageInfo adds `pageInfo { nextCursor prevCursor }` to every branch
// that does not already select it, and fills in whichever of the two cursor
// fields an existing pageInfo selection lacks. Applying it twice is the same
// as applying it once.
//
// It reports whether the document changed.
func AugmentPageInfo(doc *language.QueryDocument) bool {
	changed := false
	for _, b := range Branches(doc) {
		if b.Field.Name == "__typename" {
			continue
		}
		if augmentField(b.Field) {
			changed = true
		}
	}
	return changed
}

func augmentField(f *language.Field) bool {
	for _, sel := range f.SelectionSet {
		pi, ok := sel.(*language.Field)
		if !ok || pi.Name != pageInfoField {
			continue
		}
		changed := false
		for _, name := range []string{nextCursorField, prevCursorField} {
			if !selects(pi.SelectionSet, name) {
				pi.SelectionSet = append(pi.SelectionSet, leaf(name))
				changed = true
			}
		}
		return changed
	}
	f.SelectionSet = append(f.SelectionSet, &language.Field{
		Alias:        pageInfoField,
		Name:         pageInfoField,
		SelectionSet: language.SelectionSet{leaf(nextCursorField), leaf(prevCursorField)},
	})
	return true
}

func selects(set language.SelectionSet, name string) bool {
	for _, sel := range set {
		if f, ok := sel.(*language.Field); ok && f.Name == name && language.ResponseKey(f) == name {
			return true
		}
	}
	return false
}

func leaf(name string) *language.Field {
	return &language.Field{Alias: name, Name: name}
}
