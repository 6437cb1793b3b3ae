package rewrite

import (
	language "github.com/hanpama/pagegraph/internal/language"
)

// Path addresses a selection set inside an operation: the indexes of the
// inline fragments leading to it from the operation's own selection set.
// The empty path is the operation's selection set.
type Path []int

// frame is one selection set visited by a walk. parent is nil for the
// operation's own selection set; owner is the inline fragment holding set.
type frame struct {
	set    *language.SelectionSet
	parent *frame
	owner  *language.InlineFragment
	path   Path
}

// Branch is one located top-level field.
type Branch struct {
	Operation *language.OperationDefinition
	Field     *language.Field
	// Path of the selection set holding Field.
	Path Path
	// Index of Field within that selection set.
	Index int

	frame *frame
}

// Key is the branch's bookkeeping key.
func (b Branch) Key() string { return language.ResponseKey(b.Field) }

type cursor struct {
	frame *frame
	next  int
}

// walkOperation visits the branches of op in document order until visit
// returns false.
func walkOperation(op *language.OperationDefinition, visit func(Branch) bool) {
	root := &frame{set: &op.SelectionSet}
	stack := []*cursor{{frame: root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		set := *top.frame.set
		if top.next >= len(set) {
			stack = stack[:len(stack)-1]
			continue
		}
		i := top.next
		top.next++
		switch sel := set[i].(type) {
		case *language.Field:
			if !visit(Branch{Operation: op, Field: sel, Path: top.frame.path, Index: i, frame: top.frame}) {
				return
			}
		case *language.InlineFragment:
			path := make(Path, len(top.frame.path), len(top.frame.path)+1)
			copy(path, top.frame.path)
			stack = append(stack, &cursor{frame: &frame{
				set:    &sel.SelectionSet,
				parent: top.frame,
				owner:  sel,
				path:   append(path, i),
			}})
		}
	}
}

// queryOperations returns the operations that can be paginated.
func queryOperations(doc *language.QueryDocument) []*language.OperationDefinition {
	var ops []*language.OperationDefinition
	for _, op := range doc.Operations {
		if op.Operation == language.Query || op.Operation == "" {
			ops = append(ops, op)
		}
	}
	return ops
}

// Branches lists every branch of every query operation in document order.
func Branches(doc *language.QueryDocument) []Branch {
	var out []Branch
	for _, op := range queryOperations(doc) {
		walkOperation(op, func(b Branch) bool {
			out = append(out, b)
			return true
		})
	}
	return out
}

// Keys lists the distinct branch keys of doc in document order.
func Keys(doc *language.QueryDocument) []string {
	seen := map[string]struct{}{}
	var keys []string
	for _, b := range Branches(doc) {
		k := b.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// Find returns every branch keyed by key.
func Find(doc *language.QueryDocument, key string) []Branch {
	var out []Branch
	for _, b := range Branches(doc) {
		if b.Key() == key {
			out = append(out, b)
		}
	}
	return out
}

// remove deletes the branch's field from its selection set, then removes any
// inline fragment left empty by it, climbing parent frames.
func (b Branch) remove() {
	f := b.frame
	*f.set = deleteAt(*f.set, indexOf(*f.set, b.Field))
	for f.parent != nil && len(*f.set) == 0 {
		parent := f.parent
		*parent.set = deleteAt(*parent.set, indexOf(*parent.set, f.owner))
		f = parent
	}
}

func indexOf(set language.SelectionSet, sel language.Selection) int {
	for i, s := range set {
		if s == sel {
			return i
		}
	}
	return -1
}

func deleteAt(set language.SelectionSet, i int) language.SelectionSet {
	if i < 0 {
		return set
	}
	out := make(language.SelectionSet, 0, len(set)-1)
	out = append(out, set[:i]...)
	return append(out, set[i+1:]...)
}
