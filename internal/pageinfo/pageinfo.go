// Package pageinfo reads pagination metadata out of decoded response payloads.
//
// Payloads are generic trees as produced by encoding/json: map[string]any for
// objects, []any for arrays and scalars at the leaves.
package pageinfo

import (
	"fmt"
	"sort"

	"github.com/ohler55/ojg/jp"
)

// FieldName is the object every paginated branch exposes.
const FieldName = "pageInfo"

// Info holds a branch's cursors. An empty cursor means there is no page in
// that direction.
type Info struct {
	NextCursor string `json:"nextCursor"`
	PrevCursor string `json:"prevCursor"`
}

// HasNext reports whether a next page exists.
func (i Info) HasNext() bool { return i.NextCursor != "" }

// HasPrev reports whether a previous page exists.
func (i Info) HasPrev() bool { return i.PrevCursor != "" }

// Extract returns the page info of every top-level branch in data. Branches
// without a pageInfo object get a zero Info.
func Extract(data map[string]any) map[string]Info {
	out := make(map[string]Info, len(data))
	for key, branch := range data {
		out[key] = branchInfo(branch)
	}
	return out
}

func branchInfo(branch any) Info {
	found, ok := Find(branch, FieldName)
	if !ok {
		return Info{}
	}
	obj, ok := found.(map[string]any)
	if !ok {
		return Info{}
	}
	return Info{
		NextCursor: stringField(obj, "nextCursor"),
		PrevCursor: stringField(obj, "prevCursor"),
	}
}

func stringField(obj map[string]any, name string) string {
	s, _ := obj[name].(string)
	return s
}

// Find searches root depth-first for the first object holding key and
// returns the value stored under it. An object's own keys are checked before
// its children are descended into; children are visited in key order. Only
// the first element of an array is descended into.
func Find(root any, key string) (any, bool) {
	stack := []any{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch v := node.(type) {
		case map[string]any:
			if found, ok := v[key]; ok {
				return found, true
			}
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Sort(sort.Reverse(sort.StringSlice(keys)))
			for _, k := range keys {
				stack = append(stack, v[k])
			}
		case []any:
			if len(v) > 0 {
				stack = append(stack, v[0])
			}
		}
	}
	return nil, false
}

// Get evaluates a JSONPath expression such as `$.Poaps.Poap[*].eventId`
// against root.
func Get(root any, path string) ([]any, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", path, err)
	}
	return x.Get(root), nil
}
