package onchain

import "fmt"

// Error reports a category whose traversal failed. Profiles merged from the
// categories before it remain valid.
type Error struct {
	Category Category
	Err      error
}

func (e *Error) Error() string { return fmt.Sprintf("onchain: %s: %v", e.Category, e.Err) }

func (e *Error) Unwrap() error { return e.Err }
