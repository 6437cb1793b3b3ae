// Package rewrite edits parsed query documents so that every top-level branch
// of a query can be paginated independently.
//
// A branch is a top-level field selection of a query operation. It is keyed by
// its alias when one is present and by its field name otherwise; the same key
// is the field's key in the response payload. Top-level inline fragments are
// transparent: fields inside them are branches too. Fragment spreads are
// opaque and never looked into or removed.
//
// The package offers:
//   - Branches / Find: locate branches with an iterative depth-first walk that
//     keeps explicit parent frames, so callers can address a branch by the
//     index path of the selection sets containing it.
//   - HasCursor / SetCursor: read and write the `cursor` field of a branch's
//     `input` object argument. A cursor bound to a variable is updated in the
//     variables map so the printed query text stays stable.
//   - Prune / DropUnusedVariables / PruneText: remove an exhausted branch and
//     the variable definitions only it referenced.
//   - AugmentPageInfo: make sure every branch selects
//     `pageInfo { nextCursor prevCursor }`.
//   - Restore: copy a branch back out of an earlier version of the document.
//
// All edits are structural and in place; no operation ever gains a second
// root selection set.
package rewrite
