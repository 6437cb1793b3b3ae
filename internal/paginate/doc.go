// Package paginate drives cursor pagination over every branch of a query at
// once.
//
// A caller hands the Client a query document that may select several
// independently paginated root fields (branches). The Client makes sure each
// branch selects `pageInfo { nextCursor prevCursor }`, executes the query
// through a Transport, reads each branch's cursors from the response, and
// returns a Page. Page.Next and Page.Prev build the follow-up query:
//
//   - a branch with a cursor in the requested direction gets that cursor
//     written into its `input.cursor` argument (or the variable bound to it);
//   - a branch without one is pruned from the query, together with variables
//     only it used.
//
// Pruning while moving forward is recorded in a History owned by the
// traversal. Moving backward pops the most recent entry and revives every
// branch it saved from the query text it had before it was pruned, so a
// branch that ran out of pages going forward reappears going back.
//
// Steps of one traversal are strictly sequential; the History rejects a step
// that starts while another is in flight. Independent traversals share
// nothing and may run concurrently.
//
// Errors: malformed query text yields a *ParseError, a failed round trip a
// *TransportError. Neither is retried. A page whose branches all ran out is
// not an error: advancing from it yields an empty terminal page.
package paginate
