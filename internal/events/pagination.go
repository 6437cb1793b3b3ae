package events

// PageFetched is emitted when a paginated query returns and its page info has
// been read.
type PageFetched struct {
	Branches    []string
	HasNextPage bool
	HasPrevPage bool
}

// PageAdvance is emitted when the next query of a traversal has been built.
type PageAdvance struct {
	Direction string
	Pruned    []string
	Restored  []string
	// Exhausted is set when no branch is left to query.
	Exhausted bool
}

// CategoryFetched is emitted after one onchain category has been collected
// and folded into the profile list.
type CategoryFetched struct {
	Category string
	Records  int
	Profiles int
	Err      error
}
