// Package feed implements the authenticated session transport and the
// list paginator for a user's content stream.
//
// The paginator walks the feed API sequentially and classifies raw
// entries into typed FeedItems at the fetch boundary, so downstream
// code never touches the loosely-typed API shape. Pagination is
// defensive: a hard page cap guarantees termination, a short page is
// treated as the last one, and any transport failure truncates the walk
// and returns the items gathered so far.
package feed
