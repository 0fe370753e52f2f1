// Package session implements the incremental list synchronization engine:
// a per-filter-session coordinator that issues paged fetches, guards against
// duplicate concurrent requests, discards stale responses by epoch, and
// merges pages into a deduplicated ordered collection with a row cap.
//
// One session corresponds to one filter snapshot. Changing filters bumps the
// epoch; the collection, the seen-id set, and all continuation state are
// replaced together and never outlive the snapshot that produced them.
// In-flight fetches from an older epoch are not aborted; their responses
// are checked against the current epoch at the consumption point and
// silently dropped when stale.
//
// Example usage:
//
//	coord := session.New(fetcher, session.DefaultConfig())
//	coord.SetFilters(ctx, market.Filters{RegionID: 10000002})
//	...
//	if driver.ShouldFetchNext(r, coord.Len(), coord.HasMore(), coord.InFlight()) {
//		coord.RequestNext(ctx)
//	}
//
// All merges are serialized under the coordinator mutex: two fetches may
// complete concurrently, but their pages apply atomically, first arrived
// first merged.
package session
