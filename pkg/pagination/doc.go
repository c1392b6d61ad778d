// Package pagination provides incremental, key-based paging over a remote source.
//
// A Pager loads pages one at a time from a Source, aggregates them into one
// ordered collection and tracks a load state for each edge of that collection:
//
//   - Refresh: the initial load, or a reload after invalidation
//   - Prepend: pages before the first loaded page
//   - Append:  pages after the last loaded page
//
// Example usage:
//
//	pager, err := pagination.New[character.Character](source, pagination.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer pager.Close()
//
//	updates := pager.Updates(ctx)
//	if err := pager.Start(ctx); err != nil {
//		return err
//	}
//	for snapshot := range updates {
//		// render snapshot.Items and snapshot.LoadStates
//	}
//
// The pager:
//   - Runs at most one load per edge at a time
//   - Prefetches the next page when reads come within PrefetchDistance of an edge
//   - Leaves failed edges in an error state until Retry is called
//   - Discards results of loads superseded by Refresh or Close
//   - Publishes immutable snapshots through a single-writer stateflow.Flow
package pagination
