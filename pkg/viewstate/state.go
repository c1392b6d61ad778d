// Package viewstate collapses the paginated character stream into the coarse
// Loading / Success / Error state rendered at the top level.
package viewstate

import (
	"github.com/Sternrassler/rickmorty-client/pkg/character"
	"github.com/Sternrassler/rickmorty-client/pkg/pagination"
)

// State is one of Loading, Success or Error.
type State interface {
	isState()
}

// Loading is active until the first page arrives or the initial load fails.
type Loading struct{}

// Success holds the latest aggregated collection.
type Success struct {
	Snapshot pagination.Snapshot[character.Character]
}

// Error is the total failure of the initial load.
type Error struct {
	// Message is the user-facing text.
	Message string

	// Err is the underlying cause.
	Err error
}

func (Loading) isState() {}
func (Success) isState() {}
func (Error) isState()   {}

// Reduce maps a collection snapshot to a State.
//
// Without any loaded page, a failed refresh is an Error and anything else is
// Loading. Once a page is loaded the state is Success; later failures are
// reported per edge on the snapshot.
func Reduce(s pagination.Snapshot[character.Character]) State {
	if !s.Loaded() {
		if refresh := s.LoadStates.Refresh; refresh.IsError() {
			return Error{Message: Message(refresh.Err), Err: refresh.Err}
		}
		return Loading{}
	}
	return Success{Snapshot: s}
}
