package pagination

import (
	"context"
)

// LoadType identifies an edge of the paged collection.
type LoadType int

const (
	// Refresh is the initial load or a reload after invalidation.
	Refresh LoadType = iota
	// Prepend loads the page before the first loaded page.
	Prepend
	// Append loads the page after the last loaded page.
	Append
)

var loadTypes = [...]LoadType{Refresh, Prepend, Append}

func (t LoadType) String() string {
	switch t {
	case Refresh:
		return "refresh"
	case Prepend:
		return "prepend"
	case Append:
		return "append"
	default:
		return "unknown"
	}
}

// Status is the load status of one edge.
type Status int

const (
	StatusNotLoading Status = iota
	StatusLoading
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusNotLoading:
		return "not_loading"
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// LoadState describes one edge.
type LoadState struct {
	Status Status

	// Err is the cause when Status is StatusError.
	Err error

	// EndOfPagination is set once the source reported no further page in
	// this direction.
	EndOfPagination bool
}

// IsLoading reports whether a load is in flight.
func (s LoadState) IsLoading() bool { return s.Status == StatusLoading }

// IsError reports whether the last load failed.
func (s LoadState) IsError() bool { return s.Status == StatusError }

// LoadStates groups the state of every edge.
type LoadStates struct {
	Refresh LoadState
	Prepend LoadState
	Append  LoadState
}

// Get returns the state of the given edge.
func (l LoadStates) Get(t LoadType) LoadState {
	switch t {
	case Prepend:
		return l.Prepend
	case Append:
		return l.Append
	default:
		return l.Refresh
	}
}

func (l *LoadStates) set(t LoadType, s LoadState) {
	switch t {
	case Prepend:
		l.Prepend = s
	case Append:
		l.Append = s
	default:
		l.Refresh = s
	}
}

// Key returns a page key. A nil key means "first page".
func Key(n int) *int {
	return &n
}

// LoadParams are passed to Source.Load.
type LoadParams struct {
	Type LoadType

	// Key is the page to load; nil on the initial load.
	Key *int

	// LoadSize is the requested number of items. Sources with a fixed
	// server-side page size may ignore it.
	LoadSize int
}

// Page is one loaded page.
type Page[T any] struct {
	Items []T

	// PrevKey is the key of the preceding page, nil if none.
	PrevKey *int

	// NextKey is the key of the following page, nil if none.
	NextKey *int
}

// State is the pager state handed to Source.RefreshKey.
type State[T any] struct {
	Pages []Page[T]

	// AnchorPosition is the index of the most recently accessed item,
	// nil if nothing was accessed yet.
	AnchorPosition *int

	Config Config
}

// ClosestPageToPosition returns the page containing the item at position,
// or the nearest page if position is out of range.
func (s State[T]) ClosestPageToPosition(position int) (Page[T], bool) {
	if len(s.Pages) == 0 {
		return Page[T]{}, false
	}
	offset := 0
	for _, p := range s.Pages {
		if position < offset+len(p.Items) {
			return p, true
		}
		offset += len(p.Items)
	}
	return s.Pages[len(s.Pages)-1], true
}

// Source loads pages for a Pager.
type Source[T any] interface {
	// Load fetches one page. It must not retry.
	Load(ctx context.Context, params LoadParams) (Page[T], error)

	// RefreshKey returns the key to reload from after invalidation.
	RefreshKey(state State[T]) *int
}

// ItemKeyer is implemented by sources whose items have a stable identity.
type ItemKeyer[T any] interface {
	ItemKey(item T) int
}

// Snapshot is an immutable view of the aggregated collection.
type Snapshot[T any] struct {
	Items      []T
	LoadStates LoadStates

	// PageCount is the number of pages currently held.
	PageCount int
}

// Len returns the number of loaded items.
func (s Snapshot[T]) Len() int { return len(s.Items) }

// Loaded reports whether at least one page was loaded.
func (s Snapshot[T]) Loaded() bool { return s.PageCount > 0 }
