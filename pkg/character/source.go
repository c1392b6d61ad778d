package character

import (
	"context"

	"github.com/Sternrassler/rickmorty-client/pkg/pagination"
)

// PageFetcher fetches one raw page of the character list.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) (*Response, error)
}

// Source adapts a PageFetcher to pagination.Source.
// The API uses a fixed server-side page size, so LoadSize is ignored.
type Source struct {
	fetcher PageFetcher
}

// NewSource creates a paging source backed by fetcher.
func NewSource(fetcher PageFetcher) *Source {
	return &Source{fetcher: fetcher}
}

// Load fetches the page for params.Key (page 1 when nil) and maps it.
func (s *Source) Load(ctx context.Context, params pagination.LoadParams) (pagination.Page[Character], error) {
	page := 1
	if params.Key != nil {
		page = *params.Key
	}

	resp, err := s.fetcher.FetchPage(ctx, page)
	if err != nil {
		return pagination.Page[Character]{}, err
	}

	items, err := ToCharacters(resp.Results)
	if err != nil {
		return pagination.Page[Character]{}, err
	}

	result := pagination.Page[Character]{Items: items}
	if page > 1 {
		result.PrevKey = pagination.Key(page - 1)
	}
	if resp.HasMore() {
		result.NextKey = pagination.Key(page + 1)
	}
	return result, nil
}

// RefreshKey resolves the page holding the anchor item so a refresh resumes
// where the reader was instead of at page 1.
func (s *Source) RefreshKey(state pagination.State[Character]) *int {
	if state.AnchorPosition == nil {
		return nil
	}

	page, ok := state.ClosestPageToPosition(*state.AnchorPosition)
	if !ok {
		return nil
	}

	switch {
	case page.PrevKey != nil:
		return pagination.Key(*page.PrevKey + 1)
	case page.NextKey != nil:
		return pagination.Key(*page.NextKey - 1)
	default:
		return nil
	}
}

// ItemKey identifies a character by its ID.
func (s *Source) ItemKey(c Character) int {
	return c.ID
}
