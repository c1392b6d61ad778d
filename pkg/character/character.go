// Package character defines the Rick and Morty character model, the wire format
// of the character list endpoint and the mapping between the two.
package character

// Character is the display-ready character entity.
type Character struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Image  string `json:"image"`
}

// Response is the body of GET /api/character/?page=<n>.
type Response struct {
	Info    Info     `json:"info"`
	Results []Record `json:"results"`
}

// Info carries the pagination metadata of a response.
// Only Next is used to decide whether more pages exist.
type Info struct {
	Count int     `json:"count"`
	Pages int     `json:"pages"`
	Next  *string `json:"next"`
	Prev  *string `json:"prev"`
}

// Record is a raw character as returned by the API.
// Fields are pointers so that absent values can be told apart from zero values.
type Record struct {
	ID     *int    `json:"id"`
	Name   *string `json:"name"`
	Status *string `json:"status"`
	Image  *string `json:"image"`
}

// HasMore reports whether the API advertises a next page.
func (r *Response) HasMore() bool {
	return r.Info.Next != nil && *r.Info.Next != ""
}
