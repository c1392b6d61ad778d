package character

import (
	"fmt"
)

// MappingError is returned when a record lacks a required field.
type MappingError struct {
	// Index is the position of the record in the page, -1 when unknown.
	Index int
	Field string
	Err   error
}

// Error implements the error interface.
func (e *MappingError) Error() string {
	msg := "malformed character record"
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s at index %d", msg, e.Index)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s: missing field %q", msg, e.Field)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *MappingError) Unwrap() error {
	return e.Err
}

// ToCharacter converts a raw record into a Character.
func ToCharacter(r Record) (Character, error) {
	switch {
	case r.ID == nil:
		return Character{}, &MappingError{Index: -1, Field: "id"}
	case r.Name == nil:
		return Character{}, &MappingError{Index: -1, Field: "name"}
	case r.Status == nil:
		return Character{}, &MappingError{Index: -1, Field: "status"}
	case r.Image == nil:
		return Character{}, &MappingError{Index: -1, Field: "image"}
	}

	return Character{
		ID:     *r.ID,
		Name:   *r.Name,
		Status: *r.Status,
		Image:  *r.Image,
	}, nil
}

// ToCharacters maps a page of records, preserving order.
// It stops at the first malformed record.
func ToCharacters(records []Record) ([]Character, error) {
	out := make([]Character, 0, len(records))
	for i, r := range records {
		c, err := ToCharacter(r)
		if err != nil {
			if me, ok := err.(*MappingError); ok {
				me.Index = i
			}
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
