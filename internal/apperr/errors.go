// Package apperr holds sentinel errors shared across layers. The API maps
// them to status codes with errors.Is.
package apperr

import "errors"

var (
	// ErrNotFound: no record or tag has the given id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput: a field value is outside its domain, e.g. an
	// unknown mealtime or a quality other than 0, 1 or 2.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict: the write collides with existing data.
	ErrConflict = errors.New("conflict")
)
