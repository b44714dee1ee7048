package search

import "errors"

// The four failure kinds a search can surface. Callers inspect them with
// errors.Is; the HTTP layer maps each to a distinct status code. Anything
// that is a legitimate data state (a stored card missing an embedding, a
// modality the caller never asked for) is not an error and never appears
// here.
var (
	// ErrInvalidQuery means the request itself is malformed: non-positive
	// limit, negative weights, that kind of thing.
	ErrInvalidQuery = errors.New("invalid search query")

	// ErrEmbeddingUnavailable means a required embedding collaborator failed
	// or returned a vector of the wrong dimension. The search is never
	// silently continued with a zero vector.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrDimensionMismatch means two vectors of unequal length were compared.
	// Should be impossible if the collaborators are honest, but it is checked.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrStoreUnavailable means the card store could not be reached or the
	// ranked query failed.
	ErrStoreUnavailable = errors.New("card store unavailable")
)
