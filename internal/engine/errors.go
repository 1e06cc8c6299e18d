package engine

import "errors"

// Error taxonomy surfaced to the boundary layer. Compute paths prefer
// graceful degradation (empty lists, fallback strategies); only these
// conditions propagate to the caller.
var (
	// ErrNotReady means no factor model has been loaded yet.
	ErrNotReady = errors.New("factor model not loaded")

	// ErrNotFound means a referenced entity is absent where absence is
	// semantically invalid, e.g. a similarity query for an unknown movie.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument covers out-of-range scores and counts and empty
	// identifiers.
	ErrInvalidArgument = errors.New("invalid argument")
)
