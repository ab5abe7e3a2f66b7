package domain

import (
	"errors"
)

// Engine error taxonomy. Per-source failures (density query, satellite
// provider) are caught by the evidence layer and converted to "component
// absent"; the remaining errors propagate to the caller for explicit
// handling.
var (
	// ErrDataUnavailable marks a single evidence source that could not
	// be fetched. Recoverable: fusion degrades to the remaining
	// components.
	ErrDataUnavailable = errors.New("evidence source unavailable")

	// ErrInsufficientEvidence is returned when every component is
	// absent. Fusion refuses to produce a score rather than ranking a
	// zero-evidence report as safe.
	ErrInsufficientEvidence = errors.New("insufficient evidence")

	// ErrNotFound is returned when an operation references a missing
	// report or outbreak.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentModification signals that a clustering snapshot was
	// invalidated mid-pass. The whole pass is retried; partial results
	// are never committed.
	ErrConcurrentModification = errors.New("concurrent modification")
)
