package meeting

// Package-level constants for meeting management.

const (
	// DefaultListLimit is the number of meetings listed when no limit is given.
	DefaultListLimit = 10

	// MaxListLimit caps a single listing.
	MaxListLimit = 100
)
