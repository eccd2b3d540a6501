package search

import "errors"

// Sentinel errors for index operations.
var (
	// ErrIndexNotLoaded indicates a search against an empty or unloaded index.
	ErrIndexNotLoaded = errors.New("index not loaded")

	// ErrDimensionMismatch indicates inconsistent vector dimensions.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrIndexNotFound indicates a missing index artifact on disk.
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexCorrupt indicates mutually inconsistent index artifacts.
	ErrIndexCorrupt = errors.New("index corrupt")
)
