package repository

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrNotFound       = errors.New("review not found")
	ErrInvalidGene    = errors.New("invalid gene")
	ErrUnknownBackend = errors.New("unknown ledger backend")
	ErrMissingPath    = errors.New("ledger path required")
	ErrClosed         = errors.New("ledger closed")
)
