package model

import "errors"

// Sentinel kinds for model validation.
var (
	ErrInvalidDecision = errors.New("invalid review decision")
)
