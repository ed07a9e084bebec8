package service

import "errors"

// Sentinel error kinds returned by the Service.
var (
	ErrNotStarted  = errors.New("service not started")
	ErrNoDataset   = errors.New("no dataset loaded")
	ErrUnknownGene = errors.New("unknown gene")
)
