package csvfile

import "errors"

// Sentinel kinds for dataset loading.
var (
	ErrEmptyTable = errors.New("table has no columns")
	ErrNotTabular = errors.New("input is not tabular")
)
