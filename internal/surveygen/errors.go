package surveygen

import "errors"

var (
	// ErrInvalidConfig is returned when the run configuration is unusable.
	ErrInvalidConfig = errors.New("invalid generator config")
	// ErrUnhealthy is returned when the service health check fails.
	ErrUnhealthy = errors.New("service unhealthy")
	// ErrUnexpectedStatus is returned for non-success HTTP responses.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrMismatch is returned when the service disagrees with the generated survey.
	ErrMismatch = errors.New("verification mismatch")
)
