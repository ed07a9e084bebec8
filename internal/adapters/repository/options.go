package repository

import (
	"time"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/model"
)

// Option applies a configuration option to a Store.
type Option func(*storeConfig)

type storeConfig struct {
	now func() time.Time
}

func newStoreConfig(opts []Option) *storeConfig {
	c := &storeConfig{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithClock sets the time source used to stamp reviews without UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(c *storeConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// stamp fills UpdatedAt when unset and normalizes it to UTC.
func (c *storeConfig) stamp(r *model.Review) {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = c.now()
	}
	r.UpdatedAt = r.UpdatedAt.UTC()
}
