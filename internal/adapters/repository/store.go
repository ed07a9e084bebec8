// Package repository persists reviewer decisions and notes per gene.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/model"
	"github.com/HeikoBre/screening-dashboard-sandbox/pkg/metrics"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendTSV    = "tsv"
	BackendSQLite = "sqlite"
)

// Store provides read/write access to the review ledger.
type Store interface {
	// Get returns the review for gene, or ErrNotFound.
	Get(ctx context.Context, gene string) (model.Review, error)
	// Put inserts or replaces the review for r.Gene.
	Put(ctx context.Context, r model.Review) error
	// Delete removes the review for gene. Deleting an absent gene is not an error.
	Delete(ctx context.Context, gene string) error
	// All returns a snapshot of every review keyed by gene.
	All(ctx context.Context) (map[string]model.Review, error)
	// Count returns the number of stored reviews.
	Count(ctx context.Context) int
	// Reset removes every review.
	Reset(ctx context.Context) error
	// Close releases resources held by the store.
	Close() error
}

// Open creates the store for backend. File-backed stores require path.
func Open(ctx context.Context, backend, path string, opts ...Option) (Store, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemStore(opts...), nil
	case BackendTSV:
		s, err := OpenTSVStore(path, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		s, err := OpenSQLiteStore(ctx, path, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func validGene(gene string) error {
	if strings.TrimSpace(gene) == "" {
		return ErrInvalidGene
	}
	return nil
}

// observe records latency of one ledger operation.
func observe(backend, op string, start time.Time) {
	metrics.RecordLedgerLatency(backend, op, float64(time.Since(start).Microseconds())/1000)
}
