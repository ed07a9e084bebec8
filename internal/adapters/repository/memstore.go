package repository

import (
	"context"
	"sync"
	"time"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/model"
	"github.com/HeikoBre/screening-dashboard-sandbox/pkg/metrics"
)

// MemStore is an in-memory Store. Reviews are lost on restart.
type MemStore struct {
	mu      sync.RWMutex
	reviews map[string]model.Review
	cfg     *storeConfig
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(opts ...Option) *MemStore {
	return &MemStore{
		reviews: make(map[string]model.Review),
		cfg:     newStoreConfig(opts),
	}
}

// Get returns the review for gene.
func (s *MemStore) Get(_ context.Context, gene string) (model.Review, error) {
	defer observe(BackendMemory, "get", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[gene]
	if !ok {
		return model.Review{}, ErrNotFound
	}
	return r, nil
}

// Put stores r, stamping UpdatedAt when unset.
func (s *MemStore) Put(_ context.Context, r model.Review) error {
	defer observe(BackendMemory, "put", time.Now())
	if err := validGene(r.Gene); err != nil {
		return err
	}
	s.cfg.stamp(&r)
	s.mu.Lock()
	s.reviews[r.Gene] = r
	n := len(s.reviews)
	s.mu.Unlock()
	metrics.UpdateReviewsStored(n)
	return nil
}

// Delete removes the review for gene.
func (s *MemStore) Delete(_ context.Context, gene string) error {
	defer observe(BackendMemory, "delete", time.Now())
	s.mu.Lock()
	delete(s.reviews, gene)
	n := len(s.reviews)
	s.mu.Unlock()
	metrics.UpdateReviewsStored(n)
	return nil
}

// All returns a copy of every review.
func (s *MemStore) All(_ context.Context) (map[string]model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.Review, len(s.reviews))
	for g, r := range s.reviews {
		out[g] = r
	}
	return out, nil
}

// Count returns the number of stored reviews.
func (s *MemStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reviews)
}

// Reset removes every review.
func (s *MemStore) Reset(_ context.Context) error {
	s.mu.Lock()
	s.reviews = make(map[string]model.Review)
	s.mu.Unlock()
	metrics.UpdateReviewsStored(0)
	return nil
}

// Close is a no-op.
func (s *MemStore) Close() error { return nil }
