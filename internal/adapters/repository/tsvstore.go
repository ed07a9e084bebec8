package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/model"
	"github.com/HeikoBre/screening-dashboard-sandbox/pkg/metrics"
)

// TSV ledger columns.
const (
	tsvGeneCol = iota
	tsvDecisionCol
	tsvNotesCol
	tsvUpdatedCol
	tsvColumns
)

var tsvHeader = []string{"gene", "decision", "notes", "updated_at"}

// TSVStore keeps the ledger in memory and rewrites a tab-delimited file on
// every change. The file has a header row; notes may contain tabs and
// newlines, which are quoted.
type TSVStore struct {
	mu      sync.Mutex
	path    string
	reviews map[string]model.Review
	cfg     *storeConfig
	closed  bool
}

// OpenTSVStore loads path, creating the file and its directory if needed.
func OpenTSVStore(path string, opts ...Option) (*TSVStore, error) {
	if path == "" {
		return nil, ErrMissingPath
	}
	s := &TSVStore{
		path:    path,
		reviews: make(map[string]model.Review),
		cfg:     newStoreConfig(opts),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	metrics.UpdateReviewsStored(len(s.reviews))
	return s, nil
}

func (s *TSVStore) load() error {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return fmt.Errorf("create ledger directory: %w", err)
		}
		return s.flush()
	}
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return fmt.Errorf("read ledger %s: %w", s.path, err)
	}

	for i, row := range rows {
		if i == 0 || len(row) != tsvColumns {
			continue
		}
		updated, err := time.Parse(time.RFC3339Nano, row[tsvUpdatedCol])
		if err != nil {
			updated = time.Time{}
		}
		s.reviews[row[tsvGeneCol]] = model.Review{
			Gene:      row[tsvGeneCol],
			Decision:  model.Decision(row[tsvDecisionCol]),
			Notes:     row[tsvNotesCol],
			UpdatedAt: updated,
		}
	}
	return nil
}

// flush rewrites the ledger file through a temporary file and rename.
// Callers hold s.mu.
func (s *TSVStore) flush() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	defer os.Remove(tmp.Name())

	genes := make([]string, 0, len(s.reviews))
	for g := range s.reviews {
		genes = append(genes, g)
	}
	sort.Strings(genes)

	cw := csv.NewWriter(tmp)
	cw.Comma = '\t'
	if err := cw.Write(tsvHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("write ledger: %w", err)
	}
	for _, g := range genes {
		r := s.reviews[g]
		row := make([]string, tsvColumns)
		row[tsvGeneCol] = r.Gene
		row[tsvDecisionCol] = string(r.Decision)
		row[tsvNotesCol] = r.Notes
		row[tsvUpdatedCol] = r.UpdatedAt.Format(time.RFC3339Nano)
		if err := cw.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("write ledger: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

// Path returns the ledger file path.
func (s *TSVStore) Path() string { return s.path }

// Get returns the review for gene.
func (s *TSVStore) Get(_ context.Context, gene string) (model.Review, error) {
	defer observe(BackendTSV, "get", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Review{}, ErrClosed
	}
	r, ok := s.reviews[gene]
	if !ok {
		return model.Review{}, ErrNotFound
	}
	return r, nil
}

// Put stores r and rewrites the file. The in-memory state is rolled back
// when the write fails.
func (s *TSVStore) Put(_ context.Context, r model.Review) error {
	defer observe(BackendTSV, "put", time.Now())
	if err := validGene(r.Gene); err != nil {
		return err
	}
	s.cfg.stamp(&r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	prev, had := s.reviews[r.Gene]
	s.reviews[r.Gene] = r
	if err := s.flush(); err != nil {
		if had {
			s.reviews[r.Gene] = prev
		} else {
			delete(s.reviews, r.Gene)
		}
		return err
	}
	metrics.UpdateReviewsStored(len(s.reviews))
	return nil
}

// Delete removes the review for gene and rewrites the file.
func (s *TSVStore) Delete(_ context.Context, gene string) error {
	defer observe(BackendTSV, "delete", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	prev, had := s.reviews[gene]
	if !had {
		return nil
	}
	delete(s.reviews, gene)
	if err := s.flush(); err != nil {
		s.reviews[gene] = prev
		return err
	}
	metrics.UpdateReviewsStored(len(s.reviews))
	return nil
}

// All returns a copy of every review.
func (s *TSVStore) All(_ context.Context) (map[string]model.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make(map[string]model.Review, len(s.reviews))
	for g, r := range s.reviews {
		out[g] = r
	}
	return out, nil
}

// Count returns the number of stored reviews.
func (s *TSVStore) Count(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reviews)
}

// Reset removes every review and truncates the file to its header.
func (s *TSVStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	prev := s.reviews
	s.reviews = make(map[string]model.Review)
	if err := s.flush(); err != nil {
		s.reviews = prev
		return err
	}
	metrics.UpdateReviewsStored(0)
	return nil
}

// Close marks the store closed. The file is always up to date.
func (s *TSVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
