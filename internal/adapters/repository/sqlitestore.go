package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/model"
	"github.com/HeikoBre/screening-dashboard-sandbox/pkg/metrics"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reviews (
	gene       TEXT PRIMARY KEY,
	decision   TEXT NOT NULL DEFAULT '',
	notes      TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
)`

// reviewRow is the database shape of a review. Timestamps are stored as
// RFC 3339 text.
type reviewRow struct {
	Gene      string `db:"gene"`
	Decision  string `db:"decision"`
	Notes     string `db:"notes"`
	UpdatedAt string `db:"updated_at"`
}

func (r reviewRow) review() model.Review {
	t, err := time.Parse(time.RFC3339Nano, r.UpdatedAt)
	if err != nil {
		t = time.Time{}
	}
	return model.Review{
		Gene:      r.Gene,
		Decision:  model.Decision(r.Decision),
		Notes:     r.Notes,
		UpdatedAt: t,
	}
}

// SQLiteStore keeps the ledger in a SQLite database.
type SQLiteStore struct {
	db  *sqlx.DB
	cfg *storeConfig
}

// OpenSQLiteStore opens or creates the database at path.
func OpenSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if path == "" {
		return nil, ErrMissingPath
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	// one connection keeps writes serialized
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure ledger database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}

	s := &SQLiteStore{db: db, cfg: newStoreConfig(opts)}
	metrics.UpdateReviewsStored(s.Count(ctx))
	return s, nil
}

// Get returns the review for gene.
func (s *SQLiteStore) Get(ctx context.Context, gene string) (model.Review, error) {
	defer observe(BackendSQLite, "get", time.Now())
	var row reviewRow
	err := s.db.GetContext(ctx, &row, `SELECT gene, decision, notes, updated_at FROM reviews WHERE gene = ?`, gene)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Review{}, ErrNotFound
	}
	if err != nil {
		return model.Review{}, fmt.Errorf("get review %s: %w", gene, err)
	}
	return row.review(), nil
}

// Put upserts r.
func (s *SQLiteStore) Put(ctx context.Context, r model.Review) error {
	defer observe(BackendSQLite, "put", time.Now())
	if err := validGene(r.Gene); err != nil {
		return err
	}
	s.cfg.stamp(&r)
	row := reviewRow{
		Gene:      r.Gene,
		Decision:  string(r.Decision),
		Notes:     r.Notes,
		UpdatedAt: r.UpdatedAt.Format(time.RFC3339Nano),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO reviews (gene, decision, notes, updated_at)
		VALUES (:gene, :decision, :notes, :updated_at)
		ON CONFLICT(gene) DO UPDATE SET
			decision = excluded.decision,
			notes = excluded.notes,
			updated_at = excluded.updated_at`, row)
	if err != nil {
		return fmt.Errorf("put review %s: %w", r.Gene, err)
	}
	metrics.UpdateReviewsStored(s.Count(ctx))
	return nil
}

// Delete removes the review for gene.
func (s *SQLiteStore) Delete(ctx context.Context, gene string) error {
	defer observe(BackendSQLite, "delete", time.Now())
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE gene = ?`, gene); err != nil {
		return fmt.Errorf("delete review %s: %w", gene, err)
	}
	metrics.UpdateReviewsStored(s.Count(ctx))
	return nil
}

// All returns every review keyed by gene.
func (s *SQLiteStore) All(ctx context.Context) (map[string]model.Review, error) {
	var rows []reviewRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT gene, decision, notes, updated_at FROM reviews ORDER BY gene`); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	out := make(map[string]model.Review, len(rows))
	for _, row := range rows {
		out[row.Gene] = row.review()
	}
	return out, nil
}

// Count returns the number of stored reviews, or 0 when the query fails.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM reviews`); err != nil {
		return 0
	}
	return n
}

// Reset removes every review.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reviews`); err != nil {
		return fmt.Errorf("reset reviews: %w", err)
	}
	metrics.UpdateReviewsStored(0)
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
