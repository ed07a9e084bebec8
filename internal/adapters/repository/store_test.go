package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/model"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func openAll(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	tsv, err := OpenTSVStore(filepath.Join(dir, "ledger.tsv"), WithClock(fixedClock))
	require.NoError(t, err)
	sqlite, err := OpenSQLiteStore(ctx, filepath.Join(dir, "ledger.db"), WithClock(fixedClock))
	require.NoError(t, err)

	stores := map[string]Store{
		BackendMemory: NewMemStore(WithClock(fixedClock)),
		BackendTSV:    tsv,
		BackendSQLite: sqlite,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "BRCA1")
			require.ErrorIs(t, err, ErrNotFound)
			assert.Equal(t, 0, s.Count(ctx))

			require.NoError(t, s.Put(ctx, model.Review{
				Gene:     "BRCA1",
				Decision: model.DecisionNationalScreening,
				Notes:    "strong\tevidence\nsee minutes",
			}))
			got, err := s.Get(ctx, "BRCA1")
			require.NoError(t, err)
			assert.Equal(t, model.DecisionNationalScreening, got.Decision)
			assert.Equal(t, "strong\tevidence\nsee minutes", got.Notes)
			assert.True(t, fixedNow.Equal(got.UpdatedAt))

			// overwrite keeps one entry
			require.NoError(t, s.Put(ctx, model.Review{Gene: "BRCA1", Decision: model.DecisionDeferred}))
			got, err = s.Get(ctx, "BRCA1")
			require.NoError(t, err)
			assert.Equal(t, model.DecisionDeferred, got.Decision)
			assert.Empty(t, got.Notes)
			assert.Equal(t, 1, s.Count(ctx))

			require.NoError(t, s.Put(ctx, model.Review{Gene: "PAH", Notes: "notes only"}))
			all, err := s.All(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, model.DecisionNone, all["PAH"].Decision)
			assert.Equal(t, "notes only", all["PAH"].Notes)

			require.NoError(t, s.Delete(ctx, "BRCA1"))
			require.NoError(t, s.Delete(ctx, "BRCA1"))
			_, err = s.Get(ctx, "BRCA1")
			require.ErrorIs(t, err, ErrNotFound)
			assert.Equal(t, 1, s.Count(ctx))

			require.NoError(t, s.Reset(ctx))
			assert.Equal(t, 0, s.Count(ctx))
			all, err = s.All(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestStoreRejectsEmptyGene(t *testing.T) {
	ctx := context.Background()
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Put(ctx, model.Review{Gene: "  "})
			require.ErrorIs(t, err, ErrInvalidGene)
			assert.Equal(t, 0, s.Count(ctx))
		})
	}
}

func TestStoreKeepsExplicitTimestamp(t *testing.T) {
	ctx := context.Background()
	stamp := time.Date(2023, 1, 2, 3, 4, 5, 6000, time.FixedZone("CET", 3600))
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, model.Review{Gene: "CFTR", UpdatedAt: stamp}))
			got, err := s.Get(ctx, "CFTR")
			require.NoError(t, err)
			assert.True(t, stamp.Equal(got.UpdatedAt))
			assert.Equal(t, time.UTC, got.UpdatedAt.Location())
		})
	}
}

func TestTSVStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "ledger.tsv")

	s, err := OpenTSVStore(path, WithClock(fixedClock))
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, model.Review{Gene: "PAH", Decision: model.DecisionScientificStudy, Notes: "a\tb"}))
	require.NoError(t, s.Put(ctx, model.Review{Gene: "CFTR", Decision: model.DecisionNotRecommended}))
	require.NoError(t, s.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "gene\tdecision\tnotes\tupdated_at", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "CFTR\tnot_recommended\t\t"))

	reopened, err := OpenTSVStore(path)
	require.NoError(t, err)
	got, err := reopened.Get(ctx, "PAH")
	require.NoError(t, err)
	assert.Equal(t, model.DecisionScientificStudy, got.Decision)
	assert.Equal(t, "a\tb", got.Notes)
	assert.True(t, fixedNow.Equal(got.UpdatedAt))
	assert.Equal(t, 2, reopened.Count(ctx))
	assert.Equal(t, path, reopened.Path())
}

func TestTSVStoreClosed(t *testing.T) {
	ctx := context.Background()
	s, err := OpenTSVStore(filepath.Join(t.TempDir(), "ledger.tsv"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	require.ErrorIs(t, s.Put(ctx, model.Review{Gene: "PAH"}), ErrClosed)
	_, err = s.Get(ctx, "PAH")
	require.ErrorIs(t, err, ErrClosed)
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := OpenSQLiteStore(ctx, path, WithClock(fixedClock))
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, model.Review{Gene: "PAH", Decision: model.DecisionNationalScreening}))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get(ctx, "PAH")
	require.NoError(t, err)
	assert.Equal(t, model.DecisionNationalScreening, got.Decision)
	assert.True(t, fixedNow.Equal(got.UpdatedAt))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, BackendMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemStore{}, s)

	s, err = Open(ctx, BackendTSV, filepath.Join(dir, "l.tsv"))
	require.NoError(t, err)
	assert.IsType(t, &TSVStore{}, s)
	require.NoError(t, s.Close())

	s, err = Open(ctx, BackendSQLite, filepath.Join(dir, "l.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, BackendTSV, "")
	require.ErrorIs(t, err, ErrMissingPath)
	_, err = Open(ctx, BackendSQLite, "")
	require.ErrorIs(t, err, ErrMissingPath)
	_, err = Open(ctx, "redis", "x")
	require.ErrorIs(t, err, ErrUnknownBackend)
}
