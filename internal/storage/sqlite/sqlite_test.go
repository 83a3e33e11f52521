package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conti/internal/core"
	"conti/internal/storage"
	"conti/internal/storage/storagetest"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "conti.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepositoryContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Repository { return newTestRepository(t) })
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conti.db")
	v, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.Zero(t, v)

	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))

	v, err = SchemaVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
}

func TestSubsecondOrdering(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	base := time.Date(2024, 5, 1, 10, 0, 5, 0, time.UTC)

	for i, offset := range []time.Duration{0, 100 * time.Millisecond} {
		_, err := repo.AddTransaction(ctx, core.Transaction{
			ID:          []string{"a", "b"}[i],
			Type:        core.Expense,
			Amount:      decimal.NewFromInt(1),
			Description: "x",
			Date:        base,
			GroupID:     "g",
			CreatedAt:   base.Add(offset),
		})
		require.NoError(t, err)
	}

	list, err := repo.ListTransactions(ctx, "g")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
}
