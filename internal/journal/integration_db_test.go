package journal_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/alovak/checkoutflow-playground/internal/journal"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

// Skips unless JOURNAL_DSN points at a Postgres database.
func TestPGRepository(t *testing.T) {
	dsn := os.Getenv("JOURNAL_DSN")
	if dsn == "" {
		t.Skip("JOURNAL_DSN not set; skipping DB integration test")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, db.PingContext(ctx))

	repo := journal.NewPGRepository(db)
	require.NoError(t, repo.Migrate(ctx))

	ref := "it-" + uuid.NewString()
	a := &journal.Attempt{
		ID:        uuid.NewString(),
		Reference: ref,
		Amount:    "54.00",
		Currency:  "USD",
		Status:    journal.StatusApproved,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, repo.Record(ctx, a))
	require.ErrorIs(t, repo.Record(ctx, a), journal.ErrConflict)

	got, err := repo.List(ctx, ref)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, a.ID, got[0].ID)
	require.Equal(t, journal.StatusApproved, got[0].Status)

	precise := &journal.Attempt{
		ID:        uuid.NewString(),
		Reference: ref,
		Amount:    "21.99113",
		Currency:  "USD",
		Status:    journal.StatusDeclined,
		Message:   "card declined",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, repo.Record(ctx, precise))
	stored, err := repo.Get(ctx, precise.ID)
	require.NoError(t, err)
	require.Equal(t, "21.99113", stored.Amount)
	require.Equal(t, "card declined", stored.Message)

	_, err = repo.Get(ctx, uuid.NewString())
	require.ErrorIs(t, err, journal.ErrNotFound)
}
