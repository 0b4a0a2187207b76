package journal_test

import (
	"context"
	"testing"
	"time"

	"github.com/alovak/checkoutflow-playground/internal/journal"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := journal.NewRepository()
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Ping(ctx))

	base := time.Date(2026, time.October, 1, 12, 0, 0, 0, time.UTC)
	first := &journal.Attempt{ID: uuid.NewString(), Reference: "cart-1", Amount: "54", Currency: "USD", Status: journal.StatusApproved, CreatedAt: base}
	second := &journal.Attempt{ID: uuid.NewString(), Reference: "cart-1", Amount: "30", Currency: "USD", Status: journal.StatusDeclined, Message: "limit", CreatedAt: base.Add(time.Minute)}
	other := &journal.Attempt{ID: uuid.NewString(), Reference: "cart-2", Amount: "0", Currency: "USD", Status: journal.StatusApproved, CreatedAt: base.Add(2 * time.Minute)}

	for _, a := range []*journal.Attempt{first, second, other} {
		require.NoError(t, repo.Record(ctx, a))
	}

	t.Run("duplicate id", func(t *testing.T) {
		err := repo.Record(ctx, &journal.Attempt{ID: first.ID})
		require.ErrorIs(t, err, journal.ErrConflict)
	})

	t.Run("get", func(t *testing.T) {
		got, err := repo.Get(ctx, second.ID)
		require.NoError(t, err)
		require.Equal(t, second, got)

		_, err = repo.Get(ctx, uuid.NewString())
		require.ErrorIs(t, err, journal.ErrNotFound)
	})

	t.Run("list by reference newest first", func(t *testing.T) {
		got, err := repo.List(ctx, "cart-1")
		require.NoError(t, err)
		require.Equal(t, []*journal.Attempt{second, first}, got)
	})

	t.Run("list all", func(t *testing.T) {
		got, err := repo.List(ctx, "")
		require.NoError(t, err)
		require.Len(t, got, 3)
		require.Equal(t, other.ID, got[0].ID)
	})
}
