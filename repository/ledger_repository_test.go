package repository

import (
	"context"
	"testing"

	"casino/models"
	"casino/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRepository_Append(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	sessions := NewSessionRepository(testDB.DB)
	repo := NewLedgerRepository(testDB.DB)
	ctx := context.Background()

	_, err := accounts.Create(ctx, 123456, 10000)
	require.NoError(t, err)

	t.Run("bet entry linked to session", func(t *testing.T) {
		session := testutil.NewOpenSession(123456, models.GameTypeMultiplier, 1000)
		require.NoError(t, sessions.Create(ctx, session))

		entry := testutil.NewBetEntry(123456, session.ID, 1000)
		err := repo.Append(ctx, entry)
		require.NoError(t, err)
		assert.NotZero(t, entry.ID)
		assert.False(t, entry.CreatedAt.IsZero())

		linked, err := repo.GetBySession(ctx, session.ID)
		require.NoError(t, err)
		require.Len(t, linked, 1)
		assert.Equal(t, int64(-1000), linked[0].Amount)
		assert.Equal(t, models.LedgerKindBet, linked[0].Kind)
	})

	t.Run("duplicate external ref rejected", func(t *testing.T) {
		first := testutil.NewPendingDeposit(123456, 5000, "psp-dup")
		require.NoError(t, repo.Append(ctx, first))

		second := testutil.NewPendingDeposit(123456, 5000, "psp-dup")
		err := repo.Append(ctx, second)
		assert.Error(t, err)
	})
}

func TestLedgerRepository_CompleteByExternalRef(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	repo := NewLedgerRepository(testDB.DB)
	ctx := context.Background()

	_, err := accounts.Create(ctx, 123456, 0)
	require.NoError(t, err)

	t.Run("completes a pending entry once", func(t *testing.T) {
		entry := testutil.NewPendingDeposit(123456, 5000, "psp-abc")
		require.NoError(t, repo.Append(ctx, entry))

		ok, err := repo.CompleteByExternalRef(ctx, "psp-abc")
		require.NoError(t, err)
		assert.True(t, ok)

		fetched, err := repo.GetByExternalRef(ctx, "psp-abc")
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.Equal(t, models.LedgerStatusCompleted, fetched.Status)

		// Replayed confirmation is a no-op
		ok, err = repo.CompleteByExternalRef(ctx, "psp-abc")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown ref", func(t *testing.T) {
		ok, err := repo.CompleteByExternalRef(ctx, "psp-missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestLedgerRepository_GetByExternalRef(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	repo := NewLedgerRepository(testDB.DB)
	ctx := context.Background()

	_, err := accounts.Create(ctx, 123456, 0)
	require.NoError(t, err)

	t.Run("not found", func(t *testing.T) {
		entry, err := repo.GetByExternalRef(ctx, "psp-nope")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("found", func(t *testing.T) {
		entry := testutil.NewPendingDeposit(123456, 2500, "psp-xyz")
		require.NoError(t, repo.Append(ctx, entry))

		fetched, err := repo.GetByExternalRef(ctx, "psp-xyz")
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.Equal(t, entry.ID, fetched.ID)
		assert.Equal(t, int64(2500), fetched.Amount)
		assert.Equal(t, models.LedgerStatusPending, fetched.Status)
	})
}

func TestLedgerRepository_SumCompletedByUser(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	sessions := NewSessionRepository(testDB.DB)
	repo := NewLedgerRepository(testDB.DB)
	ctx := context.Background()

	_, err := accounts.Create(ctx, 123456, 0)
	require.NoError(t, err)

	t.Run("empty ledger sums to zero", func(t *testing.T) {
		sum, err := repo.SumCompletedByUser(ctx, 123456)
		require.NoError(t, err)
		assert.Equal(t, int64(0), sum)
	})

	t.Run("pending entries excluded from the sum", func(t *testing.T) {
		session := testutil.NewOpenSession(123456, models.GameTypeMultiplier, 2000)
		require.NoError(t, sessions.Create(ctx, session))

		deposit := testutil.NewPendingDeposit(123456, 10000, "psp-sum")
		require.NoError(t, repo.Append(ctx, deposit))

		sum, err := repo.SumCompletedByUser(ctx, 123456)
		require.NoError(t, err)
		assert.Equal(t, int64(0), sum)

		ok, err := repo.CompleteByExternalRef(ctx, "psp-sum")
		require.NoError(t, err)
		require.True(t, ok)

		bet := testutil.NewBetEntry(123456, session.ID, 2000)
		require.NoError(t, repo.Append(ctx, bet))

		win := &models.LedgerEntry{
			UserID:    123456,
			SessionID: &session.ID,
			Kind:      models.LedgerKindWin,
			Amount:    5000,
			Status:    models.LedgerStatusCompleted,
		}
		require.NoError(t, repo.Append(ctx, win))

		sum, err = repo.SumCompletedByUser(ctx, 123456)
		require.NoError(t, err)
		assert.Equal(t, int64(13000), sum)
	})
}
