package repository

import (
	"context"
	"testing"

	"casino/models"
	"casino/repository/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository_Create(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	repo := NewSessionRepository(testDB.DB)
	ctx := context.Background()

	_, err := accounts.Create(ctx, 123456, 10000)
	require.NoError(t, err)

	t.Run("successful creation", func(t *testing.T) {
		session := testutil.NewOpenSession(123456, models.GameTypeMultiplier, 1000)
		err := repo.Create(ctx, session)
		require.NoError(t, err)
		assert.False(t, session.CreatedAt.IsZero())

		fetched, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.Equal(t, session.ID, fetched.ID)
		assert.Equal(t, models.SessionStatusOpen, fetched.Status)
		assert.Nil(t, fetched.OutcomeMultiplier)
		assert.Nil(t, fetched.ResolvedAt)
	})

	t.Run("second open session for same game rejected", func(t *testing.T) {
		dup := testutil.NewOpenSession(123456, models.GameTypeMultiplier, 2000)
		err := repo.Create(ctx, dup)
		assert.Error(t, err)
	})

	t.Run("open session for the other game allowed", func(t *testing.T) {
		other := testutil.NewOpenSession(123456, models.GameTypeTiles, 2000)
		err := repo.Create(ctx, other)
		assert.NoError(t, err)
	})
}

func TestSessionRepository_GetOpenByUserAndGame(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	repo := NewSessionRepository(testDB.DB)
	ctx := context.Background()

	_, err := accounts.Create(ctx, 123456, 10000)
	require.NoError(t, err)

	t.Run("no open session", func(t *testing.T) {
		session, err := repo.GetOpenByUserAndGame(ctx, 123456, models.GameTypeTiles)
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("open session found", func(t *testing.T) {
		created := testutil.NewOpenSession(123456, models.GameTypeTiles, 1500)
		require.NoError(t, repo.Create(ctx, created))

		session, err := repo.GetOpenByUserAndGame(ctx, 123456, models.GameTypeTiles)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, created.ID, session.ID)
	})

	t.Run("resolved session not returned", func(t *testing.T) {
		session, err := repo.GetOpenByUserAndGame(ctx, 123456, models.GameTypeTiles)
		require.NoError(t, err)
		require.NotNil(t, session)

		mult := 2.0
		ok, err := repo.MarkResolved(ctx, session.ID, models.SessionStatusWon, &mult, 3000)
		require.NoError(t, err)
		require.True(t, ok)

		open, err := repo.GetOpenByUserAndGame(ctx, 123456, models.GameTypeTiles)
		require.NoError(t, err)
		assert.Nil(t, open)
	})
}

func TestSessionRepository_MarkResolved(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	repo := NewSessionRepository(testDB.DB)
	ctx := context.Background()

	_, err := accounts.Create(ctx, 123456, 10000)
	require.NoError(t, err)

	t.Run("resolves an open session once", func(t *testing.T) {
		session := testutil.NewOpenSession(123456, models.GameTypeMultiplier, 2000)
		require.NoError(t, repo.Create(ctx, session))

		mult := 2.5
		ok, err := repo.MarkResolved(ctx, session.ID, models.SessionStatusWon, &mult, 5000)
		require.NoError(t, err)
		assert.True(t, ok)

		fetched, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SessionStatusWon, fetched.Status)
		require.NotNil(t, fetched.OutcomeMultiplier)
		assert.Equal(t, 2.5, *fetched.OutcomeMultiplier)
		require.NotNil(t, fetched.Payout)
		assert.Equal(t, int64(5000), *fetched.Payout)
		assert.NotNil(t, fetched.ResolvedAt)
	})

	t.Run("second resolution loses the compare-and-set", func(t *testing.T) {
		session := testutil.NewOpenSession(123456, models.GameTypeTiles, 2000)
		require.NoError(t, repo.Create(ctx, session))

		mult := 1.8
		ok, err := repo.MarkResolved(ctx, session.ID, models.SessionStatusWon, &mult, 3600)
		require.NoError(t, err)
		require.True(t, ok)

		// Engine-side loss arriving after the cash-out must not stick
		ok, err = repo.MarkResolved(ctx, session.ID, models.SessionStatusLost, nil, 0)
		require.NoError(t, err)
		assert.False(t, ok)

		fetched, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SessionStatusWon, fetched.Status)
		assert.Equal(t, int64(3600), *fetched.Payout)
	})

	t.Run("unknown session", func(t *testing.T) {
		ok, err := repo.MarkResolved(ctx, uuid.New(), models.SessionStatusLost, nil, 0)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
