package repository

import (
	"context"
	"testing"

	"casino/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository_GetByUserID(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	t.Run("account not found", func(t *testing.T) {
		account, err := repo.GetByUserID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, account)
	})

	t.Run("account found", func(t *testing.T) {
		created, err := repo.Create(ctx, 123456, 10000)
		require.NoError(t, err)

		account, err := repo.GetByUserID(ctx, 123456)
		require.NoError(t, err)
		require.NotNil(t, account)

		assert.Equal(t, int64(123456), account.UserID)
		assert.Equal(t, int64(10000), account.Balance)
		assert.Equal(t, created.CreatedAt, account.CreatedAt)
	})
}

func TestAccountRepository_Create(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	t.Run("successful creation", func(t *testing.T) {
		account, err := repo.Create(ctx, 123456, 5000)
		require.NoError(t, err)
		require.NotNil(t, account)

		assert.Equal(t, int64(123456), account.UserID)
		assert.Equal(t, int64(5000), account.Balance)
		assert.False(t, account.CreatedAt.IsZero())
		assert.False(t, account.UpdatedAt.IsZero())
	})

	t.Run("duplicate user ID", func(t *testing.T) {
		_, err := repo.Create(ctx, 789012, 0)
		require.NoError(t, err)

		_, err = repo.Create(ctx, 789012, 0)
		assert.Error(t, err)
	})
}

func TestAccountRepository_Credit(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	t.Run("successful credit", func(t *testing.T) {
		_, err := repo.Create(ctx, 123456, 1000)
		require.NoError(t, err)

		err = repo.Credit(ctx, 123456, 2500)
		require.NoError(t, err)

		account, err := repo.GetByUserID(ctx, 123456)
		require.NoError(t, err)
		assert.Equal(t, int64(3500), account.Balance)
	})

	t.Run("account not found", func(t *testing.T) {
		err := repo.Credit(ctx, 999999, 100)
		assert.Error(t, err)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		err := repo.Credit(ctx, 123456, 0)
		assert.Error(t, err)
	})
}

func TestAccountRepository_DebitIfSufficient(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	t.Run("sufficient balance", func(t *testing.T) {
		_, err := repo.Create(ctx, 111111, 10000)
		require.NoError(t, err)

		ok, err := repo.DebitIfSufficient(ctx, 111111, 4000)
		require.NoError(t, err)
		assert.True(t, ok)

		account, err := repo.GetByUserID(ctx, 111111)
		require.NoError(t, err)
		assert.Equal(t, int64(6000), account.Balance)
	})

	t.Run("insufficient balance leaves account untouched", func(t *testing.T) {
		_, err := repo.Create(ctx, 222222, 3000)
		require.NoError(t, err)

		ok, err := repo.DebitIfSufficient(ctx, 222222, 3001)
		require.NoError(t, err)
		assert.False(t, ok)

		account, err := repo.GetByUserID(ctx, 222222)
		require.NoError(t, err)
		assert.Equal(t, int64(3000), account.Balance)
	})

	t.Run("exact balance drains to zero", func(t *testing.T) {
		_, err := repo.Create(ctx, 333333, 500)
		require.NoError(t, err)

		ok, err := repo.DebitIfSufficient(ctx, 333333, 500)
		require.NoError(t, err)
		assert.True(t, ok)

		account, err := repo.GetByUserID(ctx, 333333)
		require.NoError(t, err)
		assert.Equal(t, int64(0), account.Balance)
	})

	t.Run("unknown account", func(t *testing.T) {
		ok, err := repo.DebitIfSufficient(ctx, 999999, 100)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
