package service

import (
	"context"
	"testing"

	"casino/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciliation_HoldsAcrossOperations(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	deposits := NewDepositService(store, 0, 1000)
	settlement := NewSettlementService(store)
	reconciliation := NewReconciliationService(store)

	// Deposit, bet, win, bet, lose, withdraw
	_, err := deposits.ReserveDeposit(ctx, 1, 20000, "psp-1")
	require.NoError(t, err)
	require.NoError(t, deposits.ConfirmDeposit(ctx, "psp-1"))
	require.NoError(t, reconciliation.Verify(ctx, 1))

	won, err := settlement.PlaceBet(ctx, 1, models.GameTypeMultiplier, 3000)
	require.NoError(t, err)
	require.NoError(t, reconciliation.Verify(ctx, 1))

	_, err = settlement.ResolveByPlayer(ctx, 1, won.ID, 1.8)
	require.NoError(t, err)
	require.NoError(t, reconciliation.Verify(ctx, 1))

	lost, err := settlement.PlaceBet(ctx, 1, models.GameTypeMultiplier, 5000)
	require.NoError(t, err)
	require.NoError(t, settlement.ResolveByEngine(ctx, lost.ID, Crashed(1.1)))
	require.NoError(t, reconciliation.Verify(ctx, 1))

	_, err = deposits.Withdraw(ctx, 1, 2000)
	require.NoError(t, err)
	require.NoError(t, reconciliation.Verify(ctx, 1))
}

func TestReconciliation_DetectsDrift(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	// Seeding bypasses the ledger, which is exactly the drift being detected
	store.seedAccount(1, 5000)

	reconciliation := NewReconciliationService(store)

	err := reconciliation.Verify(ctx, 1)
	assert.ErrorIs(t, err, ErrLedgerDrift)
}

func TestReconciliation_UnknownAccount(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	reconciliation := NewReconciliationService(store)

	err := reconciliation.Verify(ctx, 99)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}
