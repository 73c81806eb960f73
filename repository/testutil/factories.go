package testutil

import (
	"casino/models"

	"github.com/google/uuid"
)

// NewOpenSession creates an open wager session with sensible defaults
func NewOpenSession(userID int64, gameType models.GameType, betAmount int64) *models.WagerSession {
	return &models.WagerSession{
		ID:        uuid.New(),
		UserID:    userID,
		GameType:  gameType,
		BetAmount: betAmount,
		Status:    models.SessionStatusOpen,
	}
}

// NewBetEntry creates a completed bet ledger entry linked to a session
func NewBetEntry(userID int64, sessionID uuid.UUID, amount int64) *models.LedgerEntry {
	return &models.LedgerEntry{
		UserID:    userID,
		SessionID: &sessionID,
		Kind:      models.LedgerKindBet,
		Amount:    -amount,
		Status:    models.LedgerStatusCompleted,
	}
}

// NewPendingDeposit creates a pending deposit entry keyed by an external ref
func NewPendingDeposit(userID int64, amount int64, externalRef string) *models.LedgerEntry {
	return &models.LedgerEntry{
		UserID:      userID,
		Kind:        models.LedgerKindDeposit,
		Amount:      amount,
		Status:      models.LedgerStatusPending,
		ExternalRef: &externalRef,
	}
}
