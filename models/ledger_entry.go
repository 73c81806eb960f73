package models

import (
	"time"

	"github.com/google/uuid"
)

// LedgerKind represents the kind of balance-affecting event
type LedgerKind string

const (
	LedgerKindBet        LedgerKind = "bet"
	LedgerKindWin        LedgerKind = "win"
	LedgerKindLoss       LedgerKind = "loss"
	LedgerKindDeposit    LedgerKind = "deposit"
	LedgerKindWithdrawal LedgerKind = "withdrawal"
)

// LedgerStatus represents the processing state of a ledger entry
type LedgerStatus string

const (
	LedgerStatusPending   LedgerStatus = "pending"
	LedgerStatusCompleted LedgerStatus = "completed"
	LedgerStatusFailed    LedgerStatus = "failed"
)

// LedgerEntry is one row of the append-only money trail. Amounts are signed:
// debits (bet, withdrawal) are negative, credits (win, deposit) positive.
// A bet entry and its eventual win/loss entry are separate rows linked by
// SessionID; the ledger is only ever appended to.
//
// Invariant: summing the amounts of completed entries for a user reproduces
// that user's stored balance exactly.
type LedgerEntry struct {
	ID          int64        `db:"id"`
	UserID      int64        `db:"user_id"`
	SessionID   *uuid.UUID   `db:"session_id"`
	Kind        LedgerKind   `db:"kind"`
	Amount      int64        `db:"amount"`
	Status      LedgerStatus `db:"status"`
	ExternalRef *string      `db:"external_ref"`
	CreatedAt   time.Time    `db:"created_at"`
}
