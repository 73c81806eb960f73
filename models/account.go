package models

import (
	"time"
)

// Account represents a player account with a balance.
// Balances are stored in cents; the database enforces non-negativity and
// every mutation goes through a settlement transaction together with its
// ledger entry.
type Account struct {
	UserID    int64     `db:"user_id"`
	Balance   int64     `db:"balance"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
