package models

import (
	"time"

	"github.com/google/uuid"
)

// GameType identifies which game a wager session belongs to
type GameType string

const (
	GameTypeMultiplier GameType = "multiplier"
	GameTypeTiles      GameType = "tiles"
)

// SessionStatus represents the state of a wager session
type SessionStatus string

const (
	SessionStatusOpen SessionStatus = "open"
	SessionStatusWon  SessionStatus = "won"
	SessionStatusLost SessionStatus = "lost"
)

// WagerSession represents a single wager from bet placement to resolution.
// The status field transitions exactly once, open -> won or open -> lost,
// and the row is never deleted.
type WagerSession struct {
	ID                uuid.UUID     `db:"id"`
	UserID            int64         `db:"user_id"`
	GameType          GameType      `db:"game_type"`
	BetAmount         int64         `db:"bet_amount"`
	Status            SessionStatus `db:"status"`
	OutcomeMultiplier *float64      `db:"outcome_multiplier"`
	Payout            *int64        `db:"payout"`
	CreatedAt         time.Time     `db:"created_at"`
	ResolvedAt        *time.Time    `db:"resolved_at"`
}

// IsOpen reports whether the session can still be resolved
func (s *WagerSession) IsOpen() bool {
	return s.Status == SessionStatusOpen
}

// IsResolved reports whether the session reached a terminal status
func (s *WagerSession) IsResolved() bool {
	return s.Status == SessionStatusWon || s.Status == SessionStatusLost
}
