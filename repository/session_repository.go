package repository

import (
	"context"
	"fmt"

	"casino/database"
	"casino/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SessionRepository implements the SessionRepository interface
type SessionRepository struct {
	q queryable
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{q: db.Pool}
}

// newSessionRepositoryWithTx creates a new session repository with a transaction
func newSessionRepositoryWithTx(tx queryable) *SessionRepository {
	return &SessionRepository{q: tx}
}

// Create persists a freshly opened session. The partial unique index on
// (user_id, game_type) WHERE status = 'open' rejects a second open session
// for the same game.
func (r *SessionRepository) Create(ctx context.Context, session *models.WagerSession) error {
	query := `
		INSERT INTO wager_sessions (id, user_id, game_type, bet_amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		session.ID,
		session.UserID,
		session.GameType,
		session.BetAmount,
		session.Status,
	).Scan(&session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create wager session for user %d: %w", session.UserID, err)
	}

	return nil
}

// GetByID retrieves a session, or nil if it does not exist
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WagerSession, error) {
	query := `
		SELECT id, user_id, game_type, bet_amount, status, outcome_multiplier, payout, created_at, resolved_at
		FROM wager_sessions
		WHERE id = $1
	`

	session, err := scanSession(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wager session %s: %w", id, err)
	}

	return session, nil
}

// GetOpenByUserAndGame returns the open session for (user, game), or nil
func (r *SessionRepository) GetOpenByUserAndGame(ctx context.Context, userID int64, gameType models.GameType) (*models.WagerSession, error) {
	query := `
		SELECT id, user_id, game_type, bet_amount, status, outcome_multiplier, payout, created_at, resolved_at
		FROM wager_sessions
		WHERE user_id = $1 AND game_type = $2 AND status = 'open'
	`

	session, err := scanSession(r.q.QueryRow(ctx, query, userID, gameType))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open session for user %d: %w", userID, err)
	}

	return session, nil
}

// MarkResolved performs the open -> terminal compare-and-set. The WHERE
// clause carries the status guard, so of two racing resolutions exactly one
// observes RowsAffected() == 1.
func (r *SessionRepository) MarkResolved(ctx context.Context, id uuid.UUID, status models.SessionStatus, multiplier *float64, payout int64) (bool, error) {
	query := `
		UPDATE wager_sessions
		SET status = $2, outcome_multiplier = $3, payout = $4, resolved_at = NOW()
		WHERE id = $1 AND status = 'open'
	`

	result, err := r.q.Exec(ctx, query, id, status, multiplier, payout)
	if err != nil {
		return false, fmt.Errorf("failed to resolve wager session %s: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}

func scanSession(row pgx.Row) (*models.WagerSession, error) {
	var session models.WagerSession
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.GameType,
		&session.BetAmount,
		&session.Status,
		&session.OutcomeMultiplier,
		&session.Payout,
		&session.CreatedAt,
		&session.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
