package repository

import (
	"context"
	"fmt"

	"casino/database"
	"casino/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepository implements the LedgerRepository interface
type LedgerRepository struct {
	q queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

// newLedgerRepositoryWithTx creates a new ledger repository with a transaction
func newLedgerRepositoryWithTx(tx queryable) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// Append writes a new ledger entry and fills in its ID and CreatedAt
func (r *LedgerRepository) Append(ctx context.Context, entry *models.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (user_id, session_id, kind, amount, status, external_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.UserID,
		entry.SessionID,
		entry.Kind,
		entry.Amount,
		entry.Status,
		entry.ExternalRef,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry for user %d: %w", entry.UserID, err)
	}

	return nil
}

// GetByExternalRef retrieves the entry for a payment-processor reference,
// or nil if none exists
func (r *LedgerRepository) GetByExternalRef(ctx context.Context, externalRef string) (*models.LedgerEntry, error) {
	query := `
		SELECT id, user_id, session_id, kind, amount, status, external_ref, created_at
		FROM ledger_entries
		WHERE external_ref = $1
	`

	entry, err := scanLedgerEntry(r.q.QueryRow(ctx, query, externalRef))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry for ref %s: %w", externalRef, err)
	}

	return entry, nil
}

// CompleteByExternalRef performs the pending -> completed compare-and-set.
// A replayed confirmation finds no pending row and returns false.
func (r *LedgerRepository) CompleteByExternalRef(ctx context.Context, externalRef string) (bool, error) {
	query := `
		UPDATE ledger_entries
		SET status = 'completed'
		WHERE external_ref = $1 AND status = 'pending'
	`

	result, err := r.q.Exec(ctx, query, externalRef)
	if err != nil {
		return false, fmt.Errorf("failed to complete ledger entry for ref %s: %w", externalRef, err)
	}

	return result.RowsAffected() > 0, nil
}

// SumCompletedByUser sums the signed amounts of completed entries
func (r *LedgerRepository) SumCompletedByUser(ctx context.Context, userID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE user_id = $1 AND status = 'completed'
	`

	var sum int64
	err := r.q.QueryRow(ctx, query, userID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum ledger entries for user %d: %w", userID, err)
	}

	return sum, nil
}

// GetBySession returns all entries linked to a wager session, oldest first
func (r *LedgerRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.LedgerEntry, error) {
	query := `
		SELECT id, user_id, session_id, kind, amount, status, external_ref, created_at
		FROM ledger_entries
		WHERE session_id = $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, nil
}

func scanLedgerEntry(row pgx.Row) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.SessionID,
		&entry.Kind,
		&entry.Amount,
		&entry.Status,
		&entry.ExternalRef,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
