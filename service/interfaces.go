package service

import (
	"context"

	"casino/events"
	"casino/models"

	"github.com/google/uuid"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByUserID retrieves an account, or nil if it does not exist
	GetByUserID(ctx context.Context, userID int64) (*models.Account, error)

	// Create creates a new account with the given balance
	Create(ctx context.Context, userID int64, balance int64) (*models.Account, error)

	// Credit adds to an account's balance atomically
	Credit(ctx context.Context, userID int64, amount int64) error

	// DebitIfSufficient deducts from an account's balance atomically.
	// It returns false, without mutating anything, when the balance is
	// smaller than the amount.
	DebitIfSufficient(ctx context.Context, userID int64, amount int64) (bool, error)
}

// SessionRepository defines the interface for wager session data access
type SessionRepository interface {
	// Create persists a freshly opened session
	Create(ctx context.Context, session *models.WagerSession) error

	// GetByID retrieves a session, or nil if it does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*models.WagerSession, error)

	// GetOpenByUserAndGame returns the open session for (user, game), or nil
	GetOpenByUserAndGame(ctx context.Context, userID int64, gameType models.GameType) (*models.WagerSession, error)

	// MarkResolved performs the compare-and-set transition from open to the
	// given terminal status. It returns false when the session was no longer
	// open, in which case nothing was written.
	MarkResolved(ctx context.Context, id uuid.UUID, status models.SessionStatus, multiplier *float64, payout int64) (bool, error)
}

// LedgerRepository defines the interface for the append-only ledger
type LedgerRepository interface {
	// Append writes a new ledger entry and fills in its ID and CreatedAt
	Append(ctx context.Context, entry *models.LedgerEntry) error

	// GetByExternalRef retrieves the entry for a payment-processor
	// reference, or nil if none exists
	GetByExternalRef(ctx context.Context, externalRef string) (*models.LedgerEntry, error)

	// CompleteByExternalRef performs the compare-and-set transition
	// pending -> completed keyed by external reference. It returns false
	// when no pending entry matched (already completed, or unknown ref).
	CompleteByExternalRef(ctx context.Context, externalRef string) (bool, error)

	// SumCompletedByUser sums the signed amounts of completed entries
	SumCompletedByUser(ctx context.Context, userID int64) (int64, error)

	// GetBySession returns all entries linked to a wager session
	GetBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.LedgerEntry, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	SessionRepository() SessionRepository
	LedgerRepository() LedgerRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// OutcomeKind distinguishes the engine-side resolution causes
type OutcomeKind string

const (
	OutcomeCrashed OutcomeKind = "crashed"
	OutcomeMineHit OutcomeKind = "mine_hit"
)

// Outcome describes an engine-determined loss
type Outcome struct {
	Kind         OutcomeKind
	AtMultiplier float64 // crash point; zero for mine hits
}

// Crashed builds the outcome for a round that crashed at the given point
func Crashed(atMultiplier float64) Outcome {
	return Outcome{Kind: OutcomeCrashed, AtMultiplier: atMultiplier}
}

// MineHit builds the outcome for a revealed mine
func MineHit() Outcome {
	return Outcome{Kind: OutcomeMineHit}
}

// SettlementResult reports a winning cash-out back to the caller
type SettlementResult struct {
	SessionID  uuid.UUID
	Multiplier float64
	Payout     int64
	NewBalance int64
}

// SettlementService is the wager settlement engine. Exactly one of
// ResolveByPlayer / ResolveByEngine succeeds per session; the status
// compare-and-set is the sole arbiter of the race.
type SettlementService interface {
	// PlaceBet debits the balance and opens a session atomically
	PlaceBet(ctx context.Context, userID int64, gameType models.GameType, amount int64) (*models.WagerSession, error)

	// ResolveByPlayer settles a cash-out at the claimed multiplier
	ResolveByPlayer(ctx context.Context, userID int64, sessionID uuid.UUID, claimedMultiplier float64) (*SettlementResult, error)

	// ResolveByEngine settles a crash or mine hit as a loss. A session
	// already resolved by the player is not an error condition.
	ResolveByEngine(ctx context.Context, sessionID uuid.UUID, outcome Outcome) error

	// GetSession retrieves a session owned by the caller
	GetSession(ctx context.Context, userID int64, sessionID uuid.UUID) (*models.WagerSession, error)
}

// DepositService handles the payment-collaborator flows and withdrawals
type DepositService interface {
	// ReserveDeposit opens a pending deposit ledger entry keyed by the
	// payment processor's reference, creating the account if needed
	ReserveDeposit(ctx context.Context, userID int64, amount int64, externalRef string) (*models.LedgerEntry, error)

	// ConfirmDeposit transitions pending -> completed and credits the
	// balance, exactly once per external reference no matter how often
	// the confirmation is replayed
	ConfirmDeposit(ctx context.Context, externalRef string) error

	// Withdraw debits the balance and records a completed withdrawal
	Withdraw(ctx context.Context, userID int64, amount int64) (*models.Account, error)

	// GetBalance returns the current account state
	GetBalance(ctx context.Context, userID int64) (*models.Account, error)
}

// ReconciliationService checks the ledger-vs-balance invariant
type ReconciliationService interface {
	// Verify returns ErrLedgerDrift when the sum of completed ledger
	// entries for the user diverges from the stored balance
	Verify(ctx context.Context, userID int64) error
}
