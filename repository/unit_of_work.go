package repository

import (
	"context"
	"fmt"

	"casino/database"
	"casino/events"
	"casino/service"

	"github.com/jackc/pgx/v5"
)

// UnitOfWork implements the service.UnitOfWork interface, binding a set of
// repositories and a transactional event bus to a single pgx transaction.
type UnitOfWork struct {
	db       *database.DB
	tx       pgx.Tx
	eventBus *events.TransactionalBus

	accountRepo *AccountRepository
	sessionRepo *SessionRepository
	ledgerRepo  *LedgerRepository
}

// UnitOfWorkFactory creates UnitOfWork instances
type UnitOfWorkFactory struct {
	db  *database.DB
	bus *events.Bus
}

// NewUnitOfWorkFactory creates a new unit of work factory
func NewUnitOfWorkFactory(db *database.DB, bus *events.Bus) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{db: db, bus: bus}
}

// Create returns a new unit of work; Begin must be called before use
func (f *UnitOfWorkFactory) Create() service.UnitOfWork {
	return &UnitOfWork{
		db:       f.db,
		eventBus: events.NewTransactionalBus(f.bus),
	}
}

// Begin starts a new transaction and binds the repositories to it
func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.accountRepo = newAccountRepositoryWithTx(tx)
	u.sessionRepo = newSessionRepositoryWithTx(tx)
	u.ledgerRepo = newLedgerRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction, then flushes the stashed events. Events
// never fire for state that did not reach the database.
func (u *UnitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	ctx := context.Background()
	if err := u.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	u.tx = nil

	u.eventBus.Flush(ctx)

	return nil
}

// Rollback rolls back the transaction and discards stashed events. Safe to
// call after Commit, so callers can defer it unconditionally.
func (u *UnitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(context.Background())
	u.tx = nil
	u.eventBus.Discard()

	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// AccountRepository returns the transaction-scoped account repository
func (u *UnitOfWork) AccountRepository() service.AccountRepository {
	return u.accountRepo
}

// SessionRepository returns the transaction-scoped session repository
func (u *UnitOfWork) SessionRepository() service.SessionRepository {
	return u.sessionRepo
}

// LedgerRepository returns the transaction-scoped ledger repository
func (u *UnitOfWork) LedgerRepository() service.LedgerRepository {
	return u.ledgerRepo
}

// EventBus returns the transactional event bus tied to this unit of work
func (u *UnitOfWork) EventBus() service.EventPublisher {
	return u.eventBus
}
