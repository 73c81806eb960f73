package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"casino/events"
	"casino/models"

	"github.com/google/uuid"
)

// memoryStore is an in-memory stand-in for the database used by scenario and
// race tests. Every unit of work holds the store mutex from Begin to
// Commit/Rollback, which gives the serializable behavior the real store
// provides through transactions and conditional updates.
type memoryStore struct {
	mu           sync.Mutex
	accounts     map[int64]*models.Account
	sessions     map[uuid.UUID]*models.WagerSession
	ledger       []*models.LedgerEntry
	nextLedgerID int64
	bus          *events.Bus // nil drops flushed events
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		accounts:     make(map[int64]*models.Account),
		sessions:     make(map[uuid.UUID]*models.WagerSession),
		nextLedgerID: 1,
	}
}

// seedAccount installs an account directly, bypassing the ledger
func (s *memoryStore) seedAccount(userID, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.accounts[userID] = &models.Account{UserID: userID, Balance: balance, CreatedAt: now, UpdatedAt: now}
}

func (s *memoryStore) balance(userID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[userID]; ok {
		return a.Balance
	}
	return 0
}

func (s *memoryStore) session(id uuid.UUID) *models.WagerSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		copied := *sess
		return &copied
	}
	return nil
}

func (s *memoryStore) ledgerSum(userID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, e := range s.ledger {
		if e.UserID == userID && e.Status == models.LedgerStatusCompleted {
			sum += e.Amount
		}
	}
	return sum
}

func (s *memoryStore) entriesBySession(sessionID uuid.UUID) []*models.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.LedgerEntry
	for _, e := range s.ledger {
		if e.SessionID != nil && *e.SessionID == sessionID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out
}

func (s *memoryStore) Create() UnitOfWork {
	return &memoryUow{store: s}
}

// memoryUow snapshots the store on Begin and writes the snapshot back on
// Commit. Rollback discards the snapshot, so a failed unit leaves no trace.
type memoryUow struct {
	store  *memoryStore
	active bool

	accounts     map[int64]*models.Account
	sessions     map[uuid.UUID]*models.WagerSession
	ledger       []*models.LedgerEntry
	nextLedgerID int64
	pending      []events.Event
}

func (u *memoryUow) Begin(ctx context.Context) error {
	if u.active {
		return fmt.Errorf("transaction already started")
	}
	u.store.mu.Lock()
	u.active = true

	u.accounts = make(map[int64]*models.Account, len(u.store.accounts))
	for k, v := range u.store.accounts {
		copied := *v
		u.accounts[k] = &copied
	}
	u.sessions = make(map[uuid.UUID]*models.WagerSession, len(u.store.sessions))
	for k, v := range u.store.sessions {
		copied := *v
		u.sessions[k] = &copied
	}
	u.ledger = make([]*models.LedgerEntry, len(u.store.ledger))
	for i, e := range u.store.ledger {
		copied := *e
		u.ledger[i] = &copied
	}
	u.nextLedgerID = u.store.nextLedgerID
	return nil
}

func (u *memoryUow) Commit() error {
	if !u.active {
		return fmt.Errorf("no transaction to commit")
	}
	u.store.accounts = u.accounts
	u.store.sessions = u.sessions
	u.store.ledger = u.ledger
	u.store.nextLedgerID = u.nextLedgerID
	bus := u.store.bus
	u.active = false
	u.store.mu.Unlock()

	if bus != nil {
		for _, e := range u.pending {
			bus.Emit(context.Background(), e)
		}
	}
	u.pending = nil
	return nil
}

func (u *memoryUow) Rollback() error {
	if !u.active {
		return nil
	}
	u.active = false
	u.pending = nil
	u.store.mu.Unlock()
	return nil
}

func (u *memoryUow) AccountRepository() AccountRepository { return memAccountRepo{u} }
func (u *memoryUow) SessionRepository() SessionRepository { return memSessionRepo{u} }
func (u *memoryUow) LedgerRepository() LedgerRepository   { return memLedgerRepo{u} }
func (u *memoryUow) EventBus() EventPublisher             { return memPublisher{u} }

type memPublisher struct{ u *memoryUow }

func (p memPublisher) Publish(e events.Event) {
	p.u.pending = append(p.u.pending, e)
}

type memAccountRepo struct{ u *memoryUow }

func (r memAccountRepo) GetByUserID(ctx context.Context, userID int64) (*models.Account, error) {
	if a, ok := r.u.accounts[userID]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, nil
}

func (r memAccountRepo) Create(ctx context.Context, userID int64, balance int64) (*models.Account, error) {
	if _, ok := r.u.accounts[userID]; ok {
		return nil, fmt.Errorf("account %d already exists", userID)
	}
	now := time.Now()
	account := &models.Account{UserID: userID, Balance: balance, CreatedAt: now, UpdatedAt: now}
	r.u.accounts[userID] = account
	copied := *account
	return &copied, nil
}

func (r memAccountRepo) Credit(ctx context.Context, userID int64, amount int64) error {
	a, ok := r.u.accounts[userID]
	if !ok {
		return fmt.Errorf("account %d not found", userID)
	}
	a.Balance += amount
	a.UpdatedAt = time.Now()
	return nil
}

func (r memAccountRepo) DebitIfSufficient(ctx context.Context, userID int64, amount int64) (bool, error) {
	a, ok := r.u.accounts[userID]
	if !ok || a.Balance < amount {
		return false, nil
	}
	a.Balance -= amount
	a.UpdatedAt = time.Now()
	return true, nil
}

type memSessionRepo struct{ u *memoryUow }

func (r memSessionRepo) Create(ctx context.Context, session *models.WagerSession) error {
	for _, existing := range r.u.sessions {
		if existing.UserID == session.UserID && existing.GameType == session.GameType && existing.Status == models.SessionStatusOpen {
			return fmt.Errorf("open session already exists for user %d game %s", session.UserID, session.GameType)
		}
	}
	session.CreatedAt = time.Now()
	copied := *session
	r.u.sessions[session.ID] = &copied
	return nil
}

func (r memSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.WagerSession, error) {
	if s, ok := r.u.sessions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

func (r memSessionRepo) GetOpenByUserAndGame(ctx context.Context, userID int64, gameType models.GameType) (*models.WagerSession, error) {
	for _, s := range r.u.sessions {
		if s.UserID == userID && s.GameType == gameType && s.Status == models.SessionStatusOpen {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (r memSessionRepo) MarkResolved(ctx context.Context, id uuid.UUID, status models.SessionStatus, multiplier *float64, payout int64) (bool, error) {
	s, ok := r.u.sessions[id]
	if !ok || s.Status != models.SessionStatusOpen {
		return false, nil
	}
	s.Status = status
	s.OutcomeMultiplier = multiplier
	s.Payout = &payout
	now := time.Now()
	s.ResolvedAt = &now
	return true, nil
}

type memLedgerRepo struct{ u *memoryUow }

func (r memLedgerRepo) Append(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ExternalRef != nil {
		for _, e := range r.u.ledger {
			if e.ExternalRef != nil && *e.ExternalRef == *entry.ExternalRef {
				return fmt.Errorf("external ref %s already exists", *entry.ExternalRef)
			}
		}
	}
	entry.ID = r.u.nextLedgerID
	r.u.nextLedgerID++
	entry.CreatedAt = time.Now()
	copied := *entry
	r.u.ledger = append(r.u.ledger, &copied)
	return nil
}

func (r memLedgerRepo) GetByExternalRef(ctx context.Context, externalRef string) (*models.LedgerEntry, error) {
	for _, e := range r.u.ledger {
		if e.ExternalRef != nil && *e.ExternalRef == externalRef {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (r memLedgerRepo) CompleteByExternalRef(ctx context.Context, externalRef string) (bool, error) {
	for _, e := range r.u.ledger {
		if e.ExternalRef != nil && *e.ExternalRef == externalRef && e.Status == models.LedgerStatusPending {
			e.Status = models.LedgerStatusCompleted
			return true, nil
		}
	}
	return false, nil
}

func (r memLedgerRepo) SumCompletedByUser(ctx context.Context, userID int64) (int64, error) {
	var sum int64
	for _, e := range r.u.ledger {
		if e.UserID == userID && e.Status == models.LedgerStatusCompleted {
			sum += e.Amount
		}
	}
	return sum, nil
}

func (r memLedgerRepo) GetBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.LedgerEntry, error) {
	var out []*models.LedgerEntry
	for _, e := range r.u.ledger {
		if e.SessionID != nil && *e.SessionID == sessionID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}
