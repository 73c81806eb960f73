package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"casino/events"
	"casino/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type settlementService struct {
	uowFactory UnitOfWorkFactory
}

// NewSettlementService creates a new settlement service
func NewSettlementService(uowFactory UnitOfWorkFactory) SettlementService {
	return &settlementService{
		uowFactory: uowFactory,
	}
}

// PlaceBet checks the balance, debits it, opens the session and appends the
// bet ledger entry in one atomic unit. If any precondition fails after the
// unit begins, the whole unit aborts and no partial state is visible.
func (s *settlementService) PlaceBet(ctx context.Context, userID int64, gameType models.GameType, amount int64) (*models.WagerSession, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeUnavailable("begin place bet", err)
	}
	defer uow.Rollback() // No-op if already committed

	account, err := uow.AccountRepository().GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	// One open session per (user, game); the partial unique index backs
	// this check against concurrent inserts.
	open, err := uow.SessionRepository().GetOpenByUserAndGame(ctx, userID, gameType)
	if err != nil {
		return nil, fmt.Errorf("failed to check open sessions: %w", err)
	}
	if open != nil {
		return nil, ErrSessionAlreadyActive
	}

	debited, err := uow.AccountRepository().DebitIfSufficient(ctx, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to debit bet amount: %w", err)
	}
	if !debited {
		return nil, ErrInsufficientFunds
	}

	session := &models.WagerSession{
		ID:        uuid.New(),
		UserID:    userID,
		GameType:  gameType,
		BetAmount: amount,
		Status:    models.SessionStatusOpen,
	}
	if err := uow.SessionRepository().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	entry := &models.LedgerEntry{
		UserID:    userID,
		SessionID: &session.ID,
		Kind:      models.LedgerKindBet,
		Amount:    -amount,
		Status:    models.LedgerStatusCompleted,
	}
	if err := uow.LedgerRepository().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append bet entry: %w", err)
	}

	uow.EventBus().Publish(events.BetPlacedEvent{
		SessionID: session.ID,
		UserID:    userID,
		GameType:  gameType,
		Amount:    amount,
	})
	uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID:       userID,
		OldBalance:   account.Balance,
		NewBalance:   account.Balance - amount,
		ChangeAmount: -amount,
		Kind:         models.LedgerKindBet,
	})

	if err := uow.Commit(); err != nil {
		return nil, storeUnavailable("commit place bet", err)
	}

	log.WithFields(log.Fields{
		"userId":    userID,
		"sessionId": session.ID,
		"gameType":  gameType,
		"amount":    amount,
	}).Info("Bet placed")

	return session, nil
}

// ResolveByPlayer settles a cash-out. The open -> won transition is a single
// compare-and-set on the session status; if the engine path got there first
// the call fails with ErrSessionAlreadyResolved and performs no mutation.
func (s *settlementService) ResolveByPlayer(ctx context.Context, userID int64, sessionID uuid.UUID, claimedMultiplier float64) (*SettlementResult, error) {
	if claimedMultiplier <= 0 {
		return nil, ErrInvalidMultiplier
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeUnavailable("begin cash out", err)
	}
	defer uow.Rollback()

	session, err := uow.SessionRepository().GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil || session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	if !session.IsOpen() {
		return nil, ErrSessionAlreadyResolved
	}

	// Payout is computed from the multiplier supplied at the winning call,
	// never recomputed later.
	payout := int64(math.Round(float64(session.BetAmount) * claimedMultiplier))

	won, err := uow.SessionRepository().MarkResolved(ctx, sessionID, models.SessionStatusWon, &claimedMultiplier, payout)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	if !won {
		// Lost the race against the engine path
		return nil, ErrSessionAlreadyResolved
	}

	account, err := uow.AccountRepository().GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	if err := uow.AccountRepository().Credit(ctx, userID, payout); err != nil {
		return nil, fmt.Errorf("failed to credit payout: %w", err)
	}

	entry := &models.LedgerEntry{
		UserID:    userID,
		SessionID: &sessionID,
		Kind:      models.LedgerKindWin,
		Amount:    payout,
		Status:    models.LedgerStatusCompleted,
	}
	if err := uow.LedgerRepository().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append win entry: %w", err)
	}

	uow.EventBus().Publish(events.SessionResolvedEvent{
		SessionID:  sessionID,
		UserID:     userID,
		GameType:   session.GameType,
		Status:     models.SessionStatusWon,
		Multiplier: claimedMultiplier,
		BetAmount:  session.BetAmount,
		Payout:     payout,
	})
	uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID:       userID,
		OldBalance:   account.Balance,
		NewBalance:   account.Balance + payout,
		ChangeAmount: payout,
		Kind:         models.LedgerKindWin,
	})

	if err := uow.Commit(); err != nil {
		return nil, storeUnavailable("commit cash out", err)
	}

	log.WithFields(log.Fields{
		"userId":     userID,
		"sessionId":  sessionID,
		"multiplier": claimedMultiplier,
		"payout":     payout,
	}).Info("Session cashed out")

	return &SettlementResult{
		SessionID:  sessionID,
		Multiplier: claimedMultiplier,
		Payout:     payout,
		NewBalance: account.Balance + payout,
	}, nil
}

// ResolveByEngine settles a crash or mine hit. The same compare-and-set
// discipline applies; observing a session the player already cashed out is
// the expected race outcome, logged and swallowed.
func (s *settlementService) ResolveByEngine(ctx context.Context, sessionID uuid.UUID, outcome Outcome) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return storeUnavailable("begin engine resolve", err)
	}
	defer uow.Rollback()

	session, err := uow.SessionRepository().GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return ErrSessionNotFound
	}

	var multiplier *float64
	if outcome.Kind == OutcomeCrashed {
		at := outcome.AtMultiplier
		multiplier = &at
	}

	lost, err := uow.SessionRepository().MarkResolved(ctx, sessionID, models.SessionStatusLost, multiplier, 0)
	if err != nil {
		return fmt.Errorf("failed to resolve session: %w", err)
	}
	if !lost {
		// Player cashed out first; nothing to settle
		log.WithFields(log.Fields{
			"sessionId": sessionID,
			"outcome":   outcome.Kind,
		}).Debug("Session already settled by player")
		return nil
	}

	// The stake already moved with the bet entry; the loss entry is the
	// terminal marker and carries no amount, keeping the ledger sum equal
	// to the balance.
	entry := &models.LedgerEntry{
		UserID:    session.UserID,
		SessionID: &sessionID,
		Kind:      models.LedgerKindLoss,
		Amount:    0,
		Status:    models.LedgerStatusCompleted,
	}
	if err := uow.LedgerRepository().Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append loss entry: %w", err)
	}

	uow.EventBus().Publish(events.SessionResolvedEvent{
		SessionID:  sessionID,
		UserID:     session.UserID,
		GameType:   session.GameType,
		Status:     models.SessionStatusLost,
		Multiplier: outcome.AtMultiplier,
		BetAmount:  session.BetAmount,
		Payout:     0,
	})

	if err := uow.Commit(); err != nil {
		return storeUnavailable("commit engine resolve", err)
	}

	log.WithFields(log.Fields{
		"userId":    session.UserID,
		"sessionId": sessionID,
		"outcome":   outcome.Kind,
		"betAmount": session.BetAmount,
	}).Info("Session settled by engine")

	return nil
}

// GetSession retrieves a session owned by the caller
func (s *settlementService) GetSession(ctx context.Context, userID int64, sessionID uuid.UUID) (*models.WagerSession, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeUnavailable("begin get session", err)
	}
	defer uow.Rollback()

	session, err := uow.SessionRepository().GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil || session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// withRetry runs an idempotent operation a bounded number of times,
// backing off briefly between attempts. Only retryable failures are retried.
func withRetry(ctx context.Context, attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(i+1) * 50 * time.Millisecond):
		}
	}
	return err
}
