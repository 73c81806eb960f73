package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

type reconciliationService struct {
	uowFactory UnitOfWorkFactory
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(uowFactory UnitOfWorkFactory) ReconciliationService {
	return &reconciliationService{uowFactory: uowFactory}
}

// Verify checks that the sum of completed ledger entries reproduces the
// stored balance. A mismatch is an integrity alarm for out-of-band
// reconciliation, never auto-corrected.
func (s *reconciliationService) Verify(ctx context.Context, userID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return storeUnavailable("begin reconciliation", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return ErrAccountNotFound
	}

	sum, err := uow.LedgerRepository().SumCompletedByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to sum ledger: %w", err)
	}

	if sum != account.Balance {
		log.WithFields(log.Fields{
			"userId":    userID,
			"balance":   account.Balance,
			"ledgerSum": sum,
			"integrity": "ledger_drift",
		}).Error("Ledger sum does not match stored balance")
		return fmt.Errorf("user %d: balance %d, ledger sum %d: %w", userID, account.Balance, sum, ErrLedgerDrift)
	}

	return nil
}
