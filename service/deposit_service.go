package service

import (
	"context"
	"fmt"

	"casino/events"
	"casino/models"

	log "github.com/sirupsen/logrus"
)

const confirmAttempts = 3

type depositService struct {
	uowFactory      UnitOfWorkFactory
	startingBalance int64
	minWithdrawal   int64
}

// NewDepositService creates a new deposit service
func NewDepositService(uowFactory UnitOfWorkFactory, startingBalance, minWithdrawal int64) DepositService {
	return &depositService{
		uowFactory:      uowFactory,
		startingBalance: startingBalance,
		minWithdrawal:   minWithdrawal,
	}
}

// ReserveDeposit opens a pending deposit entry after the payment processor
// reserved the checkout. The balance is not touched until confirmation.
func (s *depositService) ReserveDeposit(ctx context.Context, userID int64, amount int64, externalRef string) (*models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if externalRef == "" {
		return nil, fmt.Errorf("external reference is required")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeUnavailable("begin reserve deposit", err)
	}
	defer uow.Rollback()

	if err := s.getOrCreateAccount(ctx, uow, userID); err != nil {
		return nil, err
	}

	entry := &models.LedgerEntry{
		UserID:      userID,
		Kind:        models.LedgerKindDeposit,
		Amount:      amount,
		Status:      models.LedgerStatusPending,
		ExternalRef: &externalRef,
	}
	if err := uow.LedgerRepository().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append pending deposit: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, storeUnavailable("commit reserve deposit", err)
	}

	log.WithFields(log.Fields{
		"userId":      userID,
		"amount":      amount,
		"externalRef": externalRef,
	}).Info("Deposit reserved")

	return entry, nil
}

// ConfirmDeposit processes a payment confirmation. Delivery is at-least-once,
// so the pending -> completed transition is a compare-and-set keyed by the
// external reference: a replay finds no pending entry and credits nothing.
func (s *depositService) ConfirmDeposit(ctx context.Context, externalRef string) error {
	return withRetry(ctx, confirmAttempts, func() error {
		return s.confirmOnce(ctx, externalRef)
	})
}

func (s *depositService) confirmOnce(ctx context.Context, externalRef string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return storeUnavailable("begin confirm deposit", err)
	}
	defer uow.Rollback()

	entry, err := uow.LedgerRepository().GetByExternalRef(ctx, externalRef)
	if err != nil {
		return fmt.Errorf("failed to look up deposit: %w", err)
	}
	if entry == nil {
		return ErrDepositNotFound
	}

	completed, err := uow.LedgerRepository().CompleteByExternalRef(ctx, externalRef)
	if err != nil {
		return fmt.Errorf("failed to complete deposit: %w", err)
	}
	if !completed {
		// Already confirmed; replayed webhooks land here
		log.WithFields(log.Fields{
			"externalRef": externalRef,
			"status":      entry.Status,
		}).Info("Deposit confirmation replayed, no-op")
		return nil
	}

	account, err := uow.AccountRepository().GetByUserID(ctx, entry.UserID)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return ErrAccountNotFound
	}

	if err := uow.AccountRepository().Credit(ctx, entry.UserID, entry.Amount); err != nil {
		return fmt.Errorf("failed to credit deposit: %w", err)
	}

	uow.EventBus().Publish(events.DepositCompletedEvent{
		UserID:      entry.UserID,
		Amount:      entry.Amount,
		ExternalRef: externalRef,
	})
	uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID:       entry.UserID,
		OldBalance:   account.Balance,
		NewBalance:   account.Balance + entry.Amount,
		ChangeAmount: entry.Amount,
		Kind:         models.LedgerKindDeposit,
	})

	if err := uow.Commit(); err != nil {
		return storeUnavailable("commit confirm deposit", err)
	}

	log.WithFields(log.Fields{
		"userId":      entry.UserID,
		"amount":      entry.Amount,
		"externalRef": externalRef,
	}).Info("Deposit confirmed")

	return nil
}

// Withdraw debits the balance and records a completed withdrawal entry
func (s *depositService) Withdraw(ctx context.Context, userID int64, amount int64) (*models.Account, error) {
	if amount < s.minWithdrawal {
		return nil, ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeUnavailable("begin withdraw", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	debited, err := uow.AccountRepository().DebitIfSufficient(ctx, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to debit withdrawal: %w", err)
	}
	if !debited {
		return nil, ErrInsufficientFunds
	}

	entry := &models.LedgerEntry{
		UserID: userID,
		Kind:   models.LedgerKindWithdrawal,
		Amount: -amount,
		Status: models.LedgerStatusCompleted,
	}
	if err := uow.LedgerRepository().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append withdrawal entry: %w", err)
	}

	uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID:       userID,
		OldBalance:   account.Balance,
		NewBalance:   account.Balance - amount,
		ChangeAmount: -amount,
		Kind:         models.LedgerKindWithdrawal,
	})

	if err := uow.Commit(); err != nil {
		return nil, storeUnavailable("commit withdraw", err)
	}

	account.Balance -= amount
	return account, nil
}

// GetBalance returns the current account state
func (s *depositService) GetBalance(ctx context.Context, userID int64) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeUnavailable("begin get balance", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// getOrCreateAccount creates the account on first contact. A signup grant,
// when configured, flows through the ledger so reconciliation holds.
func (s *depositService) getOrCreateAccount(ctx context.Context, uow UnitOfWork, userID int64) error {
	account, err := uow.AccountRepository().GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	if account != nil {
		return nil
	}

	if _, err := uow.AccountRepository().Create(ctx, userID, s.startingBalance); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	if s.startingBalance > 0 {
		grant := &models.LedgerEntry{
			UserID: userID,
			Kind:   models.LedgerKindDeposit,
			Amount: s.startingBalance,
			Status: models.LedgerStatusCompleted,
		}
		if err := uow.LedgerRepository().Append(ctx, grant); err != nil {
			return fmt.Errorf("failed to append signup grant: %w", err)
		}
	}
	return nil
}
