package service

import (
	"errors"
	"fmt"
)

// DomainError is a settlement-surface error carrying the language-neutral
// code exposed to API callers. Compare with errors.Is against the sentinel
// values below; never match on message text.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

var (
	// Validation errors, rejected before any store mutation
	ErrInvalidAmount     = &DomainError{Code: "INVALID_AMOUNT", Message: "amount must be positive"}
	ErrInvalidMultiplier = &DomainError{Code: "INVALID_MULTIPLIER", Message: "multiplier must be positive"}
	ErrInvalidTileIndex  = &DomainError{Code: "INVALID_TILE_INDEX", Message: "tile index is out of board bounds"}

	// Lookup errors
	ErrAccountNotFound = &DomainError{Code: "ACCOUNT_NOT_FOUND", Message: "account not found"}
	ErrSessionNotFound = &DomainError{Code: "SESSION_NOT_FOUND", Message: "no such wager session"}
	ErrDepositNotFound = &DomainError{Code: "DEPOSIT_NOT_FOUND", Message: "no pending deposit for external reference"}

	// State-conflict errors, expected under normal concurrent operation
	ErrInsufficientFunds        = &DomainError{Code: "INSUFFICIENT_FUNDS", Message: "insufficient balance"}
	ErrSessionAlreadyActive     = &DomainError{Code: "SESSION_ALREADY_ACTIVE", Message: "an open session already exists for this game"}
	ErrSessionAlreadyResolved   = &DomainError{Code: "SESSION_ALREADY_RESOLVED", Message: "session has already been resolved"}
	ErrTileAlreadyRevealed      = &DomainError{Code: "TILE_ALREADY_REVEALED", Message: "tile has already been revealed"}
	ErrNothingRevealed          = &DomainError{Code: "NOTHING_REVEALED", Message: "no tile has been revealed yet"}
	ErrMultiplierExceedsCurrent = &DomainError{Code: "MULTIPLIER_EXCEEDS_CURRENT", Message: "claimed multiplier exceeds the current round multiplier"}
	ErrBettingClosed            = &DomainError{Code: "BETTING_CLOSED", Message: "round is not accepting bets"}
	ErrRoundNotRunning          = &DomainError{Code: "ROUND_NOT_RUNNING", Message: "round is not running"}

	// Store failures, retryable by the caller
	ErrStoreUnavailable = &DomainError{Code: "STORE_UNAVAILABLE", Message: "store unavailable, retry"}

	// Integrity alarm, never auto-corrected
	ErrLedgerDrift = &DomainError{Code: "LEDGER_DRIFT", Message: "ledger sum does not match stored balance"}
)

// ErrorCode extracts the API code from an error chain
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL"
}

// IsRetryable reports whether the operation may be retried safely
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// storeUnavailable wraps a low-level store failure so callers see a
// retryable error without losing the cause.
func storeUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
