package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrPartialFailure    = errors.New("partial failure")
	ErrInternal          = errors.New("internal error")
)

// ErrorKind classifies an error for callers outside the service layer
type ErrorKind string

const (
	KindInvalidArgument   ErrorKind = "invalid_argument"
	KindNotFound          ErrorKind = "not_found"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindForbidden         ErrorKind = "forbidden"
	KindConflict          ErrorKind = "conflict"
	KindPartialFailure    ErrorKind = "partial_failure"
	KindInternal          ErrorKind = "internal"
)

// KindOf maps err onto the error taxonomy. Unclassified errors are internal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPartialFailure):
		return KindPartialFailure
	case errors.Is(err, ErrInternal):
		return KindInternal
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	default:
		return KindInternal
	}
}

// ValidationError reports a malformed or missing request field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

// NotFoundError reports an unknown user, competitor or competition
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InsufficientFundsError is returned when a debit exceeds the balance
type InsufficientFundsError struct {
	UserID         string
	CurrentBalance decimal.Decimal
	RequiredAmount decimal.Decimal
	Shortfall      decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient balance: have %s, need %s (short %s)",
		e.CurrentBalance.StringFixed(2), e.RequiredAmount.StringFixed(2), e.Shortfall.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// ForbiddenReason tells apart the two ways an edit can be refused
type ForbiddenReason string

const (
	ForbiddenCompetitionStarted ForbiddenReason = "competition_started"
	ForbiddenNotOwner           ForbiddenReason = "not_owner"
)

// ForbiddenError reports an edit that is not allowed
type ForbiddenError struct {
	Reason  ForbiddenReason
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// ConflictError reports an idempotency key that is in use by another attempt or another request
type ConflictError struct {
	OperationID string
	Message     string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// PartialFailureError means the sender was charged, the gift could not be recorded
// and the charge was refunded.
type PartialFailureError struct {
	OperationID  string
	SenderID     string
	CompetitorID string
	Amount       decimal.Decimal
	Cause        error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("gift operation %s refunded %s to %s after failure: %v",
		e.OperationID, e.Amount.StringFixed(2), e.SenderID, e.Cause)
}

func (e *PartialFailureError) Unwrap() error { return ErrPartialFailure }

// ReconciliationError means a charge may have been applied and could not be refunded.
// It carries what an operator needs to settle the sender's balance by hand.
type ReconciliationError struct {
	OperationID     string
	SenderID        string
	CompetitorID    string
	Amount          decimal.Decimal
	ForwardErr      error
	CompensationErr error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("gift operation %s needs manual reconciliation (sender %s, competitor %s, amount %s): forward error: %v; compensation error: %v",
		e.OperationID, e.SenderID, e.CompetitorID, e.Amount.StringFixed(2), e.ForwardErr, e.CompensationErr)
}

func (e *ReconciliationError) Unwrap() error { return ErrInternal }
