package service

import (
	"context"
	"fmt"

	"giftboard/events"
	"giftboard/models"

	"github.com/shopspring/decimal"
)

// LedgerEntry describes why a balance moves. RelatedID links the movement to the operation that caused it.
type LedgerEntry struct {
	TransactionType models.TransactionType
	RelatedID       string
	Metadata        map[string]any
}

// validateAmount accepts positive amounts with at most two decimal places
func validateAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &ValidationError{Field: field, Message: "must be greater than zero"}
	}
	if !amount.Equal(amount.Round(2)) {
		return &ValidationError{Field: field, Message: "must have at most two decimal places"}
	}
	return nil
}

// debitAttempts bounds how often a debit is retried when a concurrent credit
// lands between the conditional decrement and the balance re-read
const debitAttempts = 3

// debitBalance subtracts amount from the user's balance inside uow.
// The conditional decrement is a single statement, so concurrent debits of the
// same user serialize on the row and can never take the balance below zero.
// InsufficientFundsError is only returned when the re-read balance is below amount.
func debitBalance(ctx context.Context, uow UnitOfWork, userID string, amount decimal.Decimal, entry LedgerEntry) (*models.User, error) {
	users := uow.UserRepository()

	var user *models.User
	for attempt := 1; ; attempt++ {
		var err error
		user, err = users.DeductBalance(ctx, userID, amount)
		if err != nil {
			return nil, fmt.Errorf("failed to deduct balance: %w", err)
		}
		if user != nil {
			break
		}

		current, err := users.GetByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		if current == nil {
			return nil, &NotFoundError{Resource: "user", ID: userID}
		}
		if current.Balance.LessThan(amount) {
			return nil, &InsufficientFundsError{
				UserID:         userID,
				CurrentBalance: current.Balance,
				RequiredAmount: amount,
				Shortfall:      amount.Sub(current.Balance),
			}
		}
		if attempt == debitAttempts {
			return nil, fmt.Errorf("balance of user %s kept changing during debit after %d attempts", userID, attempt)
		}
	}

	history := &models.BalanceHistory{
		UserID:              userID,
		BalanceBefore:       user.Balance.Add(amount),
		BalanceAfter:        user.Balance,
		ChangeAmount:        amount.Neg(),
		TransactionType:     entry.TransactionType,
		TransactionMetadata: entry.Metadata,
		RelatedID:           relatedID(entry),
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, err
	}

	return user, nil
}

// creditBalance adds amount to the user's balance inside uow
func creditBalance(ctx context.Context, uow UnitOfWork, userID string, amount decimal.Decimal, entry LedgerEntry) (*models.User, error) {
	user, err := uow.UserRepository().AddBalance(ctx, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to add balance: %w", err)
	}
	if user == nil {
		return nil, &NotFoundError{Resource: "user", ID: userID}
	}

	history := &models.BalanceHistory{
		UserID:              userID,
		BalanceBefore:       user.Balance.Sub(amount),
		BalanceAfter:        user.Balance,
		ChangeAmount:        amount,
		TransactionType:     entry.TransactionType,
		TransactionMetadata: entry.Metadata,
		RelatedID:           relatedID(entry),
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, err
	}

	return user, nil
}

// RecordBalanceChange records a balance history entry and emits the matching events.
// Every balance change in the system ends here.
func RecordBalanceChange(ctx context.Context, uow UnitOfWork, history *models.BalanceHistory) error {
	if history.TransactionMetadata == nil {
		history.TransactionMetadata = map[string]any{}
	}

	if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	event := events.BalanceChangeEvent{
		UserID:          history.UserID,
		OldBalance:      history.BalanceBefore,
		NewBalance:      history.BalanceAfter,
		ChangeAmount:    history.ChangeAmount,
		TransactionType: history.TransactionType,
	}
	if history.RelatedID != nil {
		event.RelatedID = *history.RelatedID
	}
	uow.EventBus().Publish(event)

	if history.TransactionType == models.TransactionTypeInitial {
		name, _ := history.TransactionMetadata["name"].(string)
		uow.EventBus().Publish(events.UserCreatedEvent{
			UserID:         history.UserID,
			Name:           name,
			InitialBalance: history.BalanceAfter,
		})
	}

	return nil
}

func relatedID(entry LedgerEntry) *string {
	if entry.RelatedID == "" {
		return nil
	}
	id := entry.RelatedID
	return &id
}
