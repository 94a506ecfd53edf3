package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"giftboard/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// ledgerService implements the LedgerService interface
type ledgerService struct {
	uowFactory UnitOfWorkFactory
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory) LedgerService {
	return &ledgerService{uowFactory: uowFactory}
}

func (s *ledgerService) CreateUser(ctx context.Context, name, email string, initialBalance decimal.Decimal) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &ValidationError{Field: "email", Message: "must be a valid address"}
	}
	if initialBalance.IsNegative() || !initialBalance.Equal(initialBalance.Round(2)) {
		return nil, &ValidationError{Field: "initialBalance", Message: "must be a non-negative amount with at most two decimal places"}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user := &models.User{
		ID:      uuid.NewString(),
		Name:    name,
		Email:   email,
		Balance: initialBalance,
	}
	if err := uow.UserRepository().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	history := &models.BalanceHistory{
		UserID:          user.ID,
		BalanceBefore:   decimal.Zero,
		BalanceAfter:    initialBalance,
		ChangeAmount:    initialBalance,
		TransactionType: models.TransactionTypeInitial,
		TransactionMetadata: map[string]any{
			"name": name,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record initial balance: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

func (s *ledgerService) GetBalance(ctx context.Context, userID string) (*models.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ValidationError{Field: "userId", Message: "is required"}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, &NotFoundError{Resource: "user", ID: userID}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

func (s *ledgerService) Debit(ctx context.Context, userID string, amount decimal.Decimal, entry LedgerEntry) (*models.User, error) {
	return s.apply(ctx, userID, amount, entry, debitBalance)
}

func (s *ledgerService) Credit(ctx context.Context, userID string, amount decimal.Decimal, entry LedgerEntry) (*models.User, error) {
	return s.apply(ctx, userID, amount, entry, creditBalance)
}

type balanceMutation func(ctx context.Context, uow UnitOfWork, userID string, amount decimal.Decimal, entry LedgerEntry) (*models.User, error)

// apply runs a single debit or credit in its own transaction
func (s *ledgerService) apply(ctx context.Context, userID string, amount decimal.Decimal, entry LedgerEntry, mutate balanceMutation) (*models.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ValidationError{Field: "userId", Message: "is required"}
	}
	if err := validateAmount("amount", amount); err != nil {
		return nil, err
	}
	if entry.TransactionType == "" {
		return nil, &ValidationError{Field: "transactionType", Message: "is required"}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := mutate(ctx, uow, userID, amount, entry)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userId":          userID,
		"amount":          amount.StringFixed(2),
		"transactionType": entry.TransactionType,
		"newBalance":      user.Balance.StringFixed(2),
	}).Info("Balance updated")

	return user, nil
}

func (s *ledgerService) History(ctx context.Context, userID string, limit int) ([]*models.BalanceHistory, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ValidationError{Field: "userId", Message: "is required"}
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, &NotFoundError{Resource: "user", ID: userID}
	}

	history, err := uow.BalanceHistoryRepository().GetByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return history, nil
}
