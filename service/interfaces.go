package service

import (
	"context"
	"time"

	"giftboard/events"
	"giftboard/models"

	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user data access.
// Balance changes go through DeductBalance and AddBalance only.
type UserRepository interface {
	// GetByID retrieves a user, returning nil when it does not exist
	GetByID(ctx context.Context, id string) (*models.User, error)

	// Create inserts a new user with its opening balance
	Create(ctx context.Context, user *models.User) error

	// DeductBalance subtracts amount only if the balance covers it.
	// It returns nil when the user is missing or the balance is too low.
	DeductBalance(ctx context.Context, id string, amount decimal.Decimal) (*models.User, error)

	// AddBalance adds amount to the balance, returning nil when the user is missing
	AddBalance(ctx context.Context, id string, amount decimal.Decimal) (*models.User, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByUser returns the most recent balance history for a user
	GetByUser(ctx context.Context, userID string, limit int) ([]*models.BalanceHistory, error)

	// GetByRelatedID returns every ledger movement tied to an operation
	GetByRelatedID(ctx context.Context, relatedID string) ([]*models.BalanceHistory, error)
}

// CompetitionRepository defines the interface for competition data access
type CompetitionRepository interface {
	GetByID(ctx context.Context, id string) (*models.Competition, error)
	Create(ctx context.Context, competition *models.Competition) error
}

// CompetitorRepository defines the interface for competitor data access
type CompetitorRepository interface {
	// GetByID retrieves a competitor with its gifts, returning nil when missing
	GetByID(ctx context.Context, id string) (*models.Competitor, error)

	// GetByIDForUpdate locks the competitor row for the rest of the transaction.
	// Gifts are not loaded.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Competitor, error)

	// GetByCompetition returns the competitors of a competition in creation order, gifts included
	GetByCompetition(ctx context.Context, competitionID string) ([]*models.Competitor, error)

	Create(ctx context.Context, competitor *models.Competitor) error

	// UpdateAppearance persists the cosmetic horse fields
	UpdateAppearance(ctx context.Context, competitor *models.Competitor) error
}

// GiftRepository defines the interface for the competitor gift collection
type GiftRepository interface {
	// Increment appends entry or, if the competitor already holds one for the same
	// type and sender, adds one to its count. The stored entry is returned.
	Increment(ctx context.Context, entry *models.GiftEntry) (*models.GiftEntry, error)

	// GetByCompetitor returns the competitor's gifts in insertion order
	GetByCompetitor(ctx context.Context, competitorID string) ([]*models.GiftEntry, error)
}

// GiftOperationRepository defines the interface for send-gift operation records
type GiftOperationRepository interface {
	// Create inserts the operation. It returns false when its idempotency key is already held.
	Create(ctx context.Context, op *models.GiftOperation) (bool, error)

	GetByID(ctx context.Context, id string) (*models.GiftOperation, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.GiftOperation, error)

	// UpdateStatus moves the operation to op.Status only if it is still in state from,
	// persisting new balance, entry key and failure reason. It reports whether the row moved.
	UpdateStatus(ctx context.Context, op *models.GiftOperation, from models.GiftOperationStatus) (bool, error)

	// ReleaseKey frees the idempotency key of a finished operation
	ReleaseKey(ctx context.Context, id string) error

	// ReleaseExpiredKeys frees the keys of finished operations created before cutoff.
	// Pending and debited operations keep their keys.
	ReleaseExpiredKeys(ctx context.Context, cutoff time.Time) (int64, error)

	// ListStale returns operations left in status since before cutoff, oldest first
	ListStale(ctx context.Context, status models.GiftOperationStatus, cutoff time.Time, limit int) ([]*models.GiftOperation, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork scopes repositories and events to one database transaction
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() UserRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	CompetitionRepository() CompetitionRepository
	CompetitorRepository() CompetitorRepository
	GiftRepository() GiftRepository
	GiftOperationRepository() GiftOperationRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// LedgerService owns user balances
type LedgerService interface {
	// CreateUser opens an account with an initial balance
	CreateUser(ctx context.Context, name, email string, initialBalance decimal.Decimal) (*models.User, error)

	// GetBalance returns the user with its current balance
	GetBalance(ctx context.Context, userID string) (*models.User, error)

	// Debit atomically subtracts amount, failing with InsufficientFundsError when the balance is short
	Debit(ctx context.Context, userID string, amount decimal.Decimal, entry LedgerEntry) (*models.User, error)

	// Credit atomically adds amount
	Credit(ctx context.Context, userID string, amount decimal.Decimal, entry LedgerEntry) (*models.User, error)

	// History returns the most recent ledger movements of a user
	History(ctx context.Context, userID string, limit int) ([]*models.BalanceHistory, error)
}

// GiftService records gifts and runs the charged send-gift flow
type GiftService interface {
	// RecordGift adds one unit of a gift to a competitor without charging anybody
	RecordGift(ctx context.Context, req RecordGiftRequest) (*RecordGiftResult, error)

	// SendGift charges the sender and records the gift, refunding the charge if recording fails
	SendGift(ctx context.Context, req SendGiftRequest) (*SendGiftResult, error)

	// ReleaseExpiredIdempotencyKeys frees keys older than the retention window
	ReleaseExpiredIdempotencyKeys(ctx context.Context) (int64, error)

	// RecoverStuckOperations settles operations abandoned mid-flight: charged ones are
	// refunded and uncharged ones are closed as failed. It returns how many were settled.
	RecoverStuckOperations(ctx context.Context) (int, error)
}

// LeaderboardService ranks competitors by received gift value
type LeaderboardService interface {
	ListRanked(ctx context.Context, competitionID string) ([]models.CompetitorView, error)
}

// CompetitorService edits competitor display data
type CompetitorService interface {
	UpdateCompetitor(ctx context.Context, req UpdateCompetitorRequest) (*models.Competitor, error)
}
