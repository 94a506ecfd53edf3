package service

import (
	"context"
	"sync"
	"time"

	"giftboard/events"
	"giftboard/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) DeductBalance(ctx context.Context, id string, amount decimal.Decimal) (*models.User, error) {
	args := m.Called(ctx, id, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) AddBalance(ctx context.Context, id string, amount decimal.Decimal) (*models.User, error) {
	args := m.Called(ctx, id, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

func (m *MockBalanceHistoryRepository) GetByRelatedID(ctx context.Context, relatedID string) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, relatedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

// MockCompetitionRepository is a mock implementation of CompetitionRepository
type MockCompetitionRepository struct {
	mock.Mock
}

func (m *MockCompetitionRepository) GetByID(ctx context.Context, id string) (*models.Competition, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Competition), args.Error(1)
}

func (m *MockCompetitionRepository) Create(ctx context.Context, competition *models.Competition) error {
	args := m.Called(ctx, competition)
	return args.Error(0)
}

// MockCompetitorRepository is a mock implementation of CompetitorRepository
type MockCompetitorRepository struct {
	mock.Mock
}

func (m *MockCompetitorRepository) GetByID(ctx context.Context, id string) (*models.Competitor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Competitor), args.Error(1)
}

func (m *MockCompetitorRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Competitor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Competitor), args.Error(1)
}

func (m *MockCompetitorRepository) GetByCompetition(ctx context.Context, competitionID string) ([]*models.Competitor, error) {
	args := m.Called(ctx, competitionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Competitor), args.Error(1)
}

func (m *MockCompetitorRepository) Create(ctx context.Context, competitor *models.Competitor) error {
	args := m.Called(ctx, competitor)
	return args.Error(0)
}

func (m *MockCompetitorRepository) UpdateAppearance(ctx context.Context, competitor *models.Competitor) error {
	args := m.Called(ctx, competitor)
	return args.Error(0)
}

// MockGiftRepository is a mock implementation of GiftRepository
type MockGiftRepository struct {
	mock.Mock
}

func (m *MockGiftRepository) Increment(ctx context.Context, entry *models.GiftEntry) (*models.GiftEntry, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GiftEntry), args.Error(1)
}

func (m *MockGiftRepository) GetByCompetitor(ctx context.Context, competitorID string) ([]*models.GiftEntry, error) {
	args := m.Called(ctx, competitorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GiftEntry), args.Error(1)
}

// MockGiftOperationRepository is a mock implementation of GiftOperationRepository
type MockGiftOperationRepository struct {
	mock.Mock
}

func (m *MockGiftOperationRepository) Create(ctx context.Context, op *models.GiftOperation) (bool, error) {
	args := m.Called(ctx, op)
	return args.Bool(0), args.Error(1)
}

func (m *MockGiftOperationRepository) GetByID(ctx context.Context, id string) (*models.GiftOperation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GiftOperation), args.Error(1)
}

func (m *MockGiftOperationRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.GiftOperation, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GiftOperation), args.Error(1)
}

// UpdateStatus records the target status at call time, since callers reuse the same operation value
func (m *MockGiftOperationRepository) UpdateStatus(ctx context.Context, op *models.GiftOperation, from models.GiftOperationStatus) (bool, error) {
	args := m.Called(ctx, op.Status, from)
	return args.Bool(0), args.Error(1)
}

func (m *MockGiftOperationRepository) ReleaseKey(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGiftOperationRepository) ReleaseExpiredKeys(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGiftOperationRepository) ListStale(ctx context.Context, status models.GiftOperationStatus, cutoff time.Time, limit int) ([]*models.GiftOperation, error) {
	args := m.Called(ctx, status, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GiftOperation), args.Error(1)
}

// MockEventPublisher records published events for later assertions
type MockEventPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Published returns the events of the given type in publish order
func (m *MockEventPublisher) Published(eventType events.EventType) []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []events.Event
	for _, event := range m.events {
		if event.Type() == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// injected with SetRepositories and shared by every transaction it begins.
type MockUnitOfWork struct {
	mock.Mock
	userRepo           UserRepository
	balanceHistoryRepo BalanceHistoryRepository
	competitionRepo    CompetitionRepository
	competitorRepo     CompetitorRepository
	giftRepo           GiftRepository
	giftOperationRepo  GiftOperationRepository
	Events             *MockEventPublisher
}

// SetRepositories wires the repositories handed out by the unit of work
func (m *MockUnitOfWork) SetRepositories(users UserRepository, history BalanceHistoryRepository, competitions CompetitionRepository, competitors CompetitorRepository, gifts GiftRepository, operations GiftOperationRepository) {
	m.userRepo = users
	m.balanceHistoryRepo = history
	m.competitionRepo = competitions
	m.competitorRepo = competitors
	m.giftRepo = gifts
	m.giftOperationRepo = operations
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository { return m.userRepo }
func (m *MockUnitOfWork) BalanceHistoryRepository() BalanceHistoryRepository {
	return m.balanceHistoryRepo
}
func (m *MockUnitOfWork) CompetitionRepository() CompetitionRepository { return m.competitionRepo }
func (m *MockUnitOfWork) CompetitorRepository() CompetitorRepository   { return m.competitorRepo }
func (m *MockUnitOfWork) GiftRepository() GiftRepository               { return m.giftRepo }
func (m *MockUnitOfWork) GiftOperationRepository() GiftOperationRepository {
	return m.giftOperationRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.Events == nil {
		m.Events = &MockEventPublisher{}
	}
	return m.Events
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
