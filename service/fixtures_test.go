package service

import (
	"testing"
	"time"

	"giftboard/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const (
	testSenderID      = "user-sender"
	testRiderID       = "user-rider"
	testCompetitionID = "competition-1"
	testCompetitorID  = "competitor-1"
)

// serviceMocks wires one mocked unit of work that every transaction of a service shares
type serviceMocks struct {
	factory      *MockUnitOfWorkFactory
	uow          *MockUnitOfWork
	users        *MockUserRepository
	history      *MockBalanceHistoryRepository
	competitions *MockCompetitionRepository
	competitors  *MockCompetitorRepository
	gifts        *MockGiftRepository
	operations   *MockGiftOperationRepository
}

func newServiceMocks() *serviceMocks {
	m := &serviceMocks{
		factory:      new(MockUnitOfWorkFactory),
		uow:          new(MockUnitOfWork),
		users:        new(MockUserRepository),
		history:      new(MockBalanceHistoryRepository),
		competitions: new(MockCompetitionRepository),
		competitors:  new(MockCompetitorRepository),
		gifts:        new(MockGiftRepository),
		operations:   new(MockGiftOperationRepository),
	}
	m.uow.SetRepositories(m.users, m.history, m.competitions, m.competitors, m.gifts, m.operations)

	m.factory.On("Create").Return(m.uow)
	m.uow.On("Begin", mock.Anything).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)

	return m
}

func (m *serviceMocks) assertExpectations(t *testing.T) {
	m.users.AssertExpectations(t)
	m.history.AssertExpectations(t)
	m.competitions.AssertExpectations(t)
	m.competitors.AssertExpectations(t)
	m.gifts.AssertExpectations(t)
	m.operations.AssertExpectations(t)
}

func (m *serviceMocks) published() *MockEventPublisher {
	return m.uow.EventBus().(*MockEventPublisher)
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

// decEq matches a decimal argument by value, ignoring its exponent
func decEq(value string) any {
	expected := dec(value)
	return mock.MatchedBy(func(actual decimal.Decimal) bool {
		return actual.Equal(expected)
	})
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func testUser(id, balance string) *models.User {
	return &models.User{
		ID:      id,
		Name:    "name of " + id,
		Email:   id + "@example.test",
		Balance: dec(balance),
	}
}

func testCompetition(date time.Time) *models.Competition {
	return &models.Competition{
		ID:   testCompetitionID,
		Name: "Spring Derby",
		Date: date,
	}
}

func testCompetitor(gifts ...*models.GiftEntry) *models.Competitor {
	return &models.Competitor{
		ID:            testCompetitorID,
		CompetitionID: testCompetitionID,
		RiderID:       testRiderID,
		Name:          "Jane",
		HorseName:     "Bolt",
		ActiveHorse:   models.ActiveHorseMain,
		Gifts:         gifts,
	}
}

func testGift(giftType, cost string, count int, sender string) *models.GiftEntry {
	return &models.GiftEntry{
		Key:          giftType + "-" + sender,
		CompetitorID: testCompetitorID,
		Type:         giftType,
		Cost:         dec(cost),
		Count:        count,
		GiftedBy:     sender,
	}
}
