package api

import (
	"context"

	"giftboard/models"
	"giftboard/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockLedgerService struct {
	mock.Mock
}

func (m *mockLedgerService) CreateUser(ctx context.Context, name, email string, initialBalance decimal.Decimal) (*models.User, error) {
	args := m.Called(ctx, name, email, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockLedgerService) GetBalance(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockLedgerService) Debit(ctx context.Context, userID string, amount decimal.Decimal, entry service.LedgerEntry) (*models.User, error) {
	args := m.Called(ctx, userID, amount, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockLedgerService) Credit(ctx context.Context, userID string, amount decimal.Decimal, entry service.LedgerEntry) (*models.User, error) {
	args := m.Called(ctx, userID, amount, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockLedgerService) History(ctx context.Context, userID string, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

type mockGiftService struct {
	mock.Mock
}

func (m *mockGiftService) RecordGift(ctx context.Context, req service.RecordGiftRequest) (*service.RecordGiftResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RecordGiftResult), args.Error(1)
}

func (m *mockGiftService) SendGift(ctx context.Context, req service.SendGiftRequest) (*service.SendGiftResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SendGiftResult), args.Error(1)
}

func (m *mockGiftService) ReleaseExpiredIdempotencyKeys(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockGiftService) RecoverStuckOperations(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockLeaderboardService struct {
	mock.Mock
}

func (m *mockLeaderboardService) ListRanked(ctx context.Context, competitionID string) ([]models.CompetitorView, error) {
	args := m.Called(ctx, competitionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CompetitorView), args.Error(1)
}

type mockCompetitorService struct {
	mock.Mock
}

func (m *mockCompetitorService) UpdateCompetitor(ctx context.Context, req service.UpdateCompetitorRequest) (*models.Competitor, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Competitor), args.Error(1)
}

type stubHealth struct {
	err error
}

func (s stubHealth) Ping(context.Context) error { return s.err }
