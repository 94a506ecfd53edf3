package service

import (
	"context"
	"errors"
	"testing"

	"giftboard/events"
	"giftboard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_CreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("opens account with initial history", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewLedgerService(m.factory)

		m.users.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Name == "Alice" && u.Email == "alice@example.test" && u.ID != ""
		})).Return(nil)
		m.history.On("Record", mock.Anything, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.TransactionType == models.TransactionTypeInitial && h.ChangeAmount.Equal(dec("100"))
		})).Return(nil)

		user, err := svc.CreateUser(ctx, " Alice ", "alice@example.test", dec("100"))
		require.NoError(t, err)
		assertDecimal(t, "100", user.Balance)

		require.Len(t, m.published().Published(events.EventTypeUserCreated), 1)
		require.Len(t, m.published().Published(events.EventTypeBalanceChange), 1)
		m.assertExpectations(t)
	})

	t.Run("rejects bad input before touching the store", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewLedgerService(m.factory)

		tests := []struct {
			name    string
			email   string
			balance string
			field   string
		}{
			{"", "a@example.test", "1", "name"},
			{"Bob", "not-an-email", "1", "email"},
			{"Bob", "b@example.test", "-1", "initialBalance"},
			{"Bob", "b@example.test", "1.001", "initialBalance"},
		}
		for _, tt := range tests {
			_, err := svc.CreateUser(ctx, tt.name, tt.email, dec(tt.balance))
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		}
		m.factory.AssertNotCalled(t, "Create")
	})
}

func TestLedgerService_Debit(t *testing.T) {
	ctx := context.Background()
	entry := LedgerEntry{TransactionType: models.TransactionTypeGiftSent}

	t.Run("exact balance reaches zero", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewLedgerService(m.factory)

		m.users.On("DeductBalance", mock.Anything, testSenderID, decEq("30")).Return(testUser(testSenderID, "0"), nil)
		m.history.On("Record", mock.Anything, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.BalanceBefore.Equal(dec("30")) && h.BalanceAfter.IsZero() && h.ChangeAmount.Equal(dec("-30"))
		})).Return(nil)

		user, err := svc.Debit(ctx, testSenderID, dec("30"), entry)
		require.NoError(t, err)
		assert.True(t, user.Balance.IsZero())
		m.assertExpectations(t)
	})

	t.Run("one cent short reports the shortfall", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewLedgerService(m.factory)

		m.users.On("DeductBalance", mock.Anything, testSenderID, decEq("30.01")).Return(nil, nil)
		m.users.On("GetByID", mock.Anything, testSenderID).Return(testUser(testSenderID, "30"), nil)

		_, err := svc.Debit(ctx, testSenderID, dec("30.01"), entry)
		var fundsErr *InsufficientFundsError
		require.ErrorAs(t, err, &fundsErr)
		assertDecimal(t, "30", fundsErr.CurrentBalance)
		assertDecimal(t, "30.01", fundsErr.RequiredAmount)
		assertDecimal(t, "0.01", fundsErr.Shortfall)
		assert.Equal(t, KindInsufficientFunds, KindOf(err))

		m.history.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
		assert.Empty(t, m.published().Published(events.EventTypeBalanceChange))
	})

	t.Run("unknown user", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewLedgerService(m.factory)

		m.users.On("DeductBalance", mock.Anything, "ghost", decEq("1")).Return(nil, nil)
		m.users.On("GetByID", mock.Anything, "ghost").Return(nil, nil)

		_, err := svc.Debit(ctx, "ghost", dec("1"), entry)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("credit landing between decrement and re-read is retried", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewLedgerService(m.factory)

		m.users.On("DeductBalance", mock.Anything, testSenderID, decEq("30")).Return(nil, nil).Once()
		m.users.On("GetByID", mock.Anything, testSenderID).Return(testUser(testSenderID, "70"), nil).Once()
		m.users.On("DeductBalance", mock.Anything, testSenderID, decEq("30")).Return(testUser(testSenderID, "40"), nil).Once()
		m.history.On("Record", mock.Anything, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.BalanceBefore.Equal(dec("70")) && h.BalanceAfter.Equal(dec("40"))
		})).Return(nil)

		user, err := svc.Debit(ctx, testSenderID, dec("30"), entry)
		require.NoError(t, err)
		assertDecimal(t, "40", user.Balance)
		m.users.AssertNumberOfCalls(t, "DeductBalance", 2)
	})

	t.Run("covered balance never reports insufficient funds", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewLedgerService(m.factory)

		m.users.On("DeductBalance", mock.Anything, testSenderID, decEq("30")).Return(nil, nil)
		m.users.On("GetByID", mock.Anything, testSenderID).Return(testUser(testSenderID, "70"), nil)

		_, err := svc.Debit(ctx, testSenderID, dec("30"), entry)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrInsufficientFunds))
		assert.Equal(t, KindInternal, KindOf(err))
		m.users.AssertNumberOfCalls(t, "DeductBalance", debitAttempts)
		m.history.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("invalid amounts", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewLedgerService(m.factory)

		for _, amount := range []string{"0", "-5", "0.001"} {
			_, err := svc.Debit(ctx, testSenderID, dec(amount), entry)
			assert.Equal(t, KindInvalidArgument, KindOf(err), amount)
		}
		m.factory.AssertNotCalled(t, "Create")
	})
}

func TestLedgerService_Credit(t *testing.T) {
	ctx := context.Background()
	entry := LedgerEntry{TransactionType: models.TransactionTypeTopUp, RelatedID: "op-1"}

	t.Run("adds to the balance", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewLedgerService(m.factory)

		m.users.On("AddBalance", mock.Anything, testSenderID, decEq("12.50")).Return(testUser(testSenderID, "62.50"), nil)
		m.history.On("Record", mock.Anything, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.BalanceBefore.Equal(dec("50")) && h.RelatedID != nil && *h.RelatedID == "op-1"
		})).Return(nil)

		user, err := svc.Credit(ctx, testSenderID, dec("12.50"), entry)
		require.NoError(t, err)
		assertDecimal(t, "62.50", user.Balance)
		m.assertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewLedgerService(m.factory)

		m.users.On("AddBalance", mock.Anything, "ghost", decEq("1")).Return(nil, nil)

		_, err := svc.Credit(ctx, "ghost", dec("1"), entry)
		assert.Equal(t, KindNotFound, KindOf(err))
	})
}

func TestLedgerService_GetBalanceAndHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("balance of known user", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewLedgerService(m.factory)
		m.users.On("GetByID", mock.Anything, testSenderID).Return(testUser(testSenderID, "42.10"), nil)

		user, err := svc.GetBalance(ctx, testSenderID)
		require.NoError(t, err)
		assertDecimal(t, "42.10", user.Balance)
	})

	t.Run("balance of unknown user", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewLedgerService(m.factory)
		m.users.On("GetByID", mock.Anything, "ghost").Return(nil, nil)

		_, err := svc.GetBalance(ctx, "ghost")
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("history limit is clamped", func(t *testing.T) {
		tests := []struct {
			requested int
			expected  int
		}{
			{0, defaultHistoryLimit},
			{-3, defaultHistoryLimit},
			{20, 20},
			{10000, maxHistoryLimit},
		}
		for _, tt := range tests {
			m := newServiceMocks()
			svc := NewLedgerService(m.factory)
			m.users.On("GetByID", mock.Anything, testSenderID).Return(testUser(testSenderID, "1"), nil)
			m.history.On("GetByUser", mock.Anything, testSenderID, tt.expected).Return([]*models.BalanceHistory{}, nil)

			_, err := svc.History(ctx, testSenderID, tt.requested)
			require.NoError(t, err)
			m.history.AssertExpectations(t)
		}
	})
}
