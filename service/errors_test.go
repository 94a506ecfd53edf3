package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"validation", &ValidationError{Field: "giftCost", Message: "must be greater than zero"}, KindInvalidArgument},
		{"not found", &NotFoundError{Resource: "user", ID: "u1"}, KindNotFound},
		{"insufficient funds", &InsufficientFundsError{UserID: "u1", CurrentBalance: dec("1"), RequiredAmount: dec("2"), Shortfall: dec("1")}, KindInsufficientFunds},
		{"forbidden", &ForbiddenError{Reason: ForbiddenNotOwner, Message: "no"}, KindForbidden},
		{"conflict", &ConflictError{Message: "busy"}, KindConflict},
		{"partial failure", &PartialFailureError{OperationID: "op", Amount: dec("30"), Cause: &NotFoundError{Resource: "competitor", ID: "c1"}}, KindPartialFailure},
		{"reconciliation", &ReconciliationError{OperationID: "op", ForwardErr: errors.New("a"), CompensationErr: errors.New("b")}, KindInternal},
		{"wrapped not found", fmt.Errorf("loading: %w", &NotFoundError{Resource: "user", ID: "u1"}), KindNotFound},
		{"unclassified", context.DeadlineExceeded, KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestInsufficientFundsError_Message(t *testing.T) {
	err := &InsufficientFundsError{
		UserID:         "u1",
		CurrentBalance: dec("20"),
		RequiredAmount: dec("30"),
		Shortfall:      dec("10"),
	}
	assert.Equal(t, "insufficient balance: have 20.00, need 30.00 (short 10.00)", err.Error())
}
