package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeInitial         TransactionType = "initial"
	TransactionTypeGiftSent        TransactionType = "gift_sent"
	TransactionTypeGiftRefund      TransactionType = "gift_refund"
	TransactionTypeTopUp           TransactionType = "top_up"
	TransactionTypeAdminAdjustment TransactionType = "admin_adjustment"
)

// BalanceHistory represents a historical balance change
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	UserID              string          `db:"user_id"`
	BalanceBefore       decimal.Decimal `db:"balance_before"`
	BalanceAfter        decimal.Decimal `db:"balance_after"`
	ChangeAmount        decimal.Decimal `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	RelatedID           *string         `db:"related_id"` // gift operation id for gift debits and refunds
	CreatedAt           time.Time       `db:"created_at"`
}
