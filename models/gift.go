package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GiftEntry is the accumulated record of one gift type sent by one user to one competitor.
// Icon is denormalized display data and is never used for matching.
type GiftEntry struct {
	ID           int64           `db:"id"`
	Key          string          `db:"entry_key"`
	CompetitorID string          `db:"competitor_id"`
	Type         string          `db:"gift_type"`
	Icon         string          `db:"icon"`
	Cost         decimal.Decimal `db:"cost"` // unit price at first send, never updated
	Count        int             `db:"count"`
	GiftedBy     string          `db:"gifted_by"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

// Value returns cost × count for the entry
func (g *GiftEntry) Value() decimal.Decimal {
	return g.Cost.Mul(decimal.NewFromInt(int64(g.Count)))
}

// GiftOperationStatus tracks a gift send through debit, record and compensation
type GiftOperationStatus string

const (
	GiftOperationPending     GiftOperationStatus = "pending"
	GiftOperationDebited     GiftOperationStatus = "debited"
	GiftOperationCompleted   GiftOperationStatus = "completed"
	GiftOperationRejected    GiftOperationStatus = "rejected"
	GiftOperationFailed      GiftOperationStatus = "failed"
	GiftOperationCompensated GiftOperationStatus = "compensated"
)

// InFlight reports whether another attempt may still be charging or recording this operation
func (s GiftOperationStatus) InFlight() bool {
	return s == GiftOperationPending || s == GiftOperationDebited
}

// GiftOperation is the durable record of a single send-gift attempt
type GiftOperation struct {
	ID             string              `db:"id"`
	IdempotencyKey *string             `db:"idempotency_key"`
	SenderID       string              `db:"sender_id"`
	CompetitorID   string              `db:"competitor_id"`
	GiftType       string              `db:"gift_type"`
	Amount         decimal.Decimal     `db:"amount"`
	Status         GiftOperationStatus `db:"status"`
	NewBalance     decimal.NullDecimal `db:"new_balance"`
	EntryKey       *string             `db:"entry_key"`
	FailureReason  string              `db:"failure_reason"`
	CreatedAt      time.Time           `db:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at"`
}
