package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a marketplace account with a spendable balance
type User struct {
	ID        string          `db:"id"`
	Name      string          `db:"name"`
	Email     string          `db:"email"`
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}
