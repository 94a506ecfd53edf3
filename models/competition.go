package models

import "time"

// Competition is a scheduled event that competitors enter
type Competition struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Date      time.Time `db:"date"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// HasStarted reports whether the competition's scheduled start is at or before now.
// Cosmetic competitor edits are only allowed while it returns false.
func (c *Competition) HasStarted(now time.Time) bool {
	return !now.Before(c.Date)
}
