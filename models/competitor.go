package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActiveHorse selects which of a competitor's horses is displayed
type ActiveHorse string

const (
	ActiveHorseMain     ActiveHorse = "main"
	ActiveHorseSurprise ActiveHorse = "surprise"
)

// IsValid reports whether the value is one of the known horse selections
func (a ActiveHorse) IsValid() bool {
	return a == ActiveHorseMain || a == ActiveHorseSurprise
}

// Competitor is a rider and horse entered in a competition
type Competitor struct {
	ID                string      `db:"id"`
	CompetitionID     string      `db:"competition_id"`
	RiderID           string      `db:"rider_id"`
	Name              string      `db:"name"`
	HorseName         string      `db:"horse_name"`
	SurpriseHorseName *string     `db:"surprise_horse_name"`
	ActiveHorse       ActiveHorse `db:"active_horse"`
	Image             string      `db:"image"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`

	// Gifts is the received gift collection in insertion order
	Gifts []*GiftEntry `db:"-"`
}

// DisplayHorseName returns the name of the horse currently shown for the competitor
func (c *Competitor) DisplayHorseName() string {
	if c.ActiveHorse == ActiveHorseSurprise && c.SurpriseHorseName != nil && *c.SurpriseHorseName != "" {
		return *c.SurpriseHorseName
	}
	return c.HorseName
}

// TotalGiftValue sums cost × count over the raw gift collection
func (c *Competitor) TotalGiftValue() decimal.Decimal {
	total := decimal.Zero
	for _, gift := range c.Gifts {
		total = total.Add(gift.Value())
	}
	return total
}
