package models

import "github.com/shopspring/decimal"

// GiftSummary is a display row of a competitor's gifts grouped by type.
// Senders may have paid different prices for the same type, so Cost is only the
// first-seen unit price; Value is the summed cost × count of every grouped entry.
type GiftSummary struct {
	Type  string          `json:"type"`
	Icon  string          `json:"icon"`
	Cost  decimal.Decimal `json:"cost"`
	Count int             `json:"count"`
	Value decimal.Decimal `json:"value"`
}

// CompetitorView is one ranked leaderboard row. Ranks are a snapshot taken when the view was built.
// TotalGifts equals the sum of Value over Gifts.
type CompetitorView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	HorseName   string          `json:"horseName"`
	ActiveHorse ActiveHorse     `json:"activeHorse"`
	Image       string          `json:"image"`
	TotalGifts  decimal.Decimal `json:"totalGifts"`
	Rank        int             `json:"rank"`
	Gifts       []GiftSummary   `json:"gifts"`
}
