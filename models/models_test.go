package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCompetition_HasStarted(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	competition := &Competition{Date: start}

	assert.False(t, competition.HasStarted(start.Add(-time.Second)))
	assert.True(t, competition.HasStarted(start))
	assert.True(t, competition.HasStarted(start.Add(time.Hour)))
}

func TestCompetitor_DisplayHorseName(t *testing.T) {
	surprise := "Midnight Star"
	empty := ""

	tests := []struct {
		name       string
		competitor Competitor
		expected   string
	}{
		{"main horse", Competitor{HorseName: "Thunder", ActiveHorse: ActiveHorseMain, SurpriseHorseName: &surprise}, "Thunder"},
		{"surprise horse", Competitor{HorseName: "Thunder", ActiveHorse: ActiveHorseSurprise, SurpriseHorseName: &surprise}, "Midnight Star"},
		{"surprise without name", Competitor{HorseName: "Thunder", ActiveHorse: ActiveHorseSurprise}, "Thunder"},
		{"surprise with blank name", Competitor{HorseName: "Thunder", ActiveHorse: ActiveHorseSurprise, SurpriseHorseName: &empty}, "Thunder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.competitor.DisplayHorseName())
		})
	}
}

func TestCompetitor_TotalGiftValue(t *testing.T) {
	competitor := &Competitor{
		Gifts: []*GiftEntry{
			{Type: "rose", Cost: decimal.NewFromInt(10), Count: 3},
			{Type: "crown", Cost: decimal.NewFromInt(50), Count: 1},
		},
	}

	assert.True(t, decimal.NewFromInt(80).Equal(competitor.TotalGiftValue()))
	assert.True(t, decimal.Zero.Equal((&Competitor{}).TotalGiftValue()))
}

func TestGiftOperationStatus_InFlight(t *testing.T) {
	assert.True(t, GiftOperationPending.InFlight())
	assert.True(t, GiftOperationDebited.InFlight())
	assert.False(t, GiftOperationCompleted.InFlight())
	assert.False(t, GiftOperationRejected.InFlight())
	assert.False(t, GiftOperationFailed.InFlight())
	assert.False(t, GiftOperationCompensated.InFlight())
}

func TestActiveHorse_IsValid(t *testing.T) {
	assert.True(t, ActiveHorseMain.IsValid())
	assert.True(t, ActiveHorseSurprise.IsValid())
	assert.False(t, ActiveHorse("backup").IsValid())
}
