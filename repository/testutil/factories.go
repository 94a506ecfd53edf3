package testutil

import (
	"context"
	"testing"
	"time"

	"giftboard/database"
	"giftboard/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// CreateTestUser builds a user with a unique id and email
func CreateTestUser(name string, balance decimal.Decimal) *models.User {
	id := uuid.NewString()
	return &models.User{
		ID:      id,
		Name:    name,
		Email:   id + "@example.test",
		Balance: balance,
	}
}

// CreateTestCompetition builds a competition taking place at date
func CreateTestCompetition(name string, date time.Time) *models.Competition {
	return &models.Competition{
		ID:   uuid.NewString(),
		Name: name,
		Date: date,
	}
}

// CreateTestCompetitor builds a competitor ridden by riderID
func CreateTestCompetitor(competitionID, riderID, name string) *models.Competitor {
	return &models.Competitor{
		ID:            uuid.NewString(),
		CompetitionID: competitionID,
		RiderID:       riderID,
		Name:          name,
		HorseName:     name + "'s horse",
		ActiveHorse:   models.ActiveHorseMain,
	}
}

// SeedUser inserts user directly, bypassing the ledger
func SeedUser(t *testing.T, db *database.DB, user *models.User) {
	t.Helper()
	err := db.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		return tx.QueryRow(context.Background(), `
			INSERT INTO users (id, name, email, balance)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at, updated_at
		`, user.ID, user.Name, user.Email, user.Balance).Scan(&user.CreatedAt, &user.UpdatedAt)
	})
	require.NoError(t, err)
}

// SeedCompetition inserts a competition
func SeedCompetition(t *testing.T, db *database.DB, competition *models.Competition) {
	t.Helper()
	err := db.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		return tx.QueryRow(context.Background(), `
			INSERT INTO competitions (id, name, date)
			VALUES ($1, $2, $3)
			RETURNING created_at, updated_at
		`, competition.ID, competition.Name, competition.Date).Scan(&competition.CreatedAt, &competition.UpdatedAt)
	})
	require.NoError(t, err)
}

// SeedCompetitor inserts a competitor
func SeedCompetitor(t *testing.T, db *database.DB, competitor *models.Competitor) {
	t.Helper()
	err := db.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		return tx.QueryRow(context.Background(), `
			INSERT INTO competitors (id, competition_id, rider_id, name, horse_name, surprise_horse_name, active_horse, image)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at, updated_at
		`, competitor.ID, competitor.CompetitionID, competitor.RiderID, competitor.Name, competitor.HorseName,
			competitor.SurpriseHorseName, competitor.ActiveHorse, competitor.Image,
		).Scan(&competitor.CreatedAt, &competitor.UpdatedAt)
	})
	require.NoError(t, err)
}
