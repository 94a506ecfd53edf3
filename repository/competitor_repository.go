package repository

import (
	"context"
	"errors"
	"fmt"

	"giftboard/database"
	"giftboard/models"

	"github.com/jackc/pgx/v5"
)

const competitorColumns = `id, competition_id, rider_id, name, horse_name, surprise_horse_name, active_horse, image, created_at, updated_at`

// CompetitorRepository implements the CompetitorRepository interface
type CompetitorRepository struct {
	q     queryable
	gifts *GiftRepository
}

// NewCompetitorRepository creates a new competitor repository
func NewCompetitorRepository(db *database.DB) *CompetitorRepository {
	return newCompetitorRepositoryWithTx(db.Pool)
}

func newCompetitorRepositoryWithTx(tx queryable) *CompetitorRepository {
	return &CompetitorRepository{
		q:     tx,
		gifts: newGiftRepositoryWithTx(tx),
	}
}

func scanCompetitor(row pgx.Row) (*models.Competitor, error) {
	var competitor models.Competitor
	err := row.Scan(
		&competitor.ID,
		&competitor.CompetitionID,
		&competitor.RiderID,
		&competitor.Name,
		&competitor.HorseName,
		&competitor.SurpriseHorseName,
		&competitor.ActiveHorse,
		&competitor.Image,
		&competitor.CreatedAt,
		&competitor.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &competitor, nil
}

// GetByID retrieves a competitor together with its gift collection
func (r *CompetitorRepository) GetByID(ctx context.Context, id string) (*models.Competitor, error) {
	query := `SELECT ` + competitorColumns + ` FROM competitors WHERE id = $1`

	competitor, err := scanCompetitor(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get competitor %s: %w", id, err)
	}

	gifts, err := r.gifts.GetByCompetitor(ctx, id)
	if err != nil {
		return nil, err
	}
	competitor.Gifts = gifts

	return competitor, nil
}

// GetByIDForUpdate retrieves a competitor and locks its row until the transaction ends
func (r *CompetitorRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Competitor, error) {
	query := `SELECT ` + competitorColumns + ` FROM competitors WHERE id = $1 FOR UPDATE`

	competitor, err := scanCompetitor(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock competitor %s: %w", id, err)
	}

	return competitor, nil
}

// GetByCompetition returns a competition's competitors in creation order with their gifts
func (r *CompetitorRepository) GetByCompetition(ctx context.Context, competitionID string) ([]*models.Competitor, error) {
	query := `
		SELECT ` + competitorColumns + `
		FROM competitors
		WHERE competition_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.q.Query(ctx, query, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get competitors for competition %s: %w", competitionID, err)
	}
	defer rows.Close()

	competitors := make([]*models.Competitor, 0)
	byID := make(map[string]*models.Competitor)
	for rows.Next() {
		competitor, err := scanCompetitor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan competitor: %w", err)
		}
		competitor.Gifts = make([]*models.GiftEntry, 0)
		competitors = append(competitors, competitor)
		byID[competitor.ID] = competitor
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate competitors: %w", err)
	}

	gifts, err := r.gifts.GetByCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	for _, gift := range gifts {
		if competitor, ok := byID[gift.CompetitorID]; ok {
			competitor.Gifts = append(competitor.Gifts, gift)
		}
	}

	return competitors, nil
}

// Create inserts a new competitor
func (r *CompetitorRepository) Create(ctx context.Context, competitor *models.Competitor) error {
	if competitor.ActiveHorse == "" {
		competitor.ActiveHorse = models.ActiveHorseMain
	}

	query := `
		INSERT INTO competitors (id, competition_id, rider_id, name, horse_name, surprise_horse_name, active_horse, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		competitor.ID,
		competitor.CompetitionID,
		competitor.RiderID,
		competitor.Name,
		competitor.HorseName,
		competitor.SurpriseHorseName,
		competitor.ActiveHorse,
		competitor.Image,
	).Scan(&competitor.CreatedAt, &competitor.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create competitor %s: %w", competitor.ID, err)
	}

	return nil
}

// UpdateAppearance persists the cosmetic horse fields of a competitor
func (r *CompetitorRepository) UpdateAppearance(ctx context.Context, competitor *models.Competitor) error {
	query := `
		UPDATE competitors
		SET surprise_horse_name = $1, active_horse = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query, competitor.SurpriseHorseName, competitor.ActiveHorse, competitor.ID).
		Scan(&competitor.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("competitor %s not found", competitor.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update competitor %s: %w", competitor.ID, err)
	}

	return nil
}
