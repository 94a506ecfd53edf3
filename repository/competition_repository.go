package repository

import (
	"context"
	"errors"
	"fmt"

	"giftboard/database"
	"giftboard/models"

	"github.com/jackc/pgx/v5"
)

// CompetitionRepository implements the CompetitionRepository interface
type CompetitionRepository struct {
	q queryable
}

// NewCompetitionRepository creates a new competition repository
func NewCompetitionRepository(db *database.DB) *CompetitionRepository {
	return &CompetitionRepository{q: db.Pool}
}

func newCompetitionRepositoryWithTx(tx queryable) *CompetitionRepository {
	return &CompetitionRepository{q: tx}
}

// GetByID retrieves a competition by ID
func (r *CompetitionRepository) GetByID(ctx context.Context, id string) (*models.Competition, error) {
	query := `
		SELECT id, name, date, created_at, updated_at
		FROM competitions
		WHERE id = $1
	`

	var competition models.Competition
	err := r.q.QueryRow(ctx, query, id).Scan(
		&competition.ID,
		&competition.Name,
		&competition.Date,
		&competition.CreatedAt,
		&competition.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get competition %s: %w", id, err)
	}

	return &competition, nil
}

// Create inserts a new competition
func (r *CompetitionRepository) Create(ctx context.Context, competition *models.Competition) error {
	query := `
		INSERT INTO competitions (id, name, date)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query, competition.ID, competition.Name, competition.Date).
		Scan(&competition.CreatedAt, &competition.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create competition %s: %w", competition.ID, err)
	}

	return nil
}
