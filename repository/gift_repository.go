package repository

import (
	"context"
	"fmt"

	"giftboard/database"
	"giftboard/models"

	"github.com/jackc/pgx/v5"
)

const giftColumns = `id, entry_key, competitor_id, gift_type, icon, cost, count, gifted_by, created_at, updated_at`

// GiftRepository implements the GiftRepository interface
type GiftRepository struct {
	q queryable
}

// NewGiftRepository creates a new gift repository
func NewGiftRepository(db *database.DB) *GiftRepository {
	return &GiftRepository{q: db.Pool}
}

func newGiftRepositoryWithTx(tx queryable) *GiftRepository {
	return &GiftRepository{q: tx}
}

func scanGift(row pgx.Row) (*models.GiftEntry, error) {
	var gift models.GiftEntry
	err := row.Scan(
		&gift.ID,
		&gift.Key,
		&gift.CompetitorID,
		&gift.Type,
		&gift.Icon,
		&gift.Cost,
		&gift.Count,
		&gift.GiftedBy,
		&gift.CreatedAt,
		&gift.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &gift, nil
}

// Increment inserts entry or bumps the count of the existing (competitor, type, sender) entry.
// On conflict the stored key, icon and cost are kept.
func (r *GiftRepository) Increment(ctx context.Context, entry *models.GiftEntry) (*models.GiftEntry, error) {
	query := `
		INSERT INTO competitor_gifts (entry_key, competitor_id, gift_type, icon, cost, count, gifted_by)
		VALUES ($1, $2, $3, $4, $5, 1, $6)
		ON CONFLICT (competitor_id, gift_type, gifted_by)
		DO UPDATE SET count = competitor_gifts.count + 1, updated_at = NOW()
		RETURNING ` + giftColumns

	stored, err := scanGift(r.q.QueryRow(ctx, query,
		entry.Key,
		entry.CompetitorID,
		entry.Type,
		entry.Icon,
		entry.Cost,
		entry.GiftedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to record gift %s for competitor %s: %w", entry.Type, entry.CompetitorID, err)
	}

	return stored, nil
}

// GetByCompetitor returns a competitor's gifts in insertion order
func (r *GiftRepository) GetByCompetitor(ctx context.Context, competitorID string) ([]*models.GiftEntry, error) {
	query := `SELECT ` + giftColumns + ` FROM competitor_gifts WHERE competitor_id = $1 ORDER BY id`

	rows, err := r.q.Query(ctx, query, competitorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get gifts for competitor %s: %w", competitorID, err)
	}

	return collectGifts(rows)
}

// GetByCompetition returns the gifts of every competitor in a competition in insertion order
func (r *GiftRepository) GetByCompetition(ctx context.Context, competitionID string) ([]*models.GiftEntry, error) {
	query := `
		SELECT g.id, g.entry_key, g.competitor_id, g.gift_type, g.icon, g.cost, g.count, g.gifted_by, g.created_at, g.updated_at
		FROM competitor_gifts g
		JOIN competitors c ON c.id = g.competitor_id
		WHERE c.competition_id = $1
		ORDER BY g.id
	`

	rows, err := r.q.Query(ctx, query, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get gifts for competition %s: %w", competitionID, err)
	}

	return collectGifts(rows)
}

func collectGifts(rows pgx.Rows) ([]*models.GiftEntry, error) {
	defer rows.Close()

	gifts := make([]*models.GiftEntry, 0)
	for rows.Next() {
		gift, err := scanGift(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gift: %w", err)
		}
		gifts = append(gifts, gift)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate gifts: %w", err)
	}

	return gifts, nil
}
