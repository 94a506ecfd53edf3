package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"giftboard/database"
	"giftboard/models"

	"github.com/jackc/pgx/v5"
)

const giftOperationColumns = `id, idempotency_key, sender_id, competitor_id, gift_type, amount, status, new_balance, entry_key, failure_reason, created_at, updated_at`

// GiftOperationRepository implements the GiftOperationRepository interface
type GiftOperationRepository struct {
	q queryable
}

// NewGiftOperationRepository creates a new gift operation repository
func NewGiftOperationRepository(db *database.DB) *GiftOperationRepository {
	return &GiftOperationRepository{q: db.Pool}
}

func newGiftOperationRepositoryWithTx(tx queryable) *GiftOperationRepository {
	return &GiftOperationRepository{q: tx}
}

func scanGiftOperation(row pgx.Row) (*models.GiftOperation, error) {
	var op models.GiftOperation
	err := row.Scan(
		&op.ID,
		&op.IdempotencyKey,
		&op.SenderID,
		&op.CompetitorID,
		&op.GiftType,
		&op.Amount,
		&op.Status,
		&op.NewBalance,
		&op.EntryKey,
		&op.FailureReason,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// Create inserts the operation. A concurrent holder of the same idempotency key makes it return false.
func (r *GiftOperationRepository) Create(ctx context.Context, op *models.GiftOperation) (bool, error) {
	query := `
		INSERT INTO gift_operations (id, idempotency_key, sender_id, competitor_id, gift_type, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		op.ID,
		op.IdempotencyKey,
		op.SenderID,
		op.CompetitorID,
		op.GiftType,
		op.Amount,
		op.Status,
	).Scan(&op.CreatedAt, &op.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create gift operation %s: %w", op.ID, err)
	}

	return true, nil
}

// GetByID retrieves an operation by ID
func (r *GiftOperationRepository) GetByID(ctx context.Context, id string) (*models.GiftOperation, error) {
	query := `SELECT ` + giftOperationColumns + ` FROM gift_operations WHERE id = $1`

	op, err := scanGiftOperation(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gift operation %s: %w", id, err)
	}

	return op, nil
}

// GetByIdempotencyKey retrieves the operation currently holding key
func (r *GiftOperationRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.GiftOperation, error) {
	query := `SELECT ` + giftOperationColumns + ` FROM gift_operations WHERE idempotency_key = $1`

	op, err := scanGiftOperation(r.q.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gift operation by idempotency key: %w", err)
	}

	return op, nil
}

// UpdateStatus moves the operation to op.Status if it is still in state from
func (r *GiftOperationRepository) UpdateStatus(ctx context.Context, op *models.GiftOperation, from models.GiftOperationStatus) (bool, error) {
	query := `
		UPDATE gift_operations
		SET status = $1, new_balance = $2, entry_key = $3, failure_reason = $4, updated_at = NOW()
		WHERE id = $5 AND status = $6
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		op.Status,
		op.NewBalance,
		op.EntryKey,
		op.FailureReason,
		op.ID,
		from,
	).Scan(&op.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update gift operation %s: %w", op.ID, err)
	}

	return true, nil
}

// ReleaseKey clears the idempotency key of an operation
func (r *GiftOperationRepository) ReleaseKey(ctx context.Context, id string) error {
	query := `UPDATE gift_operations SET idempotency_key = NULL, updated_at = NOW() WHERE id = $1`

	if _, err := r.q.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to release idempotency key of operation %s: %w", id, err)
	}

	return nil
}

// ReleaseExpiredKeys clears the idempotency keys of finished operations created before cutoff
func (r *GiftOperationRepository) ReleaseExpiredKeys(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE gift_operations
		SET idempotency_key = NULL, updated_at = NOW()
		WHERE idempotency_key IS NOT NULL
		  AND created_at < $1
		  AND status NOT IN ('pending', 'debited')
	`

	tag, err := r.q.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to release expired idempotency keys: %w", err)
	}

	return tag.RowsAffected(), nil
}

// ListStale returns up to limit operations in status whose last update is older than cutoff, oldest first
func (r *GiftOperationRepository) ListStale(ctx context.Context, status models.GiftOperationStatus, cutoff time.Time, limit int) ([]*models.GiftOperation, error) {
	query := `SELECT ` + giftOperationColumns + `
		FROM gift_operations
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at, id
		LIMIT $3`

	rows, err := r.q.Query(ctx, query, status, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale gift operations: %w", err)
	}
	defer rows.Close()

	var ops []*models.GiftOperation
	for rows.Next() {
		op, err := scanGiftOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gift operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate gift operations: %w", err)
	}

	return ops, nil
}
