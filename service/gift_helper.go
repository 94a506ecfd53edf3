package service

import (
	"context"
	"fmt"
	"strings"

	"giftboard/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxGiftTypeLength = 64
	maxGiftIconLength = 64
)

// RecordGiftRequest adds one unit of a gift to a competitor's collection
type RecordGiftRequest struct {
	CompetitorID string
	GiftType     string
	GiftIcon     string
	UnitCost     decimal.Decimal
	SenderID     string
}

// Validate checks the request before any store access
func (r RecordGiftRequest) Validate() error {
	if strings.TrimSpace(r.CompetitorID) == "" {
		return &ValidationError{Field: "competitorId", Message: "is required"}
	}
	if strings.TrimSpace(r.SenderID) == "" {
		return &ValidationError{Field: "senderId", Message: "is required"}
	}
	if err := validateGiftType(r.GiftType, r.GiftIcon); err != nil {
		return err
	}
	if r.UnitCost.IsNegative() {
		return &ValidationError{Field: "unitCost", Message: "must not be negative"}
	}
	if !r.UnitCost.Equal(r.UnitCost.Round(2)) {
		return &ValidationError{Field: "unitCost", Message: "must have at most two decimal places"}
	}
	return nil
}

// RecordGiftResult holds the touched entry and the competitor with its full gift collection
type RecordGiftResult struct {
	Entry      *models.GiftEntry
	Competitor *models.Competitor
}

func validateGiftType(giftType, giftIcon string) error {
	giftType = strings.TrimSpace(giftType)
	if giftType == "" {
		return &ValidationError{Field: "giftType", Message: "is required"}
	}
	if len(giftType) > maxGiftTypeLength {
		return &ValidationError{Field: "giftType", Message: fmt.Sprintf("must be at most %d characters", maxGiftTypeLength)}
	}
	if len(giftIcon) > maxGiftIconLength {
		return &ValidationError{Field: "giftIcon", Message: fmt.Sprintf("must be at most %d characters", maxGiftIconLength)}
	}
	return nil
}

// recordGift appends or increments the (type, sender) entry of a competitor inside uow.
// The competitor row stays locked until uow ends, so concurrent senders queue up per competitor.
func recordGift(ctx context.Context, uow UnitOfWork, req RecordGiftRequest) (*RecordGiftResult, error) {
	competitor, err := uow.CompetitorRepository().GetByIDForUpdate(ctx, req.CompetitorID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock competitor: %w", err)
	}
	if competitor == nil {
		return nil, &NotFoundError{Resource: "competitor", ID: req.CompetitorID}
	}

	sender, err := uow.UserRepository().GetByID(ctx, req.SenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sender: %w", err)
	}
	if sender == nil {
		return nil, &NotFoundError{Resource: "user", ID: req.SenderID}
	}

	entry, err := uow.GiftRepository().Increment(ctx, &models.GiftEntry{
		Key:          uuid.NewString(),
		CompetitorID: competitor.ID,
		Type:         strings.TrimSpace(req.GiftType),
		Icon:         req.GiftIcon,
		Cost:         req.UnitCost,
		Count:        1,
		GiftedBy:     sender.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record gift: %w", err)
	}

	gifts, err := uow.GiftRepository().GetByCompetitor(ctx, competitor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load gifts: %w", err)
	}
	competitor.Gifts = gifts

	return &RecordGiftResult{Entry: entry, Competitor: competitor}, nil
}
