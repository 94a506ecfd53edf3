package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"giftboard/events"
	"giftboard/models"

	log "github.com/sirupsen/logrus"
)

const maxHorseNameLength = 100

// UpdateCompetitorRequest changes a competitor's cosmetic horse fields.
// Nil fields are left untouched. ActorID is the authenticated caller, empty when unauthenticated.
type UpdateCompetitorRequest struct {
	CompetitorID      string
	SurpriseHorseName *string
	ActiveHorse       *models.ActiveHorse
	ActorID           string
}

// Validate checks the request before any store access
func (r UpdateCompetitorRequest) Validate() error {
	if strings.TrimSpace(r.CompetitorID) == "" {
		return &ValidationError{Field: "competitorId", Message: "is required"}
	}
	if r.SurpriseHorseName == nil && r.ActiveHorse == nil {
		return &ValidationError{Field: "competitor", Message: "at least one of surpriseHorseName or activeHorse is required"}
	}
	if r.SurpriseHorseName != nil && len(strings.TrimSpace(*r.SurpriseHorseName)) > maxHorseNameLength {
		return &ValidationError{Field: "surpriseHorseName", Message: fmt.Sprintf("must be at most %d characters", maxHorseNameLength)}
	}
	if r.ActiveHorse != nil && !r.ActiveHorse.IsValid() {
		return &ValidationError{Field: "activeHorse", Message: "must be main or surprise"}
	}
	return nil
}

// competitorService implements the CompetitorService interface
type competitorService struct {
	uowFactory UnitOfWorkFactory
	now        func() time.Time
}

// NewCompetitorService creates a new competitor service
func NewCompetitorService(uowFactory UnitOfWorkFactory) CompetitorService {
	return &competitorService{
		uowFactory: uowFactory,
		now:        time.Now,
	}
}

// UpdateCompetitor applies a cosmetic edit while the competition has not started.
// The gift collection is never written here.
func (s *competitorService) UpdateCompetitor(ctx context.Context, req UpdateCompetitorRequest) (*models.Competitor, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	competitor, err := uow.CompetitorRepository().GetByIDForUpdate(ctx, req.CompetitorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get competitor: %w", err)
	}
	if competitor == nil {
		return nil, &NotFoundError{Resource: "competitor", ID: req.CompetitorID}
	}

	competition, err := uow.CompetitionRepository().GetByID(ctx, competitor.CompetitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get competition: %w", err)
	}
	if competition == nil {
		return nil, &NotFoundError{Resource: "competition", ID: competitor.CompetitionID}
	}

	if competition.HasStarted(s.now()) {
		return nil, &ForbiddenError{
			Reason:  ForbiddenCompetitionStarted,
			Message: "competitor details cannot be changed after the competition has started",
		}
	}
	if req.ActorID != "" && req.ActorID != competitor.RiderID {
		return nil, &ForbiddenError{
			Reason:  ForbiddenNotOwner,
			Message: "only the competitor's rider can change these details",
		}
	}

	if req.SurpriseHorseName != nil {
		name := strings.TrimSpace(*req.SurpriseHorseName)
		if name == "" {
			competitor.SurpriseHorseName = nil
		} else {
			competitor.SurpriseHorseName = &name
		}
	}
	if req.ActiveHorse != nil {
		competitor.ActiveHorse = *req.ActiveHorse
	}

	if err := uow.CompetitorRepository().UpdateAppearance(ctx, competitor); err != nil {
		return nil, fmt.Errorf("failed to update competitor: %w", err)
	}

	gifts, err := uow.GiftRepository().GetByCompetitor(ctx, competitor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load gifts: %w", err)
	}
	competitor.Gifts = gifts

	uow.EventBus().Publish(events.CompetitorUpdatedEvent{
		CompetitorID:  competitor.ID,
		CompetitionID: competitor.CompetitionID,
		ActiveHorse:   competitor.ActiveHorse,
		HorseName:     competitor.DisplayHorseName(),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"competitorId": competitor.ID,
		"activeHorse":  competitor.ActiveHorse,
	}).Info("Competitor updated")

	return competitor, nil
}
