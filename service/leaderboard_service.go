package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"giftboard/models"
)

// leaderboardService implements the LeaderboardService interface
type leaderboardService struct {
	uowFactory UnitOfWorkFactory
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(uowFactory UnitOfWorkFactory) LeaderboardService {
	return &leaderboardService{uowFactory: uowFactory}
}

// ListRanked returns a snapshot of the competition's competitors ranked by gift value.
// Nothing is cached; every call reads the current gift collections.
func (s *leaderboardService) ListRanked(ctx context.Context, competitionID string) ([]models.CompetitorView, error) {
	if strings.TrimSpace(competitionID) == "" {
		return nil, &ValidationError{Field: "competitionId", Message: "is required"}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	competition, err := uow.CompetitionRepository().GetByID(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get competition: %w", err)
	}
	if competition == nil {
		return nil, &NotFoundError{Resource: "competition", ID: competitionID}
	}

	competitors, err := uow.CompetitorRepository().GetByCompetition(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get competitors: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return ProjectLeaderboard(competitors), nil
}

// ProjectLeaderboard ranks competitors by total gift value, highest first.
// Ties keep their input order. Display gifts are grouped by type so that
// duplicate entries of one type collapse into a single row.
func ProjectLeaderboard(competitors []*models.Competitor) []models.CompetitorView {
	views := make([]models.CompetitorView, 0, len(competitors))
	for _, competitor := range competitors {
		views = append(views, models.CompetitorView{
			ID:          competitor.ID,
			Name:        competitor.Name,
			HorseName:   competitor.DisplayHorseName(),
			ActiveHorse: competitor.ActiveHorse,
			Image:       competitor.Image,
			TotalGifts:  competitor.TotalGiftValue(),
			Gifts:       SummarizeGifts(competitor.Gifts),
		})
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].TotalGifts.GreaterThan(views[j].TotalGifts)
	})

	for i := range views {
		views[i].Rank = i + 1
	}

	return views
}

// SummarizeGifts groups gift entries by type in first-seen order.
// Counts and values are summed; icon and cost come from the first entry of each type.
func SummarizeGifts(gifts []*models.GiftEntry) []models.GiftSummary {
	summaries := make([]models.GiftSummary, 0, len(gifts))
	index := make(map[string]int, len(gifts))

	for _, gift := range gifts {
		if i, ok := index[gift.Type]; ok {
			summaries[i].Count += gift.Count
			summaries[i].Value = summaries[i].Value.Add(gift.Value())
			continue
		}
		index[gift.Type] = len(summaries)
		summaries = append(summaries, models.GiftSummary{
			Type:  gift.Type,
			Icon:  gift.Icon,
			Cost:  gift.Cost,
			Count: gift.Count,
			Value: gift.Value(),
		})
	}

	return summaries
}
