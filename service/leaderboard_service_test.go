package service

import (
	"context"
	"testing"
	"time"

	"giftboard/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func competitorWithGifts(id string, gifts ...*models.GiftEntry) *models.Competitor {
	c := testCompetitor(gifts...)
	c.ID = id
	c.Name = "rider " + id
	return c
}

func TestProjectLeaderboard(t *testing.T) {
	t.Run("sums cost times count across types", func(t *testing.T) {
		views := ProjectLeaderboard([]*models.Competitor{
			competitorWithGifts("a",
				testGift("rose", "10", 3, "u1"),
				testGift("crown", "50", 1, "u2"),
			),
		})

		require.Len(t, views, 1)
		assertDecimal(t, "80", views[0].TotalGifts)
		assert.Equal(t, 1, views[0].Rank)
		require.Len(t, views[0].Gifts, 2)
		assert.Equal(t, "rose", views[0].Gifts[0].Type)
		assert.Equal(t, 3, views[0].Gifts[0].Count)
	})

	t.Run("orders by value with stable ties", func(t *testing.T) {
		views := ProjectLeaderboard([]*models.Competitor{
			competitorWithGifts("low", testGift("rose", "10", 1, "u1")),
			competitorWithGifts("tie-first", testGift("rose", "10", 5, "u1")),
			competitorWithGifts("none"),
			competitorWithGifts("top", testGift("crown", "99.99", 1, "u1")),
			competitorWithGifts("tie-second", testGift("crown", "25", 2, "u2")),
		})

		ids := make([]string, len(views))
		ranks := make([]int, len(views))
		for i, v := range views {
			ids[i] = v.ID
			ranks[i] = v.Rank
		}
		assert.Equal(t, []string{"top", "tie-first", "tie-second", "low", "none"}, ids)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, ranks)
		assert.True(t, views[4].TotalGifts.IsZero())
		assert.Empty(t, views[4].Gifts)
	})

	t.Run("duplicate entries of one type collapse for display", func(t *testing.T) {
		views := ProjectLeaderboard([]*models.Competitor{
			competitorWithGifts("a",
				testGift("rose", "10", 2, "u1"),
				testGift("crown", "50", 1, "u1"),
				testGift("rose", "12", 1, "u2"),
			),
		})

		require.Len(t, views[0].Gifts, 2)
		rose := views[0].Gifts[0]
		assert.Equal(t, "rose", rose.Type)
		assert.Equal(t, 3, rose.Count)
		assertDecimal(t, "10", rose.Cost)
		assertDecimal(t, "32", rose.Value)
		assertDecimal(t, "50", views[0].Gifts[1].Value)
		// Totals use each raw entry's own cost
		assertDecimal(t, "82", views[0].TotalGifts)

		sum := decimal.Zero
		for _, summary := range views[0].Gifts {
			sum = sum.Add(summary.Value)
		}
		assertDecimal(t, "82", sum)
	})

	t.Run("n sends of one gift total n times its cost", func(t *testing.T) {
		views := ProjectLeaderboard([]*models.Competitor{
			competitorWithGifts("a", testGift("horseshoe", "0.35", 7, "u1")),
		})
		assertDecimal(t, "2.45", views[0].TotalGifts)
	})

	t.Run("surprise horse is displayed when active", func(t *testing.T) {
		c := competitorWithGifts("a")
		surprise := "Thunder"
		c.SurpriseHorseName = &surprise
		c.ActiveHorse = models.ActiveHorseSurprise

		views := ProjectLeaderboard([]*models.Competitor{c})
		assert.Equal(t, "Thunder", views[0].HorseName)
	})

	t.Run("empty competition", func(t *testing.T) {
		views := ProjectLeaderboard(nil)
		assert.NotNil(t, views)
		assert.Empty(t, views)
	})
}

func TestLeaderboardService_ListRanked(t *testing.T) {
	ctx := context.Background()

	t.Run("ranks the competition", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewLeaderboardService(m.factory)

		m.competitions.On("GetByID", mock.Anything, testCompetitionID).Return(testCompetition(time.Now()), nil)
		m.competitors.On("GetByCompetition", mock.Anything, testCompetitionID).Return([]*models.Competitor{
			competitorWithGifts("a", testGift("rose", "10", 1, "u1")),
			competitorWithGifts("b", testGift("rose", "10", 4, "u1")),
		}, nil)

		views, err := svc.ListRanked(ctx, testCompetitionID)
		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.Equal(t, "b", views[0].ID)
		assertDecimal(t, "40", views[0].TotalGifts)
	})

	t.Run("unknown competition", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewLeaderboardService(m.factory)
		m.competitions.On("GetByID", mock.Anything, "ghost").Return(nil, nil)

		_, err := svc.ListRanked(ctx, "ghost")
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("missing id", func(t *testing.T) {
		m := newServiceMocks()
		svc := NewLeaderboardService(m.factory)

		_, err := svc.ListRanked(ctx, "")
		assert.Equal(t, KindInvalidArgument, KindOf(err))
		m.factory.AssertNotCalled(t, "Create")
	})
}
