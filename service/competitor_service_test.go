package service

import (
	"context"
	"testing"
	"time"

	"giftboard/events"
	"giftboard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestCompetitorService(m *serviceMocks) *competitorService {
	svc := NewCompetitorService(m.factory).(*competitorService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestCompetitorService_UpdateCompetitor(t *testing.T) {
	ctx := context.Background()
	surprise := models.ActiveHorseSurprise

	t.Run("edits before the competition date", func(t *testing.T) {
		m := newServiceMocks()
		svc := newTestCompetitorService(m)

		gift := testGift("rose", "10", 2, testSenderID)
		m.competitors.On("GetByIDForUpdate", mock.Anything, testCompetitorID).Return(testCompetitor(), nil)
		m.competitions.On("GetByID", mock.Anything, testCompetitionID).Return(testCompetition(testNow.Add(time.Hour)), nil)
		m.competitors.On("UpdateAppearance", mock.Anything, mock.MatchedBy(func(c *models.Competitor) bool {
			return c.ActiveHorse == models.ActiveHorseSurprise && c.SurpriseHorseName != nil && *c.SurpriseHorseName == "Thunder"
		})).Return(nil)
		m.gifts.On("GetByCompetitor", mock.Anything, testCompetitorID).Return([]*models.GiftEntry{gift}, nil)

		name := "  Thunder "
		updated, err := svc.UpdateCompetitor(ctx, UpdateCompetitorRequest{
			CompetitorID:      testCompetitorID,
			SurpriseHorseName: &name,
			ActiveHorse:       &surprise,
			ActorID:           testRiderID,
		})
		require.NoError(t, err)
		assert.Equal(t, "Thunder", updated.DisplayHorseName())
		require.Len(t, updated.Gifts, 1)
		assert.Equal(t, 2, updated.Gifts[0].Count)
		require.Len(t, m.published().Published(events.EventTypeCompetitorUpdated), 1)
		m.assertExpectations(t)
	})

	t.Run("refused at and after the competition date", func(t *testing.T) {
		for _, date := range []time.Time{testNow, testNow.Add(-24 * time.Hour)} {
			m := newServiceMocks()
			svc := newTestCompetitorService(m)

			m.competitors.On("GetByIDForUpdate", mock.Anything, testCompetitorID).Return(testCompetitor(), nil)
			m.competitions.On("GetByID", mock.Anything, testCompetitionID).Return(testCompetition(date), nil)

			_, err := svc.UpdateCompetitor(ctx, UpdateCompetitorRequest{
				CompetitorID: testCompetitorID,
				ActiveHorse:  &surprise,
			})
			var forbidden *ForbiddenError
			require.ErrorAs(t, err, &forbidden)
			assert.Equal(t, ForbiddenCompetitionStarted, forbidden.Reason)
			m.competitors.AssertNotCalled(t, "UpdateAppearance", mock.Anything, mock.Anything)
		}
	})

	t.Run("refused for another rider", func(t *testing.T) {
		m := newServiceMocks()
		svc := newTestCompetitorService(m)

		m.competitors.On("GetByIDForUpdate", mock.Anything, testCompetitorID).Return(testCompetitor(), nil)
		m.competitions.On("GetByID", mock.Anything, testCompetitionID).Return(testCompetition(testNow.Add(time.Hour)), nil)

		_, err := svc.UpdateCompetitor(ctx, UpdateCompetitorRequest{
			CompetitorID: testCompetitorID,
			ActiveHorse:  &surprise,
			ActorID:      "someone-else",
		})
		var forbidden *ForbiddenError
		require.ErrorAs(t, err, &forbidden)
		assert.Equal(t, ForbiddenNotOwner, forbidden.Reason)
	})

	t.Run("blank surprise name clears it", func(t *testing.T) {
		m := newServiceMocks()
		svc := newTestCompetitorService(m)

		existing := testCompetitor()
		old := "Old"
		existing.SurpriseHorseName = &old
		m.competitors.On("GetByIDForUpdate", mock.Anything, testCompetitorID).Return(existing, nil)
		m.competitions.On("GetByID", mock.Anything, testCompetitionID).Return(testCompetition(testNow.Add(time.Hour)), nil)
		m.competitors.On("UpdateAppearance", mock.Anything, mock.MatchedBy(func(c *models.Competitor) bool {
			return c.SurpriseHorseName == nil
		})).Return(nil)
		m.gifts.On("GetByCompetitor", mock.Anything, testCompetitorID).Return([]*models.GiftEntry{}, nil)

		blank := "   "
		updated, err := svc.UpdateCompetitor(ctx, UpdateCompetitorRequest{
			CompetitorID:      testCompetitorID,
			SurpriseHorseName: &blank,
		})
		require.NoError(t, err)
		assert.Nil(t, updated.SurpriseHorseName)
	})

	t.Run("unknown competitor", func(t *testing.T) {
		m := newServiceMocks()
		svc := newTestCompetitorService(m)
		m.competitors.On("GetByIDForUpdate", mock.Anything, "ghost").Return(nil, nil)

		_, err := svc.UpdateCompetitor(ctx, UpdateCompetitorRequest{CompetitorID: "ghost", ActiveHorse: &surprise})
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("invalid requests", func(t *testing.T) {
		m := newServiceMocks()
		svc := newTestCompetitorService(m)

		bogus := models.ActiveHorse("pony")
		tests := []UpdateCompetitorRequest{
			{CompetitorID: ""},
			{CompetitorID: testCompetitorID},
			{CompetitorID: testCompetitorID, ActiveHorse: &bogus},
		}
		for _, req := range tests {
			_, err := svc.UpdateCompetitor(ctx, req)
			assert.Equal(t, KindInvalidArgument, KindOf(err))
		}
		m.factory.AssertNotCalled(t, "Create")
	})
}
