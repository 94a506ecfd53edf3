package repository

import (
	"context"
	"testing"
	"time"

	"giftboard/models"
	"giftboard/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompetitionRepository_CreateAndGet(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	repo := NewCompetitionRepository(testDB.DB)

	date := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	competition := testutil.CreateTestCompetition("May Cup", date)
	require.NoError(t, repo.Create(ctx, competition))

	stored, err := repo.GetByID(ctx, competition.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "May Cup", stored.Name)
	assert.True(t, date.Equal(stored.Date))

	missing, err := repo.GetByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCompetitorRepository_GetByCompetition(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	fx := seedGiftFixture(t, testDB)

	ctx := context.Background()
	repo := NewCompetitorRepository(testDB.DB)
	gifts := NewGiftRepository(testDB.DB)

	second := testutil.CreateTestCompetitor(fx.competition.ID, fx.rider.ID, "Lena")
	require.NoError(t, repo.Create(ctx, second))

	_, err := gifts.Increment(ctx, newEntry(second.ID, "crown", "50", fx.sender.ID))
	require.NoError(t, err)
	_, err = gifts.Increment(ctx, newEntry(fx.competitor.ID, "rose", "30", fx.sender.ID))
	require.NoError(t, err)

	competitors, err := repo.GetByCompetition(ctx, fx.competition.ID)
	require.NoError(t, err)
	require.Len(t, competitors, 2)

	assert.Equal(t, fx.competitor.ID, competitors[0].ID)
	require.Len(t, competitors[0].Gifts, 1)
	assert.Equal(t, "rose", competitors[0].Gifts[0].Type)

	assert.Equal(t, second.ID, competitors[1].ID)
	require.Len(t, competitors[1].Gifts, 1)
	assert.Equal(t, "crown", competitors[1].Gifts[0].Type)

	empty, err := repo.GetByCompetition(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCompetitorRepository_UpdateAppearance(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	fx := seedGiftFixture(t, testDB)

	ctx := context.Background()
	repo := NewCompetitorRepository(testDB.DB)

	locked, err := repo.GetByIDForUpdate(ctx, fx.competitor.ID)
	require.NoError(t, err)
	require.NotNil(t, locked)
	assert.Nil(t, locked.Gifts)

	surprise := "Thunder"
	locked.SurpriseHorseName = &surprise
	locked.ActiveHorse = models.ActiveHorseSurprise
	require.NoError(t, repo.UpdateAppearance(ctx, locked))

	stored, err := repo.GetByID(ctx, fx.competitor.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.SurpriseHorseName)
	assert.Equal(t, "Thunder", *stored.SurpriseHorseName)
	assert.Equal(t, "Thunder", stored.DisplayHorseName())
	assert.Empty(t, stored.Gifts)

	missing := &models.Competitor{ID: "missing", ActiveHorse: models.ActiveHorseMain}
	assert.Error(t, repo.UpdateAppearance(ctx, missing))
}
