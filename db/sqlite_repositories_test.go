package db_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suumo-traveltime/db"
	"suumo-traveltime/models"
	"suumo-traveltime/tests/testutils"
)

func TestCoordinateRepository_FindMissReturnsNotFound(t *testing.T) {
	factory := testutils.SetupTestRepositoryFactory(t)
	repo := factory.NewCoordinateRepository()

	_, err := repo.FindByAddress(context.Background(), "nowhere")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestCoordinateRepository_SaveIfAbsentFirstWriteWins(t *testing.T) {
	factory := testutils.SetupTestRepositoryFactory(t)
	repo := factory.NewCoordinateRepository()
	ctx := context.Background()

	first := &models.Coordinate{Address: "1-2-3 Test", Lng: 139.70, Lat: 35.66}
	require.NoError(t, repo.SaveIfAbsent(ctx, first))

	// A second write for the same address is a silent no-op.
	second := &models.Coordinate{Address: "1-2-3 Test", Lng: 0, Lat: 0}
	require.NoError(t, repo.SaveIfAbsent(ctx, second))

	got, err := repo.FindByAddress(ctx, "1-2-3 Test")
	require.NoError(t, err)
	assert.Equal(t, first.Lng, got.Lng)
	assert.Equal(t, first.Lat, got.Lat)
}

func TestCoordinateRepository_ConcurrentWritersKeepOneValue(t *testing.T) {
	factory := testutils.SetupTestRepositoryFactory(t)
	repo := factory.NewCoordinateRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			coord := &models.Coordinate{Address: "racy address", Lng: float64(i), Lat: float64(i)}
			assert.NoError(t, repo.SaveIfAbsent(ctx, coord))
		}(i)
	}
	wg.Wait()

	got, err := repo.FindByAddress(ctx, "racy address")
	require.NoError(t, err)

	// Whatever writer won, a later write never changes the stored value.
	late := &models.Coordinate{Address: "racy address", Lng: 999, Lat: 999}
	require.NoError(t, repo.SaveIfAbsent(ctx, late))

	again, err := repo.FindByAddress(ctx, "racy address")
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestDurationRepository_RoundTrip(t *testing.T) {
	factory := testutils.SetupTestRepositoryFactory(t)
	repo := factory.NewDurationRepository()
	ctx := context.Background()

	_, err := repo.Find(ctx, "origin", "destination", models.ModeCycling)
	assert.ErrorIs(t, err, db.ErrNotFound)

	require.NoError(t, repo.SaveIfAbsent(ctx, "origin", "destination", models.ModeCycling, 840))

	seconds, err := repo.Find(ctx, "origin", "destination", models.ModeCycling)
	require.NoError(t, err)
	assert.Equal(t, 840, seconds)

	// Same route, different mode, is a different cache entry.
	_, err = repo.Find(ctx, "origin", "destination", models.ModePublic)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestDurationRepository_SaveIfAbsentFirstWriteWins(t *testing.T) {
	factory := testutils.SetupTestRepositoryFactory(t)
	repo := factory.NewDurationRepository()
	ctx := context.Background()

	require.NoError(t, repo.SaveIfAbsent(ctx, "a", "b", models.ModeDriving, 100))
	require.NoError(t, repo.SaveIfAbsent(ctx, "a", "b", models.ModeDriving, 200))

	seconds, err := repo.Find(ctx, "a", "b", models.ModeDriving)
	require.NoError(t, err)
	assert.Equal(t, 100, seconds)
}

func TestCriterionRepository_CRUD(t *testing.T) {
	factory := testutils.SetupTestRepositoryFactory(t)
	repo := factory.NewCriterionRepository()
	ctx := context.Background()

	first := testutils.CreateTestCriterion(models.ModeCycling, 20)
	second := testutils.CreateTestCriterion(models.ModePublic, 45)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID, "criteria keep creation order")
	assert.Equal(t, second.ID, all[1].ID)

	found, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ModeCycling, found.Mode)
	assert.Equal(t, 20, found.TimeMinutes)
	assert.Nil(t, found.Location, "resolved locations are never persisted")

	first.TimeMinutes = 25
	first.Mode = models.ModeWalking
	require.NoError(t, repo.Update(ctx, first))

	found, err = repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, found.TimeMinutes)
	assert.Equal(t, models.ModeWalking, found.Mode)

	require.NoError(t, repo.DeleteByID(ctx, first.ID))
	_, err = repo.FindByID(ctx, first.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)

	assert.ErrorIs(t, repo.DeleteByID(ctx, first.ID), db.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, first), db.ErrNotFound)
}

func TestCredentialsRepository_SaveReplaces(t *testing.T) {
	factory := testutils.SetupTestRepositoryFactory(t)
	repo := factory.NewCredentialsRepository()
	ctx := context.Background()

	_, err := repo.Get(ctx)
	assert.ErrorIs(t, err, db.ErrNotFound)

	require.NoError(t, repo.Save(ctx, &models.Credentials{AppID: "app-1", APIKey: "key-1"}))
	require.NoError(t, repo.Save(ctx, &models.Credentials{AppID: "app-2", APIKey: "key-2"}))

	creds, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "app-2", creds.AppID)
	assert.Equal(t, "key-2", creds.APIKey)
}
