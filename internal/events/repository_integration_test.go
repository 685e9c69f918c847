//go:build integration

package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkbytes/foodfinder/internal/models"
	"github.com/sparkbytes/foodfinder/internal/reservations"
	"github.com/sparkbytes/foodfinder/pkg/database/databasetest"
)

func TestRepositoryCreate(t *testing.T) {
	pool := databasetest.Pool(t)
	ctx := context.Background()
	repo := NewRepository(pool)
	organizer := databasetest.User(t, pool, "student", "organizer")

	req := validRequest()
	req.FoodItems = []FoodItemInput{
		{Name: "Pizza", TotalPortions: 30, PerStudentLimit: 2},
		{Name: "Apples", TotalPortions: 10, PerStudentLimit: 1},
		{Name: "Zucchini bread", TotalPortions: 12, PerStudentLimit: 1},
	}
	e, foods, err := req.Build(time.UTC)
	require.NoError(t, err)
	e.OrganizerID = organizer
	e.OrganizerName = "BU Dining"

	require.NoError(t, repo.Create(ctx, e, foods))
	require.NotZero(t, e.ID)
	for i, f := range foods {
		assert.NotZero(t, f.ID)
		assert.Equal(t, e.ID, f.EventID)
		assert.Equal(t, i, f.Position)
	}

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pizza Night", got.Name)
	assert.Equal(t, "Central Campus", got.LocationLabel)
	assert.Equal(t, []string{"Vegetarian"}, got.DietaryTags)

	listed, err := repo.List(ctx, ListFilter{OrganizerID: &organizer})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	// all three rows share a transaction timestamp; entry order still holds
	avail, err := reservations.NewRepository(pool).FoodsForEvent(ctx, e.ID, organizer)
	require.NoError(t, err)
	require.Len(t, avail, 3)
	assert.Equal(t, []string{"Pizza", "Apples", "Zucchini bread"}, []string{avail[0].Name, avail[1].Name, avail[2].Name})
	for _, a := range avail {
		assert.Zero(t, a.TotalReserved, a.Name)
	}
}

func TestRepositoryCreateRollsBack(t *testing.T) {
	pool := databasetest.Pool(t)
	ctx := context.Background()
	organizer := databasetest.User(t, pool, "student", "organizer")

	req := validRequest()
	e, _, err := req.Build(time.UTC)
	require.NoError(t, err)
	e.OrganizerID = organizer
	foods := []models.EventFood{
		{Name: "Pizza", TotalPortions: 10, PerStudentLimit: 1},
		{Name: "Ghost", TotalPortions: 0, PerStudentLimit: 1},
	}
	require.Error(t, NewRepository(pool).Create(ctx, e, foods))

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM event_foods`).Scan(&n))
	assert.Zero(t, n)
}
