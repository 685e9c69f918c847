package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() CreateRequest {
	return CreateRequest{
		EventName:   "Pizza Night",
		Location:    "central-campus",
		Address:     "775 Commonwealth Ave",
		Category:    "Dinner",
		DietaryTags: []string{"Vegetarian", " Vegetarian ", ""},
		StartTime:   "2026-03-10T18:00",
		EndTime:     "2026-03-10T20:00",
		FoodItems:   []FoodItemInput{{Name: " Cheese pizza ", TotalPortions: 40, PerStudentLimit: 2}},
	}
}

func TestBuildValid(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	req := validRequest()
	e, foods, err := req.Build(loc)
	require.NoError(t, err)

	assert.Equal(t, "Pizza Night", e.Name)
	assert.Equal(t, "Central Campus", e.LocationLabel)
	assert.Equal(t, []string{"Vegetarian"}, e.DietaryTags)
	assert.Equal(t, time.Date(2026, 3, 10, 18, 0, 0, 0, loc).Unix(), e.StartTime.Unix())
	require.Len(t, foods, 1)
	assert.Equal(t, "Cheese pizza", foods[0].Name)
	assert.Equal(t, 40, foods[0].TotalPortions)
	assert.Nil(t, e.FeaturedPhoto)
}

func TestBuildKeepsOffsetAndLabel(t *testing.T) {
	req := validRequest()
	req.StartTime = "2026-03-10T18:00:00Z"
	req.EndTime = "2026-03-10T19:00:00Z"
	req.LocationLabel = "CAS Lobby"
	blank := "  "
	req.FeaturedPhoto = &blank

	e, _, err := req.Build(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "CAS Lobby", e.LocationLabel)
	assert.Equal(t, 18, e.StartTime.UTC().Hour())
	assert.Nil(t, e.FeaturedPhoto)
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *CreateRequest)
		msg    string
	}{
		{"missing name", func(r *CreateRequest) { r.EventName = " " }, "Event name is required"},
		{"missing location", func(r *CreateRequest) { r.Location = "" }, "Location is required"},
		{"missing address", func(r *CreateRequest) { r.Address = "" }, "Address is required"},
		{"missing category", func(r *CreateRequest) { r.Category = "" }, "Category is required"},
		{"missing start", func(r *CreateRequest) { r.StartTime = "" }, "Start time is required"},
		{"bad end", func(r *CreateRequest) { r.EndTime = "tomorrow" }, "End time is invalid"},
		{"end before start", func(r *CreateRequest) { r.EndTime = "2026-03-10T17:00" }, "End time must be after start time"},
		{"end equals start", func(r *CreateRequest) { r.EndTime = r.StartTime }, "End time must be after start time"},
		{"no foods", func(r *CreateRequest) { r.FoodItems = nil }, "Add at least one food item"},
		{"unnamed food", func(r *CreateRequest) { r.FoodItems[0].Name = "" }, "Each food item must have a name, portions, and per-student limit"},
		{"zero portions", func(r *CreateRequest) { r.FoodItems[0].TotalPortions = 0 }, "Total portions and per-student limit must be greater than 0"},
		{"zero limit", func(r *CreateRequest) { r.FoodItems[0].PerStudentLimit = 0 }, "Total portions and per-student limit must be greater than 0"},
		{"half coordinates", func(r *CreateRequest) { lat := 42.35; r.Lat = &lat }, "lat and lng must be provided together"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, _, err := req.Build(time.UTC)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.msg, verr.Msg)
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_today`, escapeLike("50% off_today"))
}
