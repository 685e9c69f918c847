package events

import (
	"errors"
	"strings"
	"time"

	"github.com/sparkbytes/foodfinder/internal/models"
)

// FoodItemInput is one food line item in a create request.
type FoodItemInput struct {
	Name            string `json:"name"`
	TotalPortions   int    `json:"totalPortions"`
	PerStudentLimit int    `json:"perStudentLimit"`
}

// CreateRequest is the body for POST /api/events.
type CreateRequest struct {
	EventName     string          `json:"eventName"`
	Location      string          `json:"location"`
	LocationLabel string          `json:"locationLabel"`
	Address       string          `json:"address"`
	Category      string          `json:"category"`
	DietaryTags   []string        `json:"dietaryTags"`
	Description   string          `json:"description"`
	StartTime     string          `json:"startTime"`
	EndTime       string          `json:"endTime"`
	FeaturedPhoto *string         `json:"featuredPhoto"`
	FoodItems     []FoodItemInput `json:"foodItems"`
	Lat           *float64        `json:"lat"`
	Lng           *float64        `json:"lng"`
}

// timestamp layouts accepted for startTime / endTime. Layouts without a zone
// are read in the server's event time zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("invalid timestamp")
}

// ValidationError is a bad-request error carrying a user-facing message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

// Build validates req and turns it into the event and food rows to insert.
// Organizer fields are filled by the caller.
func (req *CreateRequest) Build(loc *time.Location) (*models.Event, []models.EventFood, error) {
	name := strings.TrimSpace(req.EventName)
	if name == "" {
		return nil, nil, invalid("Event name is required")
	}
	location := strings.TrimSpace(req.Location)
	if location == "" {
		return nil, nil, invalid("Location is required")
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return nil, nil, invalid("Address is required")
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, nil, invalid("Category is required")
	}
	if strings.TrimSpace(req.StartTime) == "" {
		return nil, nil, invalid("Start time is required")
	}
	if strings.TrimSpace(req.EndTime) == "" {
		return nil, nil, invalid("End time is required")
	}
	start, err := parseTimestamp(req.StartTime, loc)
	if err != nil {
		return nil, nil, invalid("Start time is invalid")
	}
	end, err := parseTimestamp(req.EndTime, loc)
	if err != nil {
		return nil, nil, invalid("End time is invalid")
	}
	if !end.After(start) {
		return nil, nil, invalid("End time must be after start time")
	}
	if (req.Lat == nil) != (req.Lng == nil) {
		return nil, nil, invalid("lat and lng must be provided together")
	}

	if len(req.FoodItems) == 0 {
		return nil, nil, invalid("Add at least one food item")
	}
	foods := make([]models.EventFood, 0, len(req.FoodItems))
	for _, item := range req.FoodItems {
		itemName := strings.TrimSpace(item.Name)
		if itemName == "" {
			return nil, nil, invalid("Each food item must have a name, portions, and per-student limit")
		}
		if item.TotalPortions <= 0 || item.PerStudentLimit <= 0 {
			return nil, nil, invalid("Total portions and per-student limit must be greater than 0")
		}
		foods = append(foods, models.EventFood{
			Name:            itemName,
			TotalPortions:   item.TotalPortions,
			PerStudentLimit: item.PerStudentLimit,
		})
	}

	label := strings.TrimSpace(req.LocationLabel)
	if label == "" {
		label = models.LocationLabel(location)
	}
	if label == "" {
		label = location
	}

	var photo *string
	if req.FeaturedPhoto != nil {
		if p := strings.TrimSpace(*req.FeaturedPhoto); p != "" {
			photo = &p
		}
	}

	e := &models.Event{
		Name:          name,
		Location:      location,
		LocationLabel: label,
		Address:       address,
		Lat:           req.Lat,
		Lng:           req.Lng,
		Category:      category,
		DietaryTags:   cleanTags(req.DietaryTags),
		Description:   strings.TrimSpace(req.Description),
		FeaturedPhoto: photo,
		StartTime:     start,
		EndTime:       end,
	}
	return e, foods, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
