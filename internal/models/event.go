package models

import (
	"time"

	"github.com/google/uuid"
)

// Availability is the live status of an event. It is derived from the clock
// and the event window on every read and never stored.
type Availability string

const (
	AvailableNow  Availability = "available-now"
	AvailableSoon Availability = "available-soon"
	EndingSoon    Availability = "ending-soon" // event window has passed
)

// AvailabilityAt derives the availability of the window [start, end] at now.
func AvailabilityAt(now, start, end time.Time) Availability {
	switch {
	case now.After(end):
		return EndingSoon
	case now.Before(start):
		return AvailableSoon
	default:
		return AvailableNow
	}
}

// Event is a free-food event posted by an organizer.
type Event struct {
	ID            uuid.UUID `json:"id"`
	OrganizerID   uuid.UUID `json:"organizer_id"`
	OrganizerName string    `json:"organizer_name"`
	Name          string    `json:"name"`
	Location      string    `json:"location"`
	LocationLabel string    `json:"location_label"`
	Address       string    `json:"address"`
	Lat           *float64  `json:"lat"`
	Lng           *float64  `json:"lng"`
	Category      string    `json:"category"`
	DietaryTags   []string  `json:"dietary_tags"`
	Description   string    `json:"description"`
	FeaturedPhoto *string   `json:"featured_photo"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	CreatedAt     time.Time `json:"created_at"`
}

// Ended reports whether the event window is over at now.
func (e *Event) Ended(now time.Time) bool {
	return !e.EndTime.After(now)
}

// EventView is an Event as served to clients, with availability attached.
type EventView struct {
	Event
	Availability Availability `json:"availability"`
}

// ViewAt projects e into its client shape at now.
func (e Event) ViewAt(now time.Time) EventView {
	return EventView{Event: e, Availability: AvailabilityAt(now, e.StartTime, e.EndTime)}
}

// EventFood is one food line item of an event with its own capacity.
type EventFood struct {
	ID              uuid.UUID `json:"id"`
	EventID         uuid.UUID `json:"event_id"`
	Name            string    `json:"name"`
	TotalPortions   int       `json:"total_portions"`
	PerStudentLimit int       `json:"per_student_limit"`
	Position        int       `json:"position"`
	CreatedAt       time.Time `json:"created_at"`
}

// Location is one of the fixed campus areas an event can be held in.
type Location struct {
	Code  string `json:"value"`
	Label string `json:"label"`
}

// Locations lists the campus areas known to the feed filters.
var Locations = []Location{
	{Code: "central-campus", Label: "Central Campus"},
	{Code: "george-sherman-union", Label: "George Sherman Union"},
	{Code: "east-campus", Label: "East Campus"},
	{Code: "west-campus", Label: "West Campus"},
	{Code: "fenway-campus", Label: "Fenway Campus"},
}

// LocationLabel returns the display label for code, or "" if unknown.
func LocationLabel(code string) string {
	for _, l := range Locations {
		if l.Code == code {
			return l.Label
		}
	}
	return ""
}

// Categories and DietaryOptions are the values offered by the event form.
var (
	Categories     = []string{"Lunch", "Dinner", "Snacks"}
	DietaryOptions = []string{"Vegetarian", "Vegan", "Halal", "Gluten-Free", "Dairy-Free", "Nut-Free"}
)
