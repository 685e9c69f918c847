package models

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationInProgress ReservationStatus = "in_progress"
	ReservationPickedUp   ReservationStatus = "picked_up"
	ReservationCancelled  ReservationStatus = "cancelled"
	ReservationIncomplete ReservationStatus = "incomplete"
)

// Valid reports whether s is one of the four lifecycle states.
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationInProgress, ReservationPickedUp, ReservationCancelled, ReservationIncomplete:
		return true
	}
	return false
}

// CountsAgainstCapacity reports whether a reservation in this state holds portions.
func (s ReservationStatus) CountsAgainstCapacity() bool {
	return s == ReservationInProgress || s == ReservationPickedUp
}

// Actor is the party asking for a status change, relative to the reservation.
type Actor string

const (
	ActorStudent   Actor = "student"   // the student who holds the reservation
	ActorOrganizer Actor = "organizer" // the organizer who owns the event
	ActorOther     Actor = "other"
)

// reservationTransitions maps target status to the single actor allowed to
// move an in_progress reservation there.
var reservationTransitions = map[ReservationStatus]Actor{
	ReservationCancelled:  ActorStudent,
	ReservationPickedUp:   ActorOrganizer,
	ReservationIncomplete: ActorOrganizer,
}

// ReservationTransitionAllowed reports whether actor may move a reservation
// from one status to another.
func ReservationTransitionAllowed(from, to ReservationStatus, actor Actor) bool {
	if from != ReservationInProgress {
		return false
	}
	want, ok := reservationTransitions[to]
	return ok && want == actor
}

// RequiredActor returns who may set status to, if anyone.
func RequiredActor(to ReservationStatus) (Actor, bool) {
	a, ok := reservationTransitions[to]
	return a, ok
}

// Reservation is a student's claim on some portions of one food item.
type Reservation struct {
	ID          uuid.UUID         `json:"id"`
	EventFoodID uuid.UUID         `json:"event_food_id"`
	StudentID   uuid.UUID         `json:"student_id"`
	Quantity    int               `json:"quantity"`
	Status      ReservationStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

// StudentReservation is a reservation enriched for the student's list view.
type StudentReservation struct {
	Reservation
	FoodName      string     `json:"foodName"`
	EventID       *uuid.UUID `json:"eventId"`
	EventName     string     `json:"eventName"`
	LocationLabel string     `json:"locationLabel"`
	Address       string     `json:"address"`
	StartTime     *time.Time `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
}

// FoodAvailability is a food item with live reservation totals.
type FoodAvailability struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	TotalPortions   int       `json:"totalPortions"`
	PerStudentLimit int       `json:"perStudentLimit"`
	TotalReserved   int       `json:"totalReserved"`
	UserQuantity    int       `json:"userQuantity"`
}

// Remaining returns the portions still available.
func (f FoodAvailability) Remaining() int {
	if r := f.TotalPortions - f.TotalReserved; r > 0 {
		return r
	}
	return 0
}

// ReservationDetail is a single reservation as seen by the event organizer.
type ReservationDetail struct {
	ID           uuid.UUID         `json:"id"`
	StudentID    uuid.UUID         `json:"studentId"`
	StudentName  string            `json:"studentName"`
	StudentEmail string            `json:"studentEmail"`
	Quantity     int               `json:"quantity"`
	Status       ReservationStatus `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
}

// FoodReservations groups an organizer's view of one food item.
type FoodReservations struct {
	ID              uuid.UUID           `json:"id"`
	Name            string              `json:"name"`
	TotalPortions   int                 `json:"totalPortions"`
	PerStudentLimit int                 `json:"perStudentLimit"`
	TotalReserved   int                 `json:"totalReserved"`
	Reservations    []ReservationDetail `json:"reservations"`
}
