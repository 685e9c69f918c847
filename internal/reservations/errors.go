package reservations

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidRequest      = errors.New("eventFoodId and positive quantity are required")
	ErrInvalidStatus       = errors.New("Invalid or missing status")
	ErrResetStatus         = errors.New("Cannot reset status to in_progress")
	ErrFoodNotFound        = errors.New("Food item not found")
	ErrEventNotFound       = errors.New("Event not found")
	ErrReservationNotFound = errors.New("Reservation not found")
	ErrEventEnded          = errors.New("This event has already ended")
	ErrNotStudent          = errors.New("Only the student can cancel this reservation")
	ErrNotOrganizer        = errors.New("Only the event organizer can update this status")
	ErrNotEventOwner       = errors.New("You are not the organizer for this event")
	ErrNotCancellable      = errors.New("Only in-progress reservations can be cancelled")
	ErrNotUpdatable        = errors.New("Only in-progress reservations can be updated")
)

// CapacityError reports that a request would exceed the food item's portions.
type CapacityError struct {
	Remaining int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("Not enough portions left for this item (%d remaining)", e.Remaining)
}

// LimitError reports that a request would exceed the per-student limit.
type LimitError struct {
	Limit int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("You can only reserve up to %d portion(s) of this item", e.Limit)
}

// statusFor maps a ledger error to its HTTP status. ok is false for
// unexpected errors, which are reported as a generic server error.
func statusFor(err error) (status int, ok bool) {
	var capErr *CapacityError
	var limErr *LimitError
	switch {
	case errors.As(err, &capErr), errors.As(err, &limErr):
		return http.StatusBadRequest, true
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrResetStatus),
		errors.Is(err, ErrEventEnded),
		errors.Is(err, ErrNotCancellable),
		errors.Is(err, ErrNotUpdatable):
		return http.StatusBadRequest, true
	case errors.Is(err, ErrNotStudent),
		errors.Is(err, ErrNotOrganizer),
		errors.Is(err, ErrNotEventOwner):
		return http.StatusForbidden, true
	case errors.Is(err, ErrFoodNotFound),
		errors.Is(err, ErrEventNotFound),
		errors.Is(err, ErrReservationNotFound):
		return http.StatusNotFound, true
	}
	return http.StatusInternalServerError, false
}
