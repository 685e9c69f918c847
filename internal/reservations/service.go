package reservations

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sparkbytes/foodfinder/internal/models"
)

// Snapshot is the state a reservation is checked against. The store takes it
// while holding the food item's lock, so it stays valid until commit.
type Snapshot struct {
	Food          models.EventFood
	EventEnd      time.Time
	TotalReserved int // all students, in_progress + picked_up
	OwnQuantity   int // requesting student, in_progress + picked_up
}

// CheckFunc decides whether a reservation may proceed against snap.
type CheckFunc func(snap Snapshot) error

// Owned is a reservation with the ids needed to authorize a status change.
type Owned struct {
	models.Reservation
	EventID     uuid.UUID
	OrganizerID uuid.UUID
}

// Store is the ledger persistence.
type Store interface {
	// Reserve locks the food item, builds a Snapshot, runs check and, if it
	// passes, merges qty into the student's in_progress reservation or creates
	// one. It returns the item's totals after the write.
	Reserve(ctx context.Context, foodID, studentID uuid.UUID, qty int, check CheckFunc) (eventID uuid.UUID, totals models.FoodAvailability, err error)
	GetOwned(ctx context.Context, id uuid.UUID) (*Owned, error)
	// UpdateStatus sets status to `to` only if it is still `from`.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ReservationStatus) (bool, error)
	FoodTotals(ctx context.Context, foodID uuid.UUID) (models.FoodAvailability, error)
	FoodsForEvent(ctx context.Context, eventID, studentID uuid.UUID) ([]models.FoodAvailability, error)
	ListForStudent(ctx context.Context, studentID uuid.UUID) ([]models.StudentReservation, error)
	EventOwner(ctx context.Context, eventID uuid.UUID) (uuid.UUID, error)
	ListForEvent(ctx context.Context, eventID uuid.UUID) ([]models.FoodReservations, error)
}

// Publisher receives new food item totals after every change.
type Publisher interface {
	FoodUpdated(ctx context.Context, eventID uuid.UUID, food models.FoodAvailability)
}

// Service applies the reservation rules on top of a Store.
type Service struct {
	store     Store
	publisher Publisher
	now       func() time.Time
	logger    *zap.Logger
}

// NewService creates a reservation service. publisher may be nil.
func NewService(store Store, publisher Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, publisher: publisher, now: time.Now, logger: logger}
}

// MaxQuantity bounds a single request; quantities are stored as INTEGER.
const MaxQuantity = math.MaxInt32

// ValidQuantity reports whether qty is a positive quantity that fits the ledger.
func ValidQuantity(qty int) bool {
	return qty > 0 && qty <= MaxQuantity
}

// Check applies, in order, the event-ended, capacity and per-student rules
// to a request for qty portions at now.
func Check(snap Snapshot, qty int, now time.Time) error {
	if !snap.EventEnd.After(now) {
		return ErrEventEnded
	}
	left := models.FoodAvailability{TotalPortions: snap.Food.TotalPortions, TotalReserved: snap.TotalReserved}.Remaining()
	if qty > left {
		return &CapacityError{Remaining: left}
	}
	if qty > snap.Food.PerStudentLimit-snap.OwnQuantity {
		return &LimitError{Limit: snap.Food.PerStudentLimit}
	}
	return nil
}

// Reserve claims qty portions of a food item for a student.
func (s *Service) Reserve(ctx context.Context, studentID, foodID uuid.UUID, qty int) error {
	if foodID == uuid.Nil || !ValidQuantity(qty) {
		return ErrInvalidRequest
	}
	eventID, totals, err := s.store.Reserve(ctx, foodID, studentID, qty, func(snap Snapshot) error {
		return Check(snap, qty, s.now())
	})
	if err != nil {
		return err
	}
	s.publish(ctx, eventID, totals)
	return nil
}

// UpdateStatus moves a reservation to status `to` on behalf of callerID.
// Students may cancel their own in_progress reservations; the event's
// organizer may mark in_progress reservations picked_up or incomplete.
func (s *Service) UpdateStatus(ctx context.Context, callerID, id uuid.UUID, to models.ReservationStatus) error {
	if !to.Valid() {
		return ErrInvalidStatus
	}
	if to == models.ReservationInProgress {
		return ErrResetStatus
	}
	r, err := s.store.GetOwned(ctx, id)
	if err != nil {
		return err
	}

	actor, _ := models.RequiredActor(to)
	switch actor {
	case models.ActorStudent:
		if r.StudentID != callerID {
			return ErrNotStudent
		}
		if r.Status != models.ReservationInProgress {
			return ErrNotCancellable
		}
	case models.ActorOrganizer:
		if r.OrganizerID != callerID {
			return ErrNotOrganizer
		}
		if r.Status != models.ReservationInProgress {
			return ErrNotUpdatable
		}
	}
	if !models.ReservationTransitionAllowed(r.Status, to, actor) {
		return ErrNotUpdatable
	}

	updated, err := s.store.UpdateStatus(ctx, id, models.ReservationInProgress, to)
	if err != nil {
		return err
	}
	if !updated {
		// Another request moved it first.
		if actor == models.ActorStudent {
			return ErrNotCancellable
		}
		return ErrNotUpdatable
	}

	totals, err := s.store.FoodTotals(ctx, r.EventFoodID)
	if err != nil {
		s.logger.Warn("load food totals after status change failed", zap.Error(err), zap.String("reservation_id", id.String()))
		return nil
	}
	s.publish(ctx, r.EventID, totals)
	return nil
}

// FoodsForEvent returns each food item of an event with live totals for studentID.
func (s *Service) FoodsForEvent(ctx context.Context, eventID, studentID uuid.UUID) ([]models.FoodAvailability, error) {
	return s.store.FoodsForEvent(ctx, eventID, studentID)
}

// ListForStudent returns a student's reservations, newest first.
func (s *Service) ListForStudent(ctx context.Context, studentID uuid.UUID) ([]models.StudentReservation, error) {
	return s.store.ListForStudent(ctx, studentID)
}

// ListForEvent returns every food item of an event with its reservations.
// Only the event's organizer may call it.
func (s *Service) ListForEvent(ctx context.Context, callerID, eventID uuid.UUID) ([]models.FoodReservations, error) {
	owner, err := s.store.EventOwner(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if owner != callerID {
		return nil, ErrNotEventOwner
	}
	return s.store.ListForEvent(ctx, eventID)
}

func (s *Service) publish(ctx context.Context, eventID uuid.UUID, totals models.FoodAvailability) {
	if s.publisher == nil || eventID == uuid.Nil {
		return
	}
	s.publisher.FoodUpdated(ctx, eventID, totals)
}
