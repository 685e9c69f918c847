package reservations

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sparkbytes/foodfinder/internal/models"
)

type memEvent struct {
	organizerID uuid.UUID
	end         time.Time
}

// memStore is an in-memory ledger. One mutex stands in for the row lock.
type memStore struct {
	mu           sync.Mutex
	events       map[uuid.UUID]memEvent
	foods        map[uuid.UUID]models.EventFood
	reservations []*models.Reservation
}

func newMemStore() *memStore {
	return &memStore{
		events: make(map[uuid.UUID]memEvent),
		foods:  make(map[uuid.UUID]models.EventFood),
	}
}

func (m *memStore) addEvent(organizerID uuid.UUID, end time.Time) uuid.UUID {
	id := uuid.New()
	m.events[id] = memEvent{organizerID: organizerID, end: end}
	return id
}

func (m *memStore) addFood(eventID uuid.UUID, name string, total, limit int) uuid.UUID {
	id := uuid.New()
	pos := 0
	for _, f := range m.foods {
		if f.EventID == eventID {
			pos++
		}
	}
	m.foods[id] = models.EventFood{ID: id, EventID: eventID, Name: name, TotalPortions: total, PerStudentLimit: limit, Position: pos}
	return id
}

func (m *memStore) sums(foodID, studentID uuid.UUID) (total, own int) {
	for _, r := range m.reservations {
		if r.EventFoodID != foodID || !r.Status.CountsAgainstCapacity() {
			continue
		}
		total += r.Quantity
		if r.StudentID == studentID {
			own += r.Quantity
		}
	}
	return total, own
}

func (m *memStore) totals(foodID, studentID uuid.UUID) models.FoodAvailability {
	f := m.foods[foodID]
	total, _ := m.sums(foodID, studentID)
	own := 0
	for _, r := range m.reservations {
		if r.EventFoodID == foodID && r.StudentID == studentID && r.Status == models.ReservationInProgress {
			own += r.Quantity
		}
	}
	return models.FoodAvailability{
		ID: f.ID, Name: f.Name, TotalPortions: f.TotalPortions, PerStudentLimit: f.PerStudentLimit,
		TotalReserved: total, UserQuantity: own,
	}
}

func (m *memStore) Reserve(_ context.Context, foodID, studentID uuid.UUID, qty int, check CheckFunc) (uuid.UUID, models.FoodAvailability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.foods[foodID]
	if !ok {
		return uuid.Nil, models.FoodAvailability{}, ErrFoodNotFound
	}
	ev, ok := m.events[f.EventID]
	if !ok {
		return uuid.Nil, models.FoodAvailability{}, ErrEventNotFound
	}
	total, own := m.sums(foodID, studentID)
	if err := check(Snapshot{Food: f, EventEnd: ev.end, TotalReserved: total, OwnQuantity: own}); err != nil {
		return uuid.Nil, models.FoodAvailability{}, err
	}
	merged := false
	for _, r := range m.reservations {
		if r.EventFoodID == foodID && r.StudentID == studentID && r.Status == models.ReservationInProgress {
			r.Quantity += qty
			merged = true
			break
		}
	}
	if !merged {
		m.reservations = append(m.reservations, &models.Reservation{
			ID: uuid.New(), EventFoodID: foodID, StudentID: studentID, Quantity: qty,
			Status: models.ReservationInProgress, CreatedAt: time.Now(),
		})
	}
	return f.EventID, m.totals(foodID, uuid.Nil), nil
}

func (m *memStore) GetOwned(_ context.Context, id uuid.UUID) (*Owned, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.ID == id {
			f := m.foods[r.EventFoodID]
			return &Owned{Reservation: *r, EventID: f.EventID, OrganizerID: m.events[f.EventID].organizerID}, nil
		}
	}
	return nil, ErrReservationNotFound
}

func (m *memStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.ReservationStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.ID == id && r.Status == from {
			r.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) FoodTotals(_ context.Context, foodID uuid.UUID) (models.FoodAvailability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.foods[foodID]; !ok {
		return models.FoodAvailability{}, ErrFoodNotFound
	}
	return m.totals(foodID, uuid.Nil), nil
}

func (m *memStore) FoodsForEvent(_ context.Context, eventID, studentID uuid.UUID) ([]models.FoodAvailability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.FoodAvailability{}
	for id, f := range m.foods {
		if f.EventID == eventID {
			out = append(out, m.totals(id, studentID))
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.foods[out[i].ID].Position < m.foods[out[j].ID].Position })
	return out, nil
}

func (m *memStore) ListForStudent(_ context.Context, studentID uuid.UUID) ([]models.StudentReservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.StudentReservation{}
	for i := len(m.reservations) - 1; i >= 0; i-- {
		r := m.reservations[i]
		if r.StudentID == studentID {
			out = append(out, models.StudentReservation{Reservation: *r, FoodName: m.foods[r.EventFoodID].Name})
		}
	}
	return out, nil
}

func (m *memStore) EventOwner(_ context.Context, eventID uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventID]
	if !ok {
		return uuid.Nil, ErrEventNotFound
	}
	return ev.organizerID, nil
}

func (m *memStore) ListForEvent(_ context.Context, eventID uuid.UUID) ([]models.FoodReservations, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.FoodReservations{}
	for id, f := range m.foods {
		if f.EventID != eventID {
			continue
		}
		total, _ := m.sums(id, uuid.Nil)
		fr := models.FoodReservations{ID: id, Name: f.Name, TotalPortions: f.TotalPortions, PerStudentLimit: f.PerStudentLimit, TotalReserved: total}
		for _, r := range m.reservations {
			if r.EventFoodID == id {
				fr.Reservations = append(fr.Reservations, models.ReservationDetail{ID: r.ID, StudentID: r.StudentID, Quantity: r.Quantity, Status: r.Status})
			}
		}
		out = append(out, fr)
	}
	sort.Slice(out, func(i, j int) bool { return m.foods[out[i].ID].Position < m.foods[out[j].ID].Position })
	return out, nil
}

type published struct {
	eventID uuid.UUID
	food    models.FoodAvailability
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *recordingPublisher) FoodUpdated(_ context.Context, eventID uuid.UUID, food models.FoodAvailability) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{eventID: eventID, food: food})
}
