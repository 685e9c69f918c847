package reservations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparkbytes/foodfinder/internal/models"
)

// Repository is the PostgreSQL ledger store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a reservation repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Reserve implements Store. The event_foods row is locked FOR UPDATE for the
// whole transaction, so concurrent reservations on one item run one at a time.
func (r *Repository) Reserve(ctx context.Context, foodID, studentID uuid.UUID, qty int, check CheckFunc) (uuid.UUID, models.FoodAvailability, error) {
	var totals models.FoodAvailability
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, totals, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var snap Snapshot
	const qFood = `SELECT id, event_id, name, total_portions, per_student_limit, created_at
		FROM event_foods WHERE id = $1 FOR UPDATE`
	f := &snap.Food
	err = tx.QueryRow(ctx, qFood, foodID).Scan(&f.ID, &f.EventID, &f.Name, &f.TotalPortions, &f.PerStudentLimit, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, totals, ErrFoodNotFound
	}
	if err != nil {
		return uuid.Nil, totals, fmt.Errorf("lock food: %w", err)
	}

	err = tx.QueryRow(ctx, `SELECT end_time FROM events WHERE id = $1`, f.EventID).Scan(&snap.EventEnd)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, totals, ErrEventNotFound
	}
	if err != nil {
		return uuid.Nil, totals, fmt.Errorf("load event: %w", err)
	}

	const qSums = `SELECT COALESCE(SUM(quantity), 0),
			COALESCE(SUM(quantity) FILTER (WHERE student_id = $2), 0)
		FROM reservations
		WHERE event_food_id = $1 AND status IN ('in_progress', 'picked_up')`
	if err := tx.QueryRow(ctx, qSums, foodID, studentID).Scan(&snap.TotalReserved, &snap.OwnQuantity); err != nil {
		return uuid.Nil, totals, fmt.Errorf("sum reservations: %w", err)
	}

	if err := check(snap); err != nil {
		return uuid.Nil, totals, err
	}

	const qMerge = `UPDATE reservations SET quantity = quantity + $3
		WHERE event_food_id = $1 AND student_id = $2 AND status = 'in_progress'`
	tag, err := tx.Exec(ctx, qMerge, foodID, studentID, qty)
	if err != nil {
		return uuid.Nil, totals, fmt.Errorf("merge reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		const qInsert = `INSERT INTO reservations (event_food_id, student_id, quantity, status)
			VALUES ($1, $2, $3, 'in_progress')`
		if _, err := tx.Exec(ctx, qInsert, foodID, studentID, qty); err != nil {
			return uuid.Nil, totals, fmt.Errorf("insert reservation: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, totals, fmt.Errorf("commit: %w", err)
	}
	totals = models.FoodAvailability{
		ID:              f.ID,
		Name:            f.Name,
		TotalPortions:   f.TotalPortions,
		PerStudentLimit: f.PerStudentLimit,
		TotalReserved:   snap.TotalReserved + qty,
	}
	return f.EventID, totals, nil
}

// GetOwned returns a reservation with its event and organizer ids.
func (r *Repository) GetOwned(ctx context.Context, id uuid.UUID) (*Owned, error) {
	const q = `SELECT r.id, r.event_food_id, r.student_id, r.quantity, r.status, r.created_at, e.id, e.organizer_id
		FROM reservations r
		JOIN event_foods f ON f.id = r.event_food_id
		JOIN events e ON e.id = f.event_id
		WHERE r.id = $1`
	var o Owned
	err := r.pool.QueryRow(ctx, q, id).Scan(&o.ID, &o.EventFoodID, &o.StudentID, &o.Quantity, &o.Status, &o.CreatedAt, &o.EventID, &o.OrganizerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateStatus implements Store as a compare-and-set on the status column.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ReservationStatus) (bool, error) {
	const q = `UPDATE reservations SET status = $3 WHERE id = $1 AND status = $2`
	tag, err := r.pool.Exec(ctx, q, id, string(from), string(to))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const foodTotalsSelect = `SELECT f.id, f.name, f.total_portions, f.per_student_limit,
		COALESCE(SUM(r.quantity) FILTER (WHERE r.status IN ('in_progress', 'picked_up')), 0),
		COALESCE(SUM(r.quantity) FILTER (WHERE r.status = 'in_progress' AND r.student_id = $2), 0)
	FROM event_foods f
	LEFT JOIN reservations r ON r.event_food_id = f.id`

// FoodTotals returns the live totals of one food item.
func (r *Repository) FoodTotals(ctx context.Context, foodID uuid.UUID) (models.FoodAvailability, error) {
	q := foodTotalsSelect + ` WHERE f.id = $1 GROUP BY f.id`
	var fa models.FoodAvailability
	err := r.pool.QueryRow(ctx, q, foodID, uuid.Nil).Scan(&fa.ID, &fa.Name, &fa.TotalPortions, &fa.PerStudentLimit, &fa.TotalReserved, &fa.UserQuantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return fa, ErrFoodNotFound
	}
	return fa, err
}

// FoodsForEvent returns the food items of an event with totals. UserQuantity
// counts only studentID's in_progress reservations.
func (r *Repository) FoodsForEvent(ctx context.Context, eventID, studentID uuid.UUID) ([]models.FoodAvailability, error) {
	q := foodTotalsSelect + ` WHERE f.event_id = $1 GROUP BY f.id ORDER BY f.position, f.id`
	rows, err := r.pool.Query(ctx, q, eventID, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.FoodAvailability{}
	for rows.Next() {
		var fa models.FoodAvailability
		if err := rows.Scan(&fa.ID, &fa.Name, &fa.TotalPortions, &fa.PerStudentLimit, &fa.TotalReserved, &fa.UserQuantity); err != nil {
			return nil, err
		}
		list = append(list, fa)
	}
	return list, rows.Err()
}

// ListForStudent returns a student's reservations, newest first, joined with
// their food item and event for display.
func (r *Repository) ListForStudent(ctx context.Context, studentID uuid.UUID) ([]models.StudentReservation, error) {
	const q = `SELECT r.id, r.event_food_id, r.student_id, r.quantity, r.status, r.created_at,
			COALESCE(f.name, 'Unknown item'), e.id, COALESCE(e.name, 'Unknown event'),
			COALESCE(e.location_label, ''), COALESCE(e.address, ''), e.start_time, e.end_time
		FROM reservations r
		LEFT JOIN event_foods f ON f.id = r.event_food_id
		LEFT JOIN events e ON e.id = f.event_id
		WHERE r.student_id = $1
		ORDER BY r.created_at DESC`
	rows, err := r.pool.Query(ctx, q, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.StudentReservation{}
	for rows.Next() {
		var sr models.StudentReservation
		if err := rows.Scan(&sr.ID, &sr.EventFoodID, &sr.StudentID, &sr.Quantity, &sr.Status, &sr.CreatedAt,
			&sr.FoodName, &sr.EventID, &sr.EventName, &sr.LocationLabel, &sr.Address, &sr.StartTime, &sr.EndTime); err != nil {
			return nil, err
		}
		list = append(list, sr)
	}
	return list, rows.Err()
}

// EventOwner returns the organizer id of an event.
func (r *Repository) EventOwner(ctx context.Context, eventID uuid.UUID) (uuid.UUID, error) {
	var owner uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT organizer_id FROM events WHERE id = $1`, eventID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrEventNotFound
	}
	return owner, err
}

// ListForEvent returns every food item of an event with all of its
// reservations and the reserving student's identity.
func (r *Repository) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]models.FoodReservations, error) {
	const qFoods = `SELECT id, name, total_portions, per_student_limit
		FROM event_foods WHERE event_id = $1 ORDER BY position, id`
	rows, err := r.pool.Query(ctx, qFoods, eventID)
	if err != nil {
		return nil, err
	}
	foods := []models.FoodReservations{}
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var f models.FoodReservations
		if err := rows.Scan(&f.ID, &f.Name, &f.TotalPortions, &f.PerStudentLimit); err != nil {
			rows.Close()
			return nil, err
		}
		f.Reservations = []models.ReservationDetail{}
		index[f.ID] = len(foods)
		foods = append(foods, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(foods) == 0 {
		return foods, nil
	}

	const qRes = `SELECT r.id, r.event_food_id, r.student_id, r.quantity, r.status, r.created_at,
			COALESCE(p.display_name, ''), COALESCE(u.email, '')
		FROM reservations r
		JOIN event_foods f ON f.id = r.event_food_id
		LEFT JOIN users u ON u.id = r.student_id
		LEFT JOIN student_profiles p ON p.id = r.student_id
		WHERE f.event_id = $1
		ORDER BY r.created_at`
	rows, err = r.pool.Query(ctx, qRes, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			d           models.ReservationDetail
			foodID      uuid.UUID
			displayName string
		)
		if err := rows.Scan(&d.ID, &foodID, &d.StudentID, &d.Quantity, &d.Status, &d.CreatedAt, &displayName, &d.StudentEmail); err != nil {
			return nil, err
		}
		d.StudentName = StudentName(displayName, d.StudentEmail, d.StudentID)
		i, ok := index[foodID]
		if !ok {
			continue
		}
		foods[i].Reservations = append(foods[i].Reservations, d)
		if d.Status.CountsAgainstCapacity() {
			foods[i].TotalReserved += d.Quantity
		}
	}
	return foods, rows.Err()
}

// StudentName picks the name an organizer sees: display name, then email,
// then the first eight characters of the id.
func StudentName(displayName, email string, id uuid.UUID) string {
	if n := strings.TrimSpace(displayName); n != "" {
		return n
	}
	if email != "" {
		return email
	}
	return id.String()[:8]
}
