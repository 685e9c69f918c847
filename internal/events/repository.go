package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparkbytes/foodfinder/internal/models"
)

var ErrEventNotFound = errors.New("event not found")

// ListFilter narrows an event listing. Zero values mean "no filter".
type ListFilter struct {
	OrganizerID *uuid.UUID
	Category    string
	Location    string
	Dietary     string
	Query       string
}

// Stats summarizes an organizer's events.
type Stats struct {
	TotalEvents   int            `json:"totalEvents"`
	CurrentEvents int            `json:"currentEvents"`
	PastEvents    int            `json:"pastEvents"`
	RecentEvents  []models.Event `json:"recentEvents"`
}

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, organizer_id, organizer_name, name, location, location_label, address, lat, lng,
	category, dietary_tags, description, featured_photo, start_time, end_time, created_at`

func scanEvent(row pgx.Row, e *models.Event) error {
	return row.Scan(&e.ID, &e.OrganizerID, &e.OrganizerName, &e.Name, &e.Location, &e.LocationLabel, &e.Address,
		&e.Lat, &e.Lng, &e.Category, &e.DietaryTags, &e.Description, &e.FeaturedPhoto, &e.StartTime, &e.EndTime, &e.CreatedAt)
}

// Create inserts the event and all of its food items in one transaction.
// On success e and foods carry their generated ids.
func (r *Repository) Create(ctx context.Context, e *models.Event, foods []models.EventFood) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const qEvent = `INSERT INTO events (organizer_id, organizer_name, name, location, location_label, address, lat, lng,
			category, dietary_tags, description, featured_photo, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`
	tags := e.DietaryTags
	if tags == nil {
		tags = []string{}
	}
	err = tx.QueryRow(ctx, qEvent, e.OrganizerID, e.OrganizerName, e.Name, e.Location, e.LocationLabel, e.Address,
		e.Lat, e.Lng, e.Category, tags, e.Description, e.FeaturedPhoto, e.StartTime, e.EndTime).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	const qFood = `INSERT INTO event_foods (event_id, name, total_portions, per_student_limit, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	for i := range foods {
		f := &foods[i]
		f.EventID = e.ID
		f.Position = i
		if err := tx.QueryRow(ctx, qFood, f.EventID, f.Name, f.TotalPortions, f.PerStudentLimit, f.Position).Scan(&f.ID, &f.CreatedAt); err != nil {
			return fmt.Errorf("insert food item %q: %w", f.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var e models.Event
	err := scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id), &e)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns events matching f, newest start time first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.Event, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.OrganizerID != nil {
		conds = append(conds, "organizer_id = "+arg(*f.OrganizerID))
	}
	if f.Category != "" {
		conds = append(conds, "category = "+arg(f.Category))
	}
	if f.Location != "" {
		conds = append(conds, "location = "+arg(f.Location))
	}
	if f.Dietary != "" {
		conds = append(conds, arg(f.Dietary)+" = ANY(dietary_tags)")
	}
	if f.Query != "" {
		p := arg("%" + escapeLike(f.Query) + "%")
		conds = append(conds, "(name ILIKE "+p+" OR description ILIKE "+p+" OR location_label ILIKE "+p+")")
	}
	q := `SELECT ` + eventColumns + ` FROM events`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY start_time DESC"

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Event{}
	for rows.Next() {
		var e models.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Close moves end_time to at when the event is still running. It reports
// whether a row changed; an already-ended event is left untouched.
func (r *Repository) Close(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	const q = `UPDATE events SET end_time = $2 WHERE id = $1 AND end_time > $2`
	tag, err := r.pool.Exec(ctx, q, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetCoordinates stores geocoded coordinates unless the event already has some.
func (r *Repository) SetCoordinates(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	const q = `UPDATE events SET lat = $2, lng = $3 WHERE id = $1 AND lat IS NULL AND lng IS NULL`
	_, err := r.pool.Exec(ctx, q, id, lat, lng)
	return err
}

// OrganizerName resolves the display name for an organizer: the vendor
// profile's org_name, falling back to the account email.
func (r *Repository) OrganizerName(ctx context.Context, organizerID uuid.UUID) (string, error) {
	const q = `SELECT COALESCE(NULLIF(btrim(v.org_name), ''), u.email)
		FROM users u LEFT JOIN vendor_profiles v ON v.id = u.id
		WHERE u.id = $1`
	var name string
	err := r.pool.QueryRow(ctx, q, organizerID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrEventNotFound
	}
	return name, err
}

// Stats returns event counts for an organizer and its ten most recently created events.
func (r *Repository) Stats(ctx context.Context, organizerID uuid.UUID, now time.Time) (*Stats, error) {
	const qCounts = `SELECT COUNT(*),
			COUNT(*) FILTER (WHERE end_time >= $2),
			COUNT(*) FILTER (WHERE end_time < $2)
		FROM events WHERE organizer_id = $1`
	var s Stats
	if err := r.pool.QueryRow(ctx, qCounts, organizerID, now).Scan(&s.TotalEvents, &s.CurrentEvents, &s.PastEvents); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+eventColumns+` FROM events WHERE organizer_id = $1 ORDER BY created_at DESC LIMIT 10`, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	s.RecentEvents = []models.Event{}
	for rows.Next() {
		var e models.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		s.RecentEvents = append(s.RecentEvents, e)
	}
	return &s, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
