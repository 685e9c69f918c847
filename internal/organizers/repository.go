package organizers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparkbytes/foodfinder/internal/models"
)

// Repository persists organizer applications and applies their side effects
// on vendor profiles and user roles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organizer repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const applicationColumns = `a.id, u.email, a.org_name, a.description, a.website, a.contact_email, a.status, a.created_at, a.updated_at`

func scanApplication(row pgx.Row, a *models.OrganizerApplication) error {
	return row.Scan(&a.ID, &a.Email, &a.OrgName, &a.Description, &a.Website, &a.ContactEmail, &a.Status, &a.CreatedAt, &a.UpdatedAt)
}

// Get returns the application of a user.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*models.OrganizerApplication, error) {
	q := `SELECT ` + applicationColumns + ` FROM organizer_applications a JOIN users u ON u.id = a.id WHERE a.id = $1`
	var a models.OrganizerApplication
	err := scanApplication(r.pool.QueryRow(ctx, q, userID), &a)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Submit upserts the application with status pending. The row is left alone
// when it is already approved, in which case ErrAlreadyApproved is returned.
func (r *Repository) Submit(ctx context.Context, a *models.OrganizerApplication) error {
	const q = `INSERT INTO organizer_applications (id, org_name, description, website, contact_email, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		ON CONFLICT (id) DO UPDATE SET
			org_name = EXCLUDED.org_name,
			description = EXCLUDED.description,
			website = EXCLUDED.website,
			contact_email = EXCLUDED.contact_email,
			status = 'pending',
			updated_at = NOW()
		WHERE organizer_applications.status <> 'approved'
		RETURNING status, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, a.ID, a.OrgName, a.Description, a.Website, a.ContactEmail).
		Scan(&a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAlreadyApproved
	}
	return err
}

// Transition locks the application, asks next for the target status and
// applies it together with the vendor profile and role changes it implies.
func (r *Repository) Transition(ctx context.Context, userID uuid.UUID, action models.ApplicationAction, next NextFunc) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var a models.OrganizerApplication
	const qLock = `SELECT id, org_name, description, website, contact_email, status
		FROM organizer_applications WHERE id = $1 FOR UPDATE`
	err = tx.QueryRow(ctx, qLock, userID).Scan(&a.ID, &a.OrgName, &a.Description, &a.Website, &a.ContactEmail, &a.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrApplicationNotFound
	}
	if err != nil {
		return fmt.Errorf("lock application: %w", err)
	}

	to, err := next(a.Status)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE organizer_applications SET status = $2, updated_at = NOW() WHERE id = $1`, userID, string(to)); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	if to == models.ApplicationApproved {
		const qVendor = `INSERT INTO vendor_profiles (id, org_name, contact_email, website, description, is_active)
			VALUES ($1, $2, $3, $4, $5, TRUE)
			ON CONFLICT (id) DO UPDATE SET
				org_name = EXCLUDED.org_name,
				contact_email = EXCLUDED.contact_email,
				website = EXCLUDED.website,
				description = EXCLUDED.description,
				is_active = TRUE,
				updated_at = NOW()`
		if _, err := tx.Exec(ctx, qVendor, a.ID, a.OrgName, a.ContactEmail, a.Website, a.Description); err != nil {
			return fmt.Errorf("activate vendor profile: %w", err)
		}
		const qRole = `UPDATE users SET roles = array_append(roles, 'organizer'), updated_at = NOW()
			WHERE id = $1 AND NOT ('organizer' = ANY(roles))`
		if _, err := tx.Exec(ctx, qRole, userID); err != nil {
			return fmt.Errorf("grant organizer role: %w", err)
		}
	} else {
		if _, err := tx.Exec(ctx, `UPDATE vendor_profiles SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, userID); err != nil {
			return fmt.Errorf("deactivate vendor profile: %w", err)
		}
		const qRole = `UPDATE users SET roles = array_remove(roles, 'organizer'), updated_at = NOW() WHERE id = $1`
		if _, err := tx.Exec(ctx, qRole, userID); err != nil {
			return fmt.Errorf("revoke organizer role: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListByStatus returns applications in status, oldest first.
func (r *Repository) ListByStatus(ctx context.Context, status models.ApplicationStatus) ([]models.OrganizerApplication, error) {
	q := `SELECT ` + applicationColumns + ` FROM organizer_applications a JOIN users u ON u.id = a.id
		WHERE a.status = $1 ORDER BY a.created_at ASC`
	rows, err := r.pool.Query(ctx, q, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.OrganizerApplication{}
	for rows.Next() {
		var a models.OrganizerApplication
		if err := scanApplication(rows, &a); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// ListActive returns approved organizers whose vendor profile is active.
func (r *Repository) ListActive(ctx context.Context) ([]Organizer, error) {
	const q = `SELECT v.id, u.email, v.org_name, v.contact_email, v.website, v.description, a.updated_at
		FROM vendor_profiles v
		JOIN organizer_applications a ON a.id = v.id
		JOIN users u ON u.id = v.id
		WHERE a.status = 'approved' AND v.is_active
		ORDER BY v.org_name`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Organizer{}
	for rows.Next() {
		var o Organizer
		if err := rows.Scan(&o.ID, &o.Email, &o.OrgName, &o.ContactEmail, &o.Website, &o.Description, &o.ApprovedAt); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}
