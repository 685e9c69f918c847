package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparkbytes/foodfinder/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

// Repository handles student and vendor profile persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a profile repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Student returns the student profile of userID.
func (r *Repository) Student(ctx context.Context, userID uuid.UUID) (*models.StudentProfile, error) {
	const q = `SELECT id, display_name, bio, major, year, dietary_preferences, notification_enabled, avatar_url, updated_at
		FROM student_profiles WHERE id = $1`
	var p models.StudentProfile
	err := r.pool.QueryRow(ctx, q, userID).Scan(&p.ID, &p.DisplayName, &p.Bio, &p.Major, &p.Year,
		&p.DietaryPreferences, &p.NotificationEnabled, &p.AvatarURL, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get student profile: %w", err)
	}
	return &p, nil
}

// SaveStudent upserts the editable student fields. Blank strings are stored as NULL.
func (r *Repository) SaveStudent(ctx context.Context, p *models.StudentProfile) error {
	const q = `INSERT INTO student_profiles (id, display_name, bio, major, year, dietary_preferences, notification_enabled)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			bio = EXCLUDED.bio,
			major = EXCLUDED.major,
			year = EXCLUDED.year,
			dietary_preferences = EXCLUDED.dietary_preferences,
			notification_enabled = EXCLUDED.notification_enabled,
			updated_at = NOW()
		RETURNING display_name, bio, major, year, avatar_url, updated_at`
	prefs := p.DietaryPreferences
	if prefs == nil {
		prefs = []string{}
	}
	err := r.pool.QueryRow(ctx, q, p.ID, deref(p.DisplayName), deref(p.Bio), deref(p.Major), deref(p.Year), prefs, p.NotificationEnabled).
		Scan(&p.DisplayName, &p.Bio, &p.Major, &p.Year, &p.AvatarURL, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save student profile: %w", err)
	}
	p.DietaryPreferences = prefs
	return nil
}

// Vendor returns the vendor profile of userID.
func (r *Repository) Vendor(ctx context.Context, userID uuid.UUID) (*models.VendorProfile, error) {
	const q = `SELECT id, org_name, contact_email, website, description, avatar_url, is_active, updated_at
		FROM vendor_profiles WHERE id = $1`
	var p models.VendorProfile
	err := r.pool.QueryRow(ctx, q, userID).Scan(&p.ID, &p.OrgName, &p.ContactEmail, &p.Website, &p.Description,
		&p.AvatarURL, &p.IsActive, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get vendor profile: %w", err)
	}
	return &p, nil
}

// SaveVendor upserts the editable vendor fields. is_active is left untouched;
// it only changes through the organizer review workflow.
func (r *Repository) SaveVendor(ctx context.Context, p *models.VendorProfile) error {
	const q = `INSERT INTO vendor_profiles (id, org_name, contact_email, website, description)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			org_name = EXCLUDED.org_name,
			contact_email = EXCLUDED.contact_email,
			website = EXCLUDED.website,
			description = EXCLUDED.description,
			updated_at = NOW()
		RETURNING avatar_url, is_active, updated_at`
	err := r.pool.QueryRow(ctx, q, p.ID, p.OrgName, p.ContactEmail, p.Website, p.Description).
		Scan(&p.AvatarURL, &p.IsActive, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save vendor profile: %w", err)
	}
	return nil
}

// SetAvatar stores url on the vendor profile when vendor is true, else on the
// student profile. A missing student profile row is created.
func (r *Repository) SetAvatar(ctx context.Context, userID uuid.UUID, url string, vendor bool) error {
	q := `INSERT INTO student_profiles (id, avatar_url) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET avatar_url = EXCLUDED.avatar_url, updated_at = NOW()`
	if vendor {
		q = `UPDATE vendor_profiles SET avatar_url = $2, updated_at = NOW() WHERE id = $1`
	}
	tag, err := r.pool.Exec(ctx, q, userID, url)
	if err != nil {
		return fmt.Errorf("set avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
