package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparkbytes/foodfinder/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

const uniqueViolation = "23505"

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, password_hash, roles, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var roles []string
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &roles, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.Roles = models.NewRoles(roles...)
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email (case-insensitive).
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

// Roles returns the current role set of a user.
func (r *Repository) Roles(ctx context.Context, id uuid.UUID) (models.Roles, error) {
	var roles []string
	err := r.pool.QueryRow(ctx, `SELECT roles FROM users WHERE id = $1`, id).Scan(&roles)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return models.NewRoles(roles...), nil
}

// Create inserts a new student account together with its empty student profile.
func (r *Repository) Create(ctx context.Context, email, passwordHash string) (*models.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO users (email, password_hash, roles)
		VALUES (lower($1), $2, $3)
		RETURNING ` + userColumns
	u, err := scanUser(tx.QueryRow(ctx, q, email, passwordHash, models.Roles{models.RoleStudent}.Strings()))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO student_profiles (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, u.ID); err != nil {
		return nil, fmt.Errorf("insert student profile: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return u, nil
}

// GrantAdmin adds the admin role to every existing account whose email is in emails.
// It returns the number of accounts that changed.
func (r *Repository) GrantAdmin(ctx context.Context, emails []string) (int64, error) {
	if len(emails) == 0 {
		return 0, nil
	}
	const q = `UPDATE users
		SET roles = array_append(roles, 'admin'), updated_at = NOW()
		WHERE lower(email) = ANY($1) AND NOT ('admin' = ANY(roles))`
	tag, err := r.pool.Exec(ctx, q, emails)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
