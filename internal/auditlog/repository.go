package auditlog

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one row of the audit_logs table.
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	ActorID    *uuid.UUID      `json:"actor_id"`
	ActorEmail string          `json:"actor_email,omitempty"`
	TargetID   *uuid.UUID      `json:"target_id"`
	Action     string          `json:"action"`
	Details    json.RawMessage `json:"details"`
	IPAddress  string          `json:"ip_address"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Filter narrows an audit log query.
type Filter struct {
	Action string
	Status string
	Page   int
	Limit  int
}

// Repository persists audit log entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an audit log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an entry.
func (r *Repository) Create(ctx context.Context, e *Entry) error {
	const q = `INSERT INTO audit_logs (actor_id, target_id, action, details, ip_address, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	details := e.Details
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}
	return r.pool.QueryRow(ctx, q, e.ActorID, e.TargetID, e.Action, string(details), e.IPAddress, e.Status).
		Scan(&e.ID, &e.CreatedAt)
}

// List returns entries matching f, newest first, plus the total match count.
func (r *Repository) List(ctx context.Context, f Filter) ([]Entry, int64, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.Action != "" {
		args = append(args, f.Action)
		conds = append(conds, "l.action = $"+strconv.Itoa(len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, "l.status = $"+strconv.Itoa(len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs l`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	q := `SELECT l.id, l.actor_id, COALESCE(u.email, ''), l.target_id, l.action, l.details::text, l.ip_address, l.status, l.created_at
		FROM audit_logs l LEFT JOIN users u ON u.id = l.actor_id` + where +
		` ORDER BY l.created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list := []Entry{}
	for rows.Next() {
		var e Entry
		var details string
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorEmail, &e.TargetID, &e.Action, &details, &e.IPAddress, &e.Status, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.Details = json.RawMessage(details)
		list = append(list, e)
	}
	return list, total, rows.Err()
}
