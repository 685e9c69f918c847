package auditlog

import (
	"context"
	"encoding/json"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Actions recorded by the admin console.
const (
	ActionOrganizerApproved = "ORGANIZER_APPROVED"
	ActionOrganizerRejected = "ORGANIZER_REJECTED"
	ActionOrganizerRevoked  = "ORGANIZER_REVOKED"

	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Store is the audit log persistence.
type Store interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, f Filter) ([]Entry, int64, error)
}

// Page is a page of audit entries.
type Page struct {
	Data       []Entry `json:"data"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"total_pages"`
}

// Service records and lists audit entries.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates an audit log service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Record writes an entry. Failures are logged and never returned, so an
// audit problem does not undo the action being audited.
func (s *Service) Record(ctx context.Context, actorID, targetID uuid.UUID, action string, details map[string]interface{}, ip, status string) {
	if details == nil {
		details = map[string]interface{}{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		raw = []byte(`{}`)
	}
	e := &Entry{Action: action, Details: raw, IPAddress: ip, Status: status}
	if actorID != uuid.Nil {
		e.ActorID = &actorID
	}
	if targetID != uuid.Nil {
		e.TargetID = &targetID
	}
	if err := s.store.Create(ctx, e); err != nil {
		s.logger.Error("write audit log failed", zap.Error(err), zap.String("action", action))
	}
}

// List returns a page of entries, newest first.
func (s *Service) List(ctx context.Context, f Filter) (*Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	list, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Page{
		Data:       list,
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(f.Limit))),
	}, nil
}
