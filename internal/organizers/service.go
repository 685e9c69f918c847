package organizers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sparkbytes/foodfinder/internal/models"
	"github.com/sparkbytes/foodfinder/pkg/utils"
)

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrAlreadyApproved     = errors.New("application is already approved")
	ErrInvalidTransition   = errors.New("application cannot move to that status")
	ErrMissingFields       = errors.New("Please fill out all required fields.")
)

// NextFunc decides the status an application moves to from its current one.
type NextFunc func(from models.ApplicationStatus) (models.ApplicationStatus, error)

// Organizer is an approved organizer as listed in the admin console.
type Organizer struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	OrgName      string    `json:"org_name"`
	ContactEmail string    `json:"contact_email"`
	Website      string    `json:"website"`
	Description  string    `json:"description"`
	ApprovedAt   time.Time `json:"approved_at"`
}

// Store is the application persistence.
type Store interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.OrganizerApplication, error)
	Submit(ctx context.Context, a *models.OrganizerApplication) error
	Transition(ctx context.Context, userID uuid.UUID, action models.ApplicationAction, next NextFunc) error
	ListByStatus(ctx context.Context, status models.ApplicationStatus) ([]models.OrganizerApplication, error)
	ListActive(ctx context.Context) ([]Organizer, error)
}

// Service runs the organizer application workflow.
type Service struct {
	store Store
}

// NewService creates an organizer workflow service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// SubmitInput is what an applicant sends.
type SubmitInput struct {
	OrgName      string `json:"orgName"`
	Description  string `json:"description"`
	Website      string `json:"website"`
	ContactEmail string `json:"contactEmail"`
}

// Submit creates or resubmits the caller's application as pending.
// accountEmail is used when no contact email is given.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID, accountEmail string, in SubmitInput) (*models.OrganizerApplication, error) {
	a := &models.OrganizerApplication{
		ID:           userID,
		Email:        accountEmail,
		OrgName:      strings.TrimSpace(in.OrgName),
		Description:  strings.TrimSpace(in.Description),
		Website:      utils.NormalizeWebsite(in.Website),
		ContactEmail: strings.TrimSpace(in.ContactEmail),
	}
	if a.ContactEmail == "" {
		a.ContactEmail = accountEmail
	}
	if a.OrgName == "" || a.Description == "" || a.ContactEmail == "" {
		return nil, ErrMissingFields
	}

	current := models.ApplicationNone
	existing, err := s.store.Get(ctx, userID)
	switch {
	case err == nil:
		current = existing.Status
	case !errors.Is(err, ErrApplicationNotFound):
		return nil, err
	}
	if _, ok := models.NextApplicationStatus(current, models.ActionSubmit); !ok {
		return nil, ErrAlreadyApproved
	}
	if err := s.store.Submit(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Get returns the caller's application.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*models.OrganizerApplication, error) {
	return s.store.Get(ctx, userID)
}

// Approve makes a pending applicant an active organizer.
func (s *Service) Approve(ctx context.Context, userID uuid.UUID) error {
	return s.apply(ctx, userID, models.ActionApprove)
}

// Reject declines a pending application.
func (s *Service) Reject(ctx context.Context, userID uuid.UUID) error {
	return s.apply(ctx, userID, models.ActionReject)
}

// Revoke deactivates an approved organizer and removes the organizer role.
func (s *Service) Revoke(ctx context.Context, userID uuid.UUID) error {
	return s.apply(ctx, userID, models.ActionRevoke)
}

// Pending lists applications waiting for review, oldest first.
func (s *Service) Pending(ctx context.Context) ([]models.OrganizerApplication, error) {
	return s.store.ListByStatus(ctx, models.ApplicationPending)
}

// ByStatus lists applications in status, oldest first.
func (s *Service) ByStatus(ctx context.Context, status models.ApplicationStatus) ([]models.OrganizerApplication, error) {
	return s.store.ListByStatus(ctx, status)
}

// Active lists approved organizers with an active vendor profile.
func (s *Service) Active(ctx context.Context) ([]Organizer, error) {
	return s.store.ListActive(ctx)
}

func (s *Service) apply(ctx context.Context, userID uuid.UUID, action models.ApplicationAction) error {
	return s.store.Transition(ctx, userID, action, func(from models.ApplicationStatus) (models.ApplicationStatus, error) {
		to, ok := models.NextApplicationStatus(from, action)
		if !ok {
			return "", ErrInvalidTransition
		}
		return to, nil
	})
}
