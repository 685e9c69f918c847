package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus is the state of an organizer application.
type ApplicationStatus string

const (
	ApplicationNone     ApplicationStatus = "" // no application on file
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Valid reports whether s is a stored application status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationApproved, ApplicationRejected:
		return true
	}
	return false
}

// ApplicationAction is an operation that moves an application between states.
type ApplicationAction string

const (
	ActionSubmit  ApplicationAction = "submit"
	ActionApprove ApplicationAction = "approve"
	ActionReject  ApplicationAction = "reject"
	ActionRevoke  ApplicationAction = "revoke"
)

type applicationEdge struct {
	from   ApplicationStatus
	action ApplicationAction
}

var applicationTransitions = map[applicationEdge]ApplicationStatus{
	{ApplicationNone, ActionSubmit}:     ApplicationPending,
	{ApplicationPending, ActionSubmit}:  ApplicationPending,
	{ApplicationRejected, ActionSubmit}: ApplicationPending,
	{ApplicationPending, ActionApprove}: ApplicationApproved,
	{ApplicationPending, ActionReject}:  ApplicationRejected,
	{ApplicationApproved, ActionRevoke}: ApplicationRejected,
}

// NextApplicationStatus returns the status reached by applying action to an
// application in status from. ok is false when the transition is not allowed.
func NextApplicationStatus(from ApplicationStatus, action ApplicationAction) (next ApplicationStatus, ok bool) {
	next, ok = applicationTransitions[applicationEdge{from, action}]
	return next, ok
}

// OrganizerApplication is a user's request to become an organizer.
// ID equals the applicant's user id.
type OrganizerApplication struct {
	ID           uuid.UUID         `json:"id"`
	Email        string            `json:"email,omitempty"`
	OrgName      string            `json:"org_name"`
	Description  string            `json:"description"`
	Website      string            `json:"website"`
	ContactEmail string            `json:"contact_email"`
	Status       ApplicationStatus `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
