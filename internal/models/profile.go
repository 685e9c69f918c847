package models

import (
	"time"

	"github.com/google/uuid"
)

// StudentProfile holds the student-facing profile of a user.
type StudentProfile struct {
	ID                  uuid.UUID `json:"id"`
	DisplayName         *string   `json:"display_name"`
	Bio                 *string   `json:"bio"`
	Major               *string   `json:"major"`
	Year                *string   `json:"year"`
	DietaryPreferences  []string  `json:"dietary_preferences"`
	NotificationEnabled bool      `json:"notification_enabled"`
	AvatarURL           *string   `json:"avatar_url"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// VendorProfile holds the organizer-facing profile. IsActive is false once
// an organizer has been revoked.
type VendorProfile struct {
	ID           uuid.UUID `json:"id"`
	OrgName      string    `json:"org_name"`
	ContactEmail string    `json:"contact_email"`
	Website      string    `json:"website"`
	Description  string    `json:"description"`
	AvatarURL    *string   `json:"avatar_url"`
	IsActive     bool      `json:"is_active"`
	UpdatedAt    time.Time `json:"updated_at"`
}
