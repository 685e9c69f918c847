package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		ok    bool
	}{
		{"terrier@bu.edu", true},
		{"first.last+food@BU.EDU", true},
		{"terrier@gmail.com", false},
		{"terrier@bu.edu.evil.com", false},
		{"@bu.edu", false},
		{"two words@bu.edu", false},
		{"no-at-sign", false},
	}
	for _, tt := range tests {
		err := ValidateEmail(tt.email, "bu.edu")
		if tt.ok {
			assert.NoError(t, err, tt.email)
		} else {
			assert.ErrorIs(t, err, ErrEmailDomain, tt.email)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Terrier2026"))
	for _, pw := range []string{"Ab1", "alllowercase1", "ALLUPPERCASE1", "NoDigitsHere", "Aa1" + strings.Repeat("x", 70)} {
		assert.ErrorIs(t, ValidatePassword(pw), ErrWeakPassword, pw)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 1)
	id := uuid.New()

	token, err := svc.Generate(id, "terrier@bu.edu")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "terrier@bu.edu", claims.Email)

	_, err = NewJWTService("other", 1).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTExpired(t *testing.T) {
	svc := NewJWTService("secret", 1)
	token, err := svc.Generate(uuid.New(), "terrier@bu.edu")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
