package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNormalizeWebsite(t *testing.T) {
	assert.Equal(t, "", NormalizeWebsite("   "))
	assert.Equal(t, "https://bu.edu/dining", NormalizeWebsite(" bu.edu/dining "))
	assert.Equal(t, "http://example.org", NormalizeWebsite("http://example.org"))
	assert.Equal(t, "HTTPS://EXAMPLE.ORG", NormalizeWebsite("HTTPS://EXAMPLE.ORG"))
}

func TestPasswordHash(t *testing.T) {
	PasswordCost = bcrypt.MinCost
	defer func() { PasswordCost = bcrypt.DefaultCost }()

	hash, err := HashPassword("Terrier2026")
	require.NoError(t, err)
	assert.NotEqual(t, "Terrier2026", hash)
	assert.True(t, CheckPassword("Terrier2026", hash))
	assert.False(t, CheckPassword("terrier2026", hash))
}

func TestPasswordHashEdges(t *testing.T) {
	assert.False(t, CheckPassword("anything", ""))
	_, err := HashPassword(strings.Repeat("a", 73))
	assert.Error(t, err)
}
