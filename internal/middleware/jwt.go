package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sparkbytes/foodfinder/internal/auth"
	"github.com/sparkbytes/foodfinder/internal/models"
	"github.com/sparkbytes/foodfinder/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = auth.ContextUserID
	// ContextUserRoles is the key for the user's role set in gin context.
	ContextUserRoles = "user_roles"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// RoleSource returns the current role set of a user.
type RoleSource interface {
	Roles(ctx context.Context, id uuid.UUID) (models.Roles, error)
}

// JWT returns a middleware that validates the bearer token, loads the caller's
// roles from roles and sets both in context.
func JWT(jwtService *auth.JWTService, roles RoleSource, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "Unauthorized")
			c.Abort()
			return
		}
		if !authenticate(c, header, jwtService, roles, logger) {
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalJWT authenticates the caller when an Authorization header is
// present and lets anonymous requests through untouched.
func OptionalJWT(jwtService *auth.JWTService, roles RoleSource, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		if !authenticate(c, header, jwtService, roles, logger) {
			c.Abort()
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, header string, jwtService *auth.JWTService, roles RoleSource, logger *zap.Logger) bool {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		response.Unauthorized(c, "invalid authorization header")
		return false
	}
	claims, err := jwtService.Validate(parts[1])
	if err != nil {
		response.Unauthorized(c, "invalid or expired token")
		return false
	}
	set, err := roles.Roles(c.Request.Context(), claims.UserID)
	if errors.Is(err, auth.ErrUserNotFound) {
		response.Unauthorized(c, "Unauthorized")
		return false
	}
	if err != nil {
		logger.Error("load roles failed", zap.Error(err), zap.String("user_id", claims.UserID.String()))
		response.Internal(c, "failed to load user")
		return false
	}
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUserEmail, claims.Email)
	c.Set(ContextUserRoles, set)
	return true
}

// UserID returns the authenticated caller's id, if any.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// UserEmail returns the authenticated caller's email.
func UserEmail(c *gin.Context) string {
	return c.GetString(ContextUserEmail)
}

// UserRoles returns the authenticated caller's role set.
func UserRoles(c *gin.Context) models.Roles {
	v, _ := c.Get(ContextUserRoles)
	roles, _ := v.(models.Roles)
	return roles
}
