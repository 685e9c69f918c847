package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sparkbytes/foodfinder/internal/models"
	"github.com/sparkbytes/foodfinder/pkg/response"
)

// RequireRole returns a middleware that allows callers holding any of roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); !ok {
			response.Unauthorized(c, "Unauthorized")
			c.Abort()
			return
		}
		if !UserRoles(c).HasAny(roles...) {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin is RequireRole(admin) answering in the admin console envelope.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); !ok {
			response.AdminError(c, http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}
		if !UserRoles(c).Has(models.RoleAdmin) {
			response.AdminError(c, http.StatusForbidden, "Forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}
