package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aura-webinar/privatevc/pkg/response"
)

// RoleAdmin may manage tickets, monitors and sessions of a scope.
const RoleAdmin = "admin"

// RequireRole returns a middleware that allows only the given roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		roleVal, ok := c.Get(ContextUserRole)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		role, _ := roleVal.(string)
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "administrator only")
			c.Abort()
			return
		}
		c.Next()
	}
}
