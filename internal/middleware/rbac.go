package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/consultant-content-api/internal/models"
	appErrors "github.com/noah-isme/consultant-content-api/pkg/errors"
	"github.com/noah-isme/consultant-content-api/pkg/response"
)

// RequireRoles enforces role-based access control. It must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := CurrentUser(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" cannot access this resource"))
			c.Abort()
			return
		}
		c.Next()
	}
}
