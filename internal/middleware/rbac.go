package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/registrar-docs-api/internal/models"
	appErrors "github.com/noah-isme/registrar-docs-api/pkg/errors"
	"github.com/noah-isme/registrar-docs-api/pkg/response"
)

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...models.UserRole) gin.HandlerFunc {
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedRoles[role] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// AdminOnly allows registrar staff roles.
func AdminOnly() gin.HandlerFunc {
	return RBAC(models.RoleAdmin, models.RoleSuperAdmin)
}

// StudentOnly allows the student role.
func StudentOnly() gin.HandlerFunc {
	return RBAC(models.RoleStudent)
}
