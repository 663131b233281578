package middleware

import (
	"slices"

	"github.com/gin-gonic/gin"

	apperrors "clustermap.io/clustermap/internal/pkg/errors"
)

// PermissionAdmin grants every permission.
const PermissionAdmin = "registry:admin"

// PermissionReload allows rebuilding the registry on demand.
const PermissionReload = "registry:reload"

// RequirePermission returns middleware that checks the token carries
// permission. It must run after JWTAuth.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		perms, exists := c.Get(ctxKeyPermissions)
		if !exists {
			abortWithError(c, apperrors.Forbidden(apperrors.CodeForbidden, "no permissions in context"))
			return
		}
		permList, ok := perms.([]string)
		if !ok {
			abortWithError(c, apperrors.Forbidden(apperrors.CodeForbidden, "invalid permissions type"))
			return
		}

		if slices.Contains(permList, PermissionAdmin) || slices.Contains(permList, permission) {
			c.Next()
			return
		}

		abortWithError(c, apperrors.Forbidden(apperrors.CodeForbidden, "insufficient permissions").
			WithParams(map[string]interface{}{"required": permission}))
	}
}
