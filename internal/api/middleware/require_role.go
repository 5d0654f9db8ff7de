package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/utils"
)

// RequireRole lets the request through only when the loaded caller holds one
// of the allowed roles.
func RequireRole(allowed ...models.Role) gin.HandlerFunc {
	allow := map[models.Role]struct{}{}
	for _, r := range allowed {
		allow[r] = struct{}{}
	}

	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			abort(c, http.StatusUnauthorized, utils.CodeUnauthorized, "non authentifié")
			return
		}
		if _, ok := allow[caller.Role]; !ok {
			abort(c, http.StatusForbidden, utils.CodeForbidden, "accès refusé")
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc { return RequireRole(models.RoleSuperAdmin) }

// RequireEvaluator admits every role that may score someone else.
func RequireEvaluator() gin.HandlerFunc {
	return RequireRole(models.RoleSuperAdmin, models.RoleSkillMaster, models.RoleManager)
}
