package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/services"
	"github.com/yoockh/skillradar/internal/utils"
)

// LoadCaller re-reads the profile behind the token on every request so role
// changes and deactivations apply immediately. It must run after JWTAuth.
func LoadCaller(profiles pgrepo.ProfileRepository, l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(CtxUserID)
		if userID == "" {
			abort(c, http.StatusUnauthorized, utils.CodeUnauthorized, "non authentifié")
			return
		}

		p, err := profiles.GetByID(c.Request.Context(), userID)
		switch {
		case errors.Is(err, utils.ErrNotFound):
			abort(c, http.StatusUnauthorized, utils.CodeUnauthorized, "profil introuvable")
			return
		case err != nil:
			l.WithError(err).WithField("user_id", userID).Error("load caller failed")
			abort(c, http.StatusInternalServerError, utils.CodeInternal, http.StatusText(http.StatusInternalServerError))
			return
		case !p.IsActive:
			abort(c, http.StatusForbidden, utils.CodeForbidden, "compte désactivé")
			return
		}

		c.Set(CtxCaller, services.CallerOf(p))
		c.Next()
	}
}

func CallerFrom(c *gin.Context) (services.Caller, bool) {
	v, ok := c.Get(CtxCaller)
	if !ok {
		return services.Caller{}, false
	}
	caller, ok := v.(services.Caller)
	return caller, ok && caller.ID != ""
}
