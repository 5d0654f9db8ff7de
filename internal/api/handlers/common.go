package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/skillradar/internal/api/middleware"
	"github.com/yoockh/skillradar/internal/services"
	"github.com/yoockh/skillradar/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

// writeError maps err to its HTTP status. INTERNAL messages are replaced by
// the status text; the cause is attached to the gin context for the logger.
func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}

	var ae *utils.AppError
	if errors.As(err, &ae) && ae.Code != utils.CodeInternal {
		c.JSON(status, APIError{
			Code:    ae.Code,
			Message: ae.Message,
		})
		return
	}

	c.JSON(status, APIError{
		Code:    utils.CodeInternal,
		Message: http.StatusText(status),
	})
}

func requireCaller(c *gin.Context) (services.Caller, bool) {
	if caller, ok := middleware.CallerFrom(c); ok {
		return caller, true
	}
	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "non authentifié", nil))
	return services.Caller{}, false
}

func bindJSON(c *gin.Context, op string, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "corps de requête invalide", err))
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func queryBool(c *gin.Context, key string) *bool {
	v, err := strconv.ParseBool(c.Query(key))
	if err != nil {
		return nil
	}
	return &v
}
