package middleware

import (
	"errors"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/skillradar/internal/utils"
)

const HeaderRequestID = "X-Request-Id"

// client supplied ids are echoed back only when they look like ids
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{8,64}$`)

func requestID(c *gin.Context) string {
	if id := c.GetHeader(HeaderRequestID); requestIDPattern.MatchString(id) {
		return id
	}
	return uuid.NewString()
}

// RequestLogger tags every request with an id and writes one access line
// once the handler chain is done. The level follows the response status.
func RequestLogger(l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := requestID(c)
		c.Header(HeaderRequestID, id)
		c.Set(CtxRequestID, id)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := logrus.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"route":      route,
			"status":     c.Writer.Status(),
			"bytes":      c.Writer.Size(),
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
		}
		if caller, ok := CallerFrom(c); ok {
			fields["user_id"] = caller.ID
			fields["role"] = string(caller.Role)
		}
		if err := c.Errors.Last(); err != nil {
			fields["error"] = err.Err.Error()
			var ae *utils.AppError
			if errors.As(err.Err, &ae) {
				fields["op"] = ae.Op
			}
		}

		l.WithFields(fields).Log(accessLevel(c.Writer.Status()), "request")
	}
}

func accessLevel(status int) logrus.Level {
	switch {
	case status >= 500:
		return logrus.ErrorLevel
	case status >= 400:
		return logrus.WarnLevel
	default:
		return logrus.InfoLevel
	}
}
