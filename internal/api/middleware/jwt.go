package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yoockh/skillradar/internal/utils"
)

const (
	CtxUserID    = "user_id"
	CtxCaller    = "caller"
	CtxRequestID = "request_id"
)

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func abort(c *gin.Context, status int, code utils.Code, msg string) {
	c.AbortWithStatusJSON(status, apiError{Code: code, Message: msg})
}

// JWTAuth validates the HS256 bearer token issued by AuthService.Login and
// stores its subject under CtxUserID. An empty issuer skips the iss check.
func JWTAuth(secret []byte, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			abort(c, http.StatusInternalServerError, utils.CodeInternal, "JWT_SECRET is not set")
			return
		}

		auth := c.GetHeader("Authorization")
		raw := ""
		if strings.HasPrefix(auth, "Bearer ") {
			raw = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		} else if c.IsWebsocket() {
			// browsers cannot set headers on a websocket handshake
			raw = c.Query("token")
		}
		if raw == "" {
			abort(c, http.StatusUnauthorized, utils.CodeUnauthorized, "jeton manquant")
			return
		}

		opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
		if issuer != "" {
			opts = append(opts, jwt.WithIssuer(issuer))
		}
		claims := &jwt.RegisteredClaims{}
		tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return secret, nil
		}, opts...)
		if err != nil || tok == nil || !tok.Valid {
			abort(c, http.StatusUnauthorized, utils.CodeUnauthorized, "jeton invalide")
			return
		}
		if claims.Subject == "" {
			abort(c, http.StatusUnauthorized, utils.CodeUnauthorized, "jeton invalide")
			return
		}

		c.Set(CtxUserID, claims.Subject)
		c.Next()
	}
}
