package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/skillradar/internal/services"
)

type AuthHandler struct {
	svc services.AuthService
}

func NewAuthHandler(svc services.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, "AuthHandler.Login", &req) {
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ForgotPassword always answers 202, even when queueing the mail failed; the
// failure only reaches the request log.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !bindJSON(c, "AuthHandler.ForgotPassword", &req) {
		return
	}
	if err := h.svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		_ = c.Error(err)
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Si un compte existe, un email a été envoyé"})
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, "AuthHandler.ResetPassword", &req) {
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
