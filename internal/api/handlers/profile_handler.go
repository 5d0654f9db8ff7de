package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/skillradar/internal/services"
)

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	users services.UserService
}

func NewProfileHandler(users services.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

func (h *ProfileHandler) Me(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	p, err := h.users.Get(c.Request.Context(), caller, caller.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	JobTitle  *string `json:"job_title,omitempty"`
}

func (h *ProfileHandler) Update(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !bindJSON(c, "ProfileHandler.Update", &req) {
		return
	}

	p, err := h.users.UpdateMe(c.Request.Context(), caller, services.UpdateMeInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		JobTitle:  req.JobTitle,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}
