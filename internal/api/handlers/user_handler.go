package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/skillradar/internal/models"
	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/services"
)

type UserHandler struct {
	svc services.UserService
}

func NewUserHandler(svc services.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

type CreateUserRequest struct {
	Email      string      `json:"email" binding:"required,email"`
	FirstName  string      `json:"first_name" binding:"required"`
	LastName   string      `json:"last_name" binding:"required"`
	Role       models.Role `json:"role" binding:"required"`
	JobTitle   string      `json:"job_title"`
	ManagerID  *string     `json:"manager_id"`
	LocationID *string     `json:"location_id"`
}

func (h *UserHandler) Create(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req CreateUserRequest
	if !bindJSON(c, "UserHandler.Create", &req) {
		return
	}
	p, err := h.svc.Create(c.Request.Context(), caller, services.CreateUserInput{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       req.Role,
		JobTitle:   req.JobTitle,
		ManagerID:  req.ManagerID,
		LocationID: req.LocationID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

type UpdateUserRequest struct {
	UserID     string       `json:"user_id" binding:"required"`
	Role       *models.Role `json:"role"`
	IsActive   *bool        `json:"is_active"`
	ManagerID  *string      `json:"manager_id"`
	LocationID *string      `json:"location_id"`
	JobTitle   *string      `json:"job_title"`
}

func (h *UserHandler) Update(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !bindJSON(c, "UserHandler.Update", &req) {
		return
	}
	p, err := h.svc.Update(c.Request.Context(), caller, services.UpdateUserInput{
		UserID:     req.UserID,
		Role:       req.Role,
		IsActive:   req.IsActive,
		ManagerID:  req.ManagerID,
		LocationID: req.LocationID,
		JobTitle:   req.JobTitle,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *UserHandler) List(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	res, err := h.svc.List(c.Request.Context(), caller, pgrepo.ProfileFilter{
		Role:   models.Role(c.Query("role")),
		Active: queryBool(c, "active"),
		Query:  c.Query("q"),
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *UserHandler) Get(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *UserHandler) Team(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	rows, err := h.svc.Team(c.Request.Context(), caller)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

type AssignJobProfileRequest struct {
	JobProfileID string `json:"job_profile_id" binding:"required"`
}

func (h *UserHandler) AssignJobProfile(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req AssignJobProfileRequest
	if !bindJSON(c, "UserHandler.AssignJobProfile", &req) {
		return
	}
	a, err := h.svc.AssignJobProfile(c.Request.Context(), caller, c.Param("id"), req.JobProfileID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *UserHandler) UnassignJobProfile(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	if err := h.svc.UnassignJobProfile(c.Request.Context(), caller, c.Param("id"), c.Param("job_profile_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) JobProfiles(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	rows, err := h.svc.JobProfiles(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}
