package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/skillradar/internal/services"
)

type LocationHandler struct {
	svc services.LocationService
}

func NewLocationHandler(svc services.LocationService) *LocationHandler {
	return &LocationHandler{svc: svc}
}

func (h *LocationHandler) List(c *gin.Context) {
	rows, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

type CreateLocationRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

func (h *LocationHandler) Create(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req CreateLocationRequest
	if !bindJSON(c, "LocationHandler.Create", &req) {
		return
	}
	l, err := h.svc.Create(c.Request.Context(), caller, req.Name, req.Address)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}
