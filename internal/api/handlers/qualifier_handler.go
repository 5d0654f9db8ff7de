package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/services"
)

type QualifierHandler struct {
	svc services.QualifierService
}

func NewQualifierHandler(svc services.QualifierService) *QualifierHandler {
	return &QualifierHandler{svc: svc}
}

type QualifierOptionRequest struct {
	Label     string  `json:"label" binding:"required"`
	Value     float64 `json:"value"`
	SortOrder int     `json:"sort_order"`
}

type QualifierRequest struct {
	Name        string                   `json:"name" binding:"required"`
	Description string                   `json:"description"`
	Type        models.QualifierType     `json:"type" binding:"required"`
	SortOrder   int                      `json:"sort_order"`
	Options     []QualifierOptionRequest `json:"options" binding:"dive"`
}

func (r QualifierRequest) input() services.QualifierInput {
	in := services.QualifierInput{
		Name:        r.Name,
		Description: r.Description,
		Type:        r.Type,
		SortOrder:   r.SortOrder,
	}
	for _, o := range r.Options {
		in.Options = append(in.Options, services.OptionInput{Label: o.Label, Value: o.Value, SortOrder: o.SortOrder})
	}
	return in
}

func (h *QualifierHandler) List(c *gin.Context) {
	rows, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

func (h *QualifierHandler) Get(c *gin.Context) {
	q, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *QualifierHandler) Create(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req QualifierRequest
	if !bindJSON(c, "QualifierHandler.Create", &req) {
		return
	}
	q, err := h.svc.Create(c.Request.Context(), caller, req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

func (h *QualifierHandler) Update(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req QualifierRequest
	if !bindJSON(c, "QualifierHandler.Update", &req) {
		return
	}
	q, err := h.svc.Update(c.Request.Context(), caller, c.Param("id"), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *QualifierHandler) Delete(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
