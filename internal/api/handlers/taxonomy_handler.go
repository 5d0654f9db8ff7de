package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	pgrepo "github.com/yoockh/skillradar/internal/repositories/postgres"
	"github.com/yoockh/skillradar/internal/services"
)

// TaxonomyHandler serves modules and competencies.
type TaxonomyHandler struct {
	svc services.TaxonomyService
}

func NewTaxonomyHandler(svc services.TaxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{svc: svc}
}

type ModuleRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	ParentID    *string `json:"parent_id"`
	Icon        string  `json:"icon"`
	Color       string  `json:"color"`
	SortOrder   int     `json:"sort_order"`
}

func (r ModuleRequest) input() services.ModuleInput {
	return services.ModuleInput{
		Name:        r.Name,
		Description: r.Description,
		ParentID:    r.ParentID,
		Icon:        r.Icon,
		Color:       r.Color,
		SortOrder:   r.SortOrder,
	}
}

func (h *TaxonomyHandler) Modules(c *gin.Context) {
	tree, err := h.svc.ModuleTree(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": tree})
}

func (h *TaxonomyHandler) Module(c *gin.Context) {
	m, err := h.svc.GetModule(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *TaxonomyHandler) CreateModule(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req ModuleRequest
	if !bindJSON(c, "TaxonomyHandler.CreateModule", &req) {
		return
	}
	m, err := h.svc.CreateModule(c.Request.Context(), caller, req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *TaxonomyHandler) UpdateModule(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req ModuleRequest
	if !bindJSON(c, "TaxonomyHandler.UpdateModule", &req) {
		return
	}
	m, err := h.svc.UpdateModule(c.Request.Context(), caller, c.Param("id"), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *TaxonomyHandler) DeleteModule(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteModule(c.Request.Context(), caller, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type CompetencyRequest struct {
	ModuleID    string   `json:"module_id" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	SortOrder   int      `json:"sort_order"`
}

func (r CompetencyRequest) input() services.CompetencyInput {
	return services.CompetencyInput{
		ModuleID:    r.ModuleID,
		Name:        r.Name,
		Description: r.Description,
		Keywords:    r.Keywords,
		SortOrder:   r.SortOrder,
	}
}

func (h *TaxonomyHandler) Competencies(c *gin.Context) {
	rows, err := h.svc.ListCompetencies(c.Request.Context(), pgrepo.CompetencyFilter{
		ModuleID: c.Query("module_id"),
		Query:    c.Query("q"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

func (h *TaxonomyHandler) CreateCompetency(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req CompetencyRequest
	if !bindJSON(c, "TaxonomyHandler.CreateCompetency", &req) {
		return
	}
	comp, err := h.svc.CreateCompetency(c.Request.Context(), caller, req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comp)
}

func (h *TaxonomyHandler) UpdateCompetency(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req CompetencyRequest
	if !bindJSON(c, "TaxonomyHandler.UpdateCompetency", &req) {
		return
	}
	comp, err := h.svc.UpdateCompetency(c.Request.Context(), caller, c.Param("id"), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, comp)
}

func (h *TaxonomyHandler) DeleteCompetency(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteCompetency(c.Request.Context(), caller, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
