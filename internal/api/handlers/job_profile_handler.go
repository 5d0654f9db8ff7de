package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/skillradar/internal/services"
)

type JobProfileHandler struct {
	svc services.JobProfileService
}

func NewJobProfileHandler(svc services.JobProfileService) *JobProfileHandler {
	return &JobProfileHandler{svc: svc}
}

type JobProfileRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *JobProfileHandler) List(c *gin.Context) {
	rows, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

func (h *JobProfileHandler) Get(c *gin.Context) {
	jp, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, jp)
}

func (h *JobProfileHandler) Create(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req JobProfileRequest
	if !bindJSON(c, "JobProfileHandler.Create", &req) {
		return
	}
	jp, err := h.svc.Create(c.Request.Context(), caller, req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, jp)
}

func (h *JobProfileHandler) Update(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req JobProfileRequest
	if !bindJSON(c, "JobProfileHandler.Update", &req) {
		return
	}
	jp, err := h.svc.Update(c.Request.Context(), caller, c.Param("id"), req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, jp)
}

func (h *JobProfileHandler) Delete(c *gin.Context) {
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

type ModuleLinksRequest struct {
	Modules []struct {
		ModuleID      string   `json:"module_id" binding:"required"`
		ExpectedScore *float64 `json:"expected_score"`
	} `json:"modules" binding:"dive"`
}

func (h *JobProfileHandler) SetModules(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req ModuleLinksRequest
	if !bindJSON(c, "JobProfileHandler.SetModules", &req) {
		return
	}
	links := make([]services.ModuleLinkInput, 0, len(req.Modules))
	for _, m := range req.Modules {
		links = append(links, services.ModuleLinkInput{ModuleID: m.ModuleID, ExpectedScore: m.ExpectedScore})
	}
	jp, err := h.svc.SetModules(c.Request.Context(), caller, c.Param("id"), links)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, jp)
}

type QualifierLinksRequest struct {
	QualifierIDs []string `json:"qualifier_ids"`
}

func (h *JobProfileHandler) SetQualifiers(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req QualifierLinksRequest
	if !bindJSON(c, "JobProfileHandler.SetQualifiers", &req) {
		return
	}
	jp, err := h.svc.SetQualifiers(c.Request.Context(), caller, c.Param("id"), req.QualifierIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, jp)
}

type CompetencyLinksRequest struct {
	Competencies []struct {
		CompetencyID  string   `json:"competency_id" binding:"required"`
		Weight        *float64 `json:"weight"`
		ExpectedScore *float64 `json:"expected_score"`
	} `json:"competencies" binding:"dive"`
}

func (h *JobProfileHandler) SetCompetencies(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req CompetencyLinksRequest
	if !bindJSON(c, "JobProfileHandler.SetCompetencies", &req) {
		return
	}
	links := make([]services.CompetencyLinkInput, 0, len(req.Competencies))
	for _, l := range req.Competencies {
		links = append(links, services.CompetencyLinkInput{
			CompetencyID:  l.CompetencyID,
			Weight:        l.Weight,
			ExpectedScore: l.ExpectedScore,
		})
	}
	jp, err := h.svc.SetCompetencies(c.Request.Context(), caller, c.Param("id"), links)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, jp)
}
