package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/skillradar/internal/services"
)

type EvaluationHandler struct {
	svc       services.EvaluationService
	snapshots services.SnapshotService
}

func NewEvaluationHandler(svc services.EvaluationService, snapshots services.SnapshotService) *EvaluationHandler {
	return &EvaluationHandler{svc: svc, snapshots: snapshots}
}

type CreateEvaluationRequest struct {
	WorkerID     string  `json:"worker_id" binding:"required"`
	JobProfileID *string `json:"job_profile_id"`
	IsContinuous bool    `json:"is_continuous"`
	Comment      string  `json:"comment"`
}

func (h *EvaluationHandler) Create(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req CreateEvaluationRequest
	if !bindJSON(c, "EvaluationHandler.Create", &req) {
		return
	}
	e, created, err := h.svc.Create(c.Request.Context(), caller, services.CreateEvaluationInput{
		WorkerID:     req.WorkerID,
		JobProfileID: req.JobProfileID,
		IsContinuous: req.IsContinuous,
		Comment:      req.Comment,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, e)
}

func (h *EvaluationHandler) Get(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	e, err := h.svc.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *EvaluationHandler) ListForWorker(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	h.list(c, caller, c.Param("id"))
}

func (h *EvaluationHandler) ListMine(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	h.list(c, caller, caller.ID)
}

func (h *EvaluationHandler) list(c *gin.Context, caller services.Caller, workerID string) {
	rows, err := h.svc.ListForWorker(c.Request.Context(), caller, workerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

type SaveResultRequest struct {
	CompetencyID string `json:"competency_id" binding:"required"`
	Comment      string `json:"comment"`
	Answers      []struct {
		QualifierID string   `json:"qualifier_id" binding:"required"`
		OptionIDs   []string `json:"option_ids"`
	} `json:"answers" binding:"dive"`
}

func (h *EvaluationHandler) SaveResult(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req SaveResultRequest
	if !bindJSON(c, "EvaluationHandler.SaveResult", &req) {
		return
	}
	in := services.SaveResultInput{CompetencyID: req.CompetencyID, Comment: req.Comment}
	for _, a := range req.Answers {
		in.Answers = append(in.Answers, services.AnswerInput{QualifierID: a.QualifierID, OptionIDs: a.OptionIDs})
	}
	res, err := h.svc.SaveResult(c.Request.Context(), caller, c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *EvaluationHandler) Complete(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	e, err := h.svc.Complete(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *EvaluationHandler) Scores(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	sc, err := h.svc.Scores(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}

type BatchScoresRequest struct {
	EvaluationIDs []string `json:"evaluation_ids" binding:"required"`
}

func (h *EvaluationHandler) BatchScores(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req BatchScoresRequest
	if !bindJSON(c, "EvaluationHandler.BatchScores", &req) {
		return
	}
	out, err := h.svc.BatchScores(c.Request.Context(), caller, req.EvaluationIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (h *EvaluationHandler) History(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	rows, err := h.snapshots.History(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

func (h *EvaluationHandler) Summary(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	text, err := h.svc.Summary(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluation_id": c.Param("id"), "summary": text})
}
