package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/skillradar/internal/importer"
	"github.com/yoockh/skillradar/internal/services"
	"github.com/yoockh/skillradar/internal/utils"
)

const maxImportFileSize = 10 << 20

type ImportHandler struct {
	svc services.ImportService
}

func NewImportHandler(svc services.ImportService) *ImportHandler {
	return &ImportHandler{svc: svc}
}

type ImportRequest struct {
	Rows   []map[string]any `json:"rows"`
	DryRun bool             `json:"dry_run"`
}

// rows accepts either a JSON body {rows, dry_run} or a multipart upload with
// a CSV/XLSX "file" field and an optional "dry_run" form value.
func (h *ImportHandler) rows(c *gin.Context, op string) ([]map[string]any, bool, bool) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var req ImportRequest
		if !bindJSON(c, op, &req) {
			return nil, false, false
		}
		return req.Rows, req.DryRun, true
	}

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "champ 'file' manquant", err))
		return nil, false, false
	}
	if fh.Size <= 0 || fh.Size > maxImportFileSize {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "fichier vide ou trop volumineux (10 Mo max)", nil))
		return nil, false, false
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return nil, false, false
	}
	defer f.Close()

	rows, err := importer.Parse(fh.Filename, f)
	if errors.Is(err, importer.ErrUnsupportedFile) {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "format non supporté (.csv ou .xlsx attendu)", err))
		return nil, false, false
	}
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "fichier illisible", err))
		return nil, false, false
	}
	dryRun, _ := strconv.ParseBool(c.PostForm("dry_run"))
	return rows, dryRun, true
}

func (h *ImportHandler) Users(c *gin.Context) {
	const op = "ImportHandler.Users"
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	rows, dryRun, ok := h.rows(c, op)
	if !ok {
		return
	}
	out, err := h.svc.Users(c.Request.Context(), caller, rows, dryRun)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *ImportHandler) Locations(c *gin.Context) {
	const op = "ImportHandler.Locations"
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	rows, dryRun, ok := h.rows(c, op)
	if !ok {
		return
	}
	out, err := h.svc.Locations(c.Request.Context(), caller, rows, dryRun)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *ImportHandler) Reports(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	rows, err := h.svc.Reports(c.Request.Context(), caller)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

func (h *ImportHandler) Report(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	rep, err := h.svc.Report(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}
