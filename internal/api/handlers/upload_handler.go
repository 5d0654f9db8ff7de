package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/skillradar/internal/models"
	"github.com/yoockh/skillradar/internal/services"
	"github.com/yoockh/skillradar/internal/storage"
	"github.com/yoockh/skillradar/internal/utils"
)

type UploadHandler struct {
	svc services.UploadService
}

func NewUploadHandler(svc services.UploadService) *UploadHandler {
	return &UploadHandler{svc: svc}
}

type uploadFunc func(ctx context.Context, caller services.Caller, fileName string, r io.Reader) (*models.StoredFile, error)

func (h *UploadHandler) upload(c *gin.Context, op string, fn uploadFunc) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "champ 'file' manquant", err))
		return
	}
	// the service re-checks the size while reading
	if fh.Size > storage.MaxUploadSize {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "fichier trop volumineux (2 Mo max)", nil))
		return
	}

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer file.Close()

	row, err := fn(c.Request.Context(), caller, fh.Filename, file)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (h *UploadHandler) Avatar(c *gin.Context) {
	h.upload(c, "UploadHandler.Avatar", h.svc.Avatar)
}

func (h *UploadHandler) Logo(c *gin.Context) {
	h.upload(c, "UploadHandler.Logo", h.svc.Logo)
}
