package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/skillradar/internal/services"
)

type SettingHandler struct {
	svc services.SettingService
}

func NewSettingHandler(svc services.SettingService) *SettingHandler {
	return &SettingHandler{svc: svc}
}

func (h *SettingHandler) All(c *gin.Context) {
	out, err := h.svc.All(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Put takes a flat object; each value is stored as raw JSON under its key.
func (h *SettingHandler) Put(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req map[string]json.RawMessage
	if !bindJSON(c, "SettingHandler.Put", &req) {
		return
	}
	out, err := h.svc.Put(c.Request.Context(), caller, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
