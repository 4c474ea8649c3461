package handler

import (
	"context"
	"net/http"

	app "github.com/erp/pdfonsubmit/internal/application/attachment"
	"github.com/erp/pdfonsubmit/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SettingsService reads and changes the per document type flags
type SettingsService interface {
	Get(ctx context.Context) (*app.SettingsResponse, error)
	Update(ctx context.Context, req app.UpdateSettingsRequest) (*app.SettingsResponse, error)
}

// SettingsHandler serves the settings singleton
type SettingsHandler struct {
	BaseHandler
	service SettingsService
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(service SettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// Get godoc
// @Summary      Get PDF on Submit settings
// @Tags         settings
// @Produce      json
// @Router       /settings [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.service.Get(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// Update godoc
// @Summary      Update PDF on Submit settings
// @Description  Only the flags present in the body change
// @Tags         settings
// @Accept       json
// @Produce      json
// @Router       /settings [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	var req app.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid settings body")
		return
	}
	settings, err := h.service.Update(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}
