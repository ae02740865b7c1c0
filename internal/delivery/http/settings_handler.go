package http

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"tradeledger/internal/delivery/http/dto"
	"tradeledger/internal/usecase"
)

// SettingsHandler handles bot switches and leaf sizing
type SettingsHandler struct {
	settings *usecase.SettingsService
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settings *usecase.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// GetSettings returns the bot settings
// GET /api/settings
func (h *SettingsHandler) GetSettings(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bs, err := h.settings.GetBotSettings(ctx)
	if err != nil {
		return HandleError(c, "Failed to get settings", err)
	}
	return SuccessResponse(c, bs)
}

// SetAutoTrade toggles real trading for alerts
// POST /api/settings/auto-trade
func (h *SettingsHandler) SetAutoTrade(c echo.Context) error {
	var req dto.AutoTradeRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return BadRequestResponse(c, "autoTrade is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bs, err := h.settings.SetAutoTrade(ctx, *req.AutoTrade)
	if err != nil {
		return HandleError(c, "Failed to update auto trade", err)
	}
	return SuccessMessageResponse(c, "Auto trade updated", bs)
}

// GetLeafSettings returns the capital simulation of a leaf
// GET /api/accounts/:id/settings
func (h *SettingsHandler) GetLeafSettings(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	settings, err := h.settings.GetLeafSettings(ctx, c.Param("id"))
	if err != nil {
		return HandleError(c, "Failed to get account settings", err)
	}
	return SuccessResponse(c, settings)
}

// UpdateLeafSettings changes leaf sizing, all or nothing
// POST /api/leaf-settings
func (h *SettingsHandler) UpdateLeafSettings(c echo.Context) error {
	var req dto.LeafSettingsRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	snap, err := h.settings.UpdateLeafSettings(ctx, req)
	if err != nil {
		return HandleError(c, "Failed to update leaf settings", err)
	}
	return SuccessMessageResponse(c, "Leaf settings updated", snap)
}
