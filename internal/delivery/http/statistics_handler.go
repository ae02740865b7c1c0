package http

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"tradeledger/internal/service"
	"tradeledger/internal/usecase"
)

// StatisticsHandler serves the computed statistics views
type StatisticsHandler struct {
	aggregation *usecase.AggregationService
	registry    *service.AccountRegistry
}

// NewStatisticsHandler creates a new StatisticsHandler
func NewStatisticsHandler(aggregation *usecase.AggregationService, registry *service.AccountRegistry) *StatisticsHandler {
	return &StatisticsHandler{aggregation: aggregation, registry: registry}
}

// GetStatistics returns the global ledger statistics
// GET /api/statistics
func (h *StatisticsHandler) GetStatistics(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stats, err := h.aggregation.Statistics(ctx, h.registry.Global().ID)
	if err != nil {
		return HandleError(c, "Failed to get statistics", err)
	}
	return SuccessResponse(c, stats)
}

// GetAccountStatistics returns the statistics of one account
// GET /api/accounts/:id/statistics
func (h *StatisticsHandler) GetAccountStatistics(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stats, err := h.aggregation.Statistics(ctx, c.Param("id"))
	if err != nil {
		return HandleError(c, "Failed to get account statistics", err)
	}
	return SuccessResponse(c, stats)
}

// GetSnapshot returns the current snapshot without recomputing
// GET /api/snapshot
func (h *StatisticsHandler) GetSnapshot(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	snap, err := h.aggregation.Snapshot(ctx)
	if err != nil {
		return HandleError(c, "Failed to build snapshot", err)
	}
	return SuccessResponse(c, snap)
}

// GetTPStatistics returns the take-profit journal statistics
// GET /api/tp/statistics
func (h *StatisticsHandler) GetTPStatistics(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	snap, err := h.aggregation.Snapshot(ctx)
	if err != nil {
		return HandleError(c, "Failed to get tp statistics", err)
	}
	return SuccessResponse(c, snap.TP)
}
