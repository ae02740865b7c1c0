package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tradeledger/internal/domain"
)

// PositionChecker runs one SL/TP monitoring pass
type PositionChecker interface {
	CheckPositions(ctx context.Context) (*domain.MonitorReport, error)
}

// OpsHandler triggers the monitor and reports venue balances
type OpsHandler struct {
	monitor  PositionChecker
	balances domain.BalanceProvider
	logger   *zap.Logger
}

// NewOpsHandler creates a new OpsHandler. balances may be nil when no venue is configured.
func NewOpsHandler(monitor PositionChecker, balances domain.BalanceProvider, logger *zap.Logger) *OpsHandler {
	return &OpsHandler{monitor: monitor, balances: balances, logger: logger}
}

// RunMonitor runs a monitoring pass now
// POST /api/monitor
func (h *OpsHandler) RunMonitor(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 50*time.Second)
	defer cancel()

	h.logger.Info("monitor pass triggered via API")
	report, err := h.monitor.CheckPositions(ctx)
	if err != nil {
		return HandleError(c, "Monitor pass failed", err)
	}
	return SuccessResponse(c, report)
}

// GetBalances returns the venue wallet balances
// GET /api/balances
func (h *OpsHandler) GetBalances(c echo.Context) error {
	if h.balances == nil {
		return ErrorResponse(c, http.StatusServiceUnavailable, "No execution venue configured", nil)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()

	balances, err := h.balances.Balances(ctx)
	if err != nil {
		return HandleError(c, "Failed to fetch balances", err)
	}
	return SuccessResponse(c, balances)
}
