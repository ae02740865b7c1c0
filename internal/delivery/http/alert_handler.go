package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tradeledger/internal/domain"
)

// AlertProcessor turns a raw alert into a trade
type AlertProcessor interface {
	Handle(ctx context.Context, alert domain.RawAlert) (*domain.OpenResult, error)
}

// AlertHandler receives alert webhooks
type AlertHandler struct {
	alerts AlertProcessor
	logger *zap.Logger
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(alerts AlertProcessor, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{alerts: alerts, logger: logger}
}

// Create processes an alert posted by an authenticated operator
// POST /api/alerts
func (h *AlertHandler) Create(c echo.Context) error {
	var alert domain.RawAlert
	if err := c.Bind(&alert); err != nil {
		return BadRequestResponse(c, "Invalid alert payload")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	res, err := h.alerts.Handle(ctx, alert)
	if err != nil {
		return HandleError(c, "Alert not processed", err)
	}
	return CreatedResponse(c, res)
}

// Webhook is the unauthenticated alert endpoint mounted on the root router
// POST /webhook/alert
func (h *AlertHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var alert domain.RawAlert
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&alert); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid alert payload", nil))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	res, err := h.alerts.Handle(ctx, alert)
	if err != nil {
		status := StatusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("alert processing failed", zap.Error(err))
		}
		writeJSON(w, status, errorBody("Alert not processed", err))
		return
	}
	writeJSON(w, http.StatusCreated, successBody("", res))
}
