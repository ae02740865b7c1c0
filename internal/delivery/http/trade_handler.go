package http

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tradeledger/internal/delivery/http/dto"
	"tradeledger/internal/domain"
	"tradeledger/internal/service"
	"tradeledger/internal/usecase"
)

// TradeHandler handles trade listing and manual trade operations
type TradeHandler struct {
	trading  *usecase.TradingService
	registry *service.AccountRegistry
	logger   *zap.Logger
}

// NewTradeHandler creates a new TradeHandler
func NewTradeHandler(trading *usecase.TradingService, registry *service.AccountRegistry, logger *zap.Logger) *TradeHandler {
	return &TradeHandler{
		trading:  trading,
		registry: registry,
		logger:   logger,
	}
}

// ListTrades returns global ledger trades
// GET /api/trades?status=open|closed&account=
func (h *TradeHandler) ListTrades(c echo.Context) error {
	var q dto.TradeQuery
	if err := c.Bind(&q); err != nil {
		return BadRequestResponse(c, "Invalid query")
	}
	if err := c.Validate(&q); err != nil {
		return BadRequestResponse(c, "status must be 'open' or 'closed'")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	trades, err := h.trading.Trades(ctx, q.Status, q.Account)
	if err != nil {
		return HandleError(c, "Failed to list trades", err)
	}
	return SuccessResponse(c, trades)
}

// PaperTrades returns the simulated trade journal
// GET /api/paper-trades
func (h *TradeHandler) PaperTrades(c echo.Context) error {
	return h.journal(c, h.registry.PaperJournal())
}

// ExchangeTrades returns the venue-backed trade journal
// GET /api/exchange-trades
func (h *TradeHandler) ExchangeTrades(c echo.Context) error {
	return h.journal(c, h.registry.Exchange().JournalKey)
}

func (h *TradeHandler) journal(c echo.Context, key string) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	trades, err := h.trading.JournalTrades(ctx, key)
	if err != nil {
		return HandleError(c, "Failed to read journal", err)
	}
	return SuccessResponse(c, trades)
}

// OpenTrade opens a trade by hand
// POST /api/trades/open
func (h *TradeHandler) OpenTrade(c echo.Context) error {
	var req dto.OpenTradeRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return BadRequestResponse(c, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	res, err := h.trading.Open(ctx, domain.OpenTradeInput{
		AccountID:  req.Indicator,
		Side:       req.Type,
		Symbol:     req.Symbol,
		Price:      req.Price,
		Quantity:   req.Quantity,
		Leverage:   req.Leverage,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Real:       req.RealTrade,
	})
	if err != nil {
		return HandleError(c, "Failed to open trade", err)
	}
	return CreatedResponse(c, res)
}

// CloseTrade closes one open trade
// POST /api/trades/:id/close
func (h *TradeHandler) CloseTrade(c echo.Context) error {
	var req dto.CloseTradeRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return BadRequestResponse(c, "exitPrice must be positive")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	res, err := h.trading.Close(ctx, domain.CloseTradeInput{
		TradeID:   c.Param("id"),
		ExitPrice: req.ExitPrice,
		Real:      req.RealTrade,
		Reason:    domain.ClosedByManual,
	})
	if err != nil {
		return HandleError(c, "Failed to close trade", err)
	}
	return SuccessMessageResponse(c, "Trade closed", res)
}

// CloseAll closes every open trade of an account
// POST /api/accounts/:id/close-all
func (h *TradeHandler) CloseAll(c echo.Context) error {
	var req dto.CloseTradeRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return BadRequestResponse(c, "exitPrice must be positive")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	res, err := h.trading.CloseAll(ctx, c.Param("id"), req.ExitPrice, req.RealTrade)
	if err != nil {
		return HandleError(c, "Failed to close trades", err)
	}
	if len(res.Failed) > 0 {
		h.logger.Warn("close-all finished with failures",
			zap.String("account", c.Param("id")),
			zap.Strings("failed", res.Failed),
		)
	}
	return SuccessResponse(c, res)
}

// CloseTP settles a take-profit journal trade
// POST /api/tp/:id/close
func (h *TradeHandler) CloseTP(c echo.Context) error {
	var req dto.CloseTradeRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return BadRequestResponse(c, "exitPrice must be positive")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.trading.CloseTP(ctx, c.Param("id"), req.ExitPrice)
	if err != nil {
		return HandleError(c, "Failed to close tp trade", err)
	}
	return SuccessMessageResponse(c, "TP trade closed", res)
}
