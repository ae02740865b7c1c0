package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"tradeledger/internal/domain"
)

// OpenTradeSource lists the open real trades of the global ledger
type OpenTradeSource interface {
	OpenRealTrades(ctx context.Context) ([]*domain.Trade, error)
}

// TradeCloser closes a trade
type TradeCloser interface {
	Close(ctx context.Context, in domain.CloseTradeInput) (*domain.CloseResult, error)
}

// MonitorService closes real trades whose stop-loss or take-profit was crossed.
// Family accounts are never closed by the monitor.
type MonitorService struct {
	trades   OpenTradeSource
	closer   TradeCloser
	prices   *MarketPriceService
	registry *AccountRegistry
	running  atomic.Bool
	logger   *zap.Logger
}

// NewMonitorService creates a new MonitorService
func NewMonitorService(
	trades OpenTradeSource,
	closer TradeCloser,
	prices *MarketPriceService,
	registry *AccountRegistry,
	logger *zap.Logger,
) *MonitorService {
	return &MonitorService{
		trades:   trades,
		closer:   closer,
		prices:   prices,
		registry: registry,
		logger:   logger,
	}
}

// CheckPositions runs one monitoring pass. A failing trade does not stop the pass.
func (s *MonitorService) CheckPositions(ctx context.Context) (*domain.MonitorReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, domain.ErrMonitorBusy
	}
	defer s.running.Store(false)

	open, err := s.trades.OpenRealTrades(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get open trades: %w", err)
	}

	report := &domain.MonitorReport{Closed: []string{}, Failed: []string{}}

	candidates := make([]*domain.Trade, 0, len(open))
	symbolSet := make(map[string]bool)
	for _, t := range open {
		if s.registry.IsFamily(t.Indicator) {
			report.Skipped++
			continue
		}
		candidates = append(candidates, t)
		symbolSet[strings.ToUpper(t.Symbol)] = true
	}
	if len(candidates) == 0 {
		return report, nil
	}

	symbols := make([]string, 0, len(symbolSet))
	for symbol := range symbolSet {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	prices, err := s.prices.FetchRealTimePrices(ctx, symbols)
	if err != nil {
		s.logger.Warn("partial price fetch", zap.Error(err))
	}

	for _, t := range candidates {
		price, ok := prices[strings.ToUpper(t.Symbol)]
		if !ok {
			report.Failed = append(report.Failed, t.ID)
			continue
		}
		report.Checked++

		hit, reason := t.CheckSLTP(price)
		if !hit {
			continue
		}

		_, err := s.closer.Close(ctx, domain.CloseTradeInput{
			TradeID:   t.ID,
			ExitPrice: price,
			Real:      true,
			Reason:    reason,
		})
		if err != nil {
			s.logger.Error("failed to close trade on trigger",
				zap.String("trade_id", t.ID),
				zap.String("account", t.Indicator),
				zap.String("reason", reason),
				zap.Error(err),
			)
			report.Failed = append(report.Failed, t.ID)
			continue
		}

		s.logger.Info("trade closed on trigger",
			zap.String("trade_id", t.ID),
			zap.String("account", t.Indicator),
			zap.String("reason", reason),
			zap.Float64("price", price),
		)
		report.Closed = append(report.Closed, t.ID)
	}

	return report, nil
}
