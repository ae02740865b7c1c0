package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// PriceSource reports the latest price of a symbol
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// MarketPriceService fetches prices for a set of symbols, one venue call per symbol
type MarketPriceService struct {
	source PriceSource
	logger *zap.Logger
}

// NewMarketPriceService creates a new MarketPriceService
func NewMarketPriceService(source PriceSource, logger *zap.Logger) *MarketPriceService {
	return &MarketPriceService{source: source, logger: logger}
}

// FetchRealTimePrices returns the prices it could fetch. Symbols that failed are listed in the
// error; the map is usable even when err is non-nil.
func (s *MarketPriceService) FetchRealTimePrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(symbols))
	var missing []string

	for _, symbol := range symbols {
		symbol = strings.ToUpper(symbol)
		if _, done := prices[symbol]; done {
			continue
		}
		price, err := s.source.CurrentPrice(ctx, symbol)
		if err != nil || price <= 0 {
			s.logger.Warn("price unavailable", zap.String("symbol", symbol), zap.Error(err))
			missing = append(missing, symbol)
			continue
		}
		prices[symbol] = price
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return prices, fmt.Errorf("missing prices for symbols: %v", missing)
	}
	return prices, nil
}

// GetPrice fetches the current price for a single symbol
func (s *MarketPriceService) GetPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := s.FetchRealTimePrices(ctx, []string{symbol})
	if err != nil {
		return 0, err
	}
	return prices[strings.ToUpper(symbol)], nil
}
