package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradeledger/internal/domain"
	"tradeledger/internal/service"
)

// leading numeric prefix, the way alert templates render numbers ("64000.5", " 12 ", "1e3USDT")
var numberPrefix = regexp.MustCompile(`^\s*[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`)

// TradeOpener is the part of TradingService alerts need
type TradeOpener interface {
	Open(ctx context.Context, in domain.OpenTradeInput) (*domain.OpenResult, error)
}

// BotSettingsReader provides the auto-trade switch
type BotSettingsReader interface {
	GetBotSettings(ctx context.Context) (*domain.BotSettings, error)
}

// AlertService turns raw alert events into trade requests
type AlertService struct {
	trading  TradeOpener
	settings BotSettingsReader
	registry *service.AccountRegistry
	logger   *zap.Logger
}

// NewAlertService creates a new AlertService
func NewAlertService(trading TradeOpener, settings BotSettingsReader, registry *service.AccountRegistry, logger *zap.Logger) *AlertService {
	return &AlertService{
		trading:  trading,
		settings: settings,
		registry: registry,
		logger:   logger,
	}
}

// Handle normalizes an alert and opens the trade it describes.
// Trades are real when auto-trade is on and simulated otherwise.
func (s *AlertService) Handle(ctx context.Context, alert domain.RawAlert) (*domain.OpenResult, error) {
	in, err := s.Normalize(alert)
	if err != nil {
		s.logger.Warn("alert rejected", zap.Any("alert", alert), zap.Error(err))
		return nil, err
	}

	bs, err := s.settings.GetBotSettings(ctx)
	if err != nil {
		return nil, err
	}
	in.Real = bs.AutoTrade

	s.logger.Info("alert received",
		zap.String("account", in.AccountID),
		zap.String("type", in.Side),
		zap.String("symbol", in.Symbol),
		zap.Float64("price", in.Price),
		zap.Bool("real", in.Real),
	)
	return s.trading.Open(ctx, in)
}

// Normalize validates required fields and coerces template placeholders to safe values.
// A non-numeric price becomes 0 and is rejected later by open validation.
func (s *AlertService) Normalize(alert domain.RawAlert) (domain.OpenTradeInput, error) {
	if alert.Type == "" || alert.Symbol == "" || alert.Indicator == "" || alert.Price == nil {
		return domain.OpenTradeInput{}, fmt.Errorf("%w: alert requires type, symbol, price and indicator", domain.ErrValidation)
	}

	accountID := alert.Indicator
	if alert.Indicator == s.registry.FamilyBase() {
		leaf, err := s.registry.LeafForVersion(alert.Version)
		if err != nil {
			return domain.OpenTradeInput{}, err
		}
		accountID = leaf
	}

	symbol := strings.ToUpper(strings.TrimSpace(alert.Symbol))
	if strings.Contains(symbol, "{") {
		s.logger.Warn("placeholder symbol in alert, using fallback",
			zap.String("symbol", alert.Symbol),
			zap.String("fallback", s.registry.FallbackSymbol()),
		)
		symbol = s.registry.FallbackSymbol()
	}

	price, ok := ParseNumber(alert.Price)
	if !ok {
		s.logger.Warn("non-numeric price in alert, using 0", zap.Any("price", alert.Price))
		price = 0
	}

	return domain.OpenTradeInput{
		AccountID:  accountID,
		Side:       normalizeSide(alert.Type),
		Symbol:     symbol,
		Price:      price,
		Quantity:   optionalNumber(alert.Quantity),
		StopLoss:   optionalNumber(alert.StopLoss),
		TakeProfit: optionalNumber(alert.TakeProfit),
	}, nil
}

// ParseNumber reads a number from a decoded JSON value. Strings are parsed by their numeric
// prefix; anything else without a number yields false.
func ParseNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return 0, false
		}
		return d.InexactFloat64(), true
	case string:
		m := numberPrefix.FindString(n)
		if m == "" {
			return 0, false
		}
		d, err := decimal.NewFromString(strings.TrimSpace(m))
		if err != nil {
			return 0, false
		}
		return d.InexactFloat64(), true
	}
	return 0, false
}

func optionalNumber(v any) *float64 {
	if v == nil {
		return nil
	}
	n, ok := ParseNumber(v)
	if !ok || n <= 0 {
		return nil
	}
	return domain.Float(n)
}

func normalizeSide(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case domain.SideBuy, "long":
		return domain.SideBuy
	case domain.SideSell, "short":
		return domain.SideSell
	case strings.ToLower(domain.SignalSLCross):
		return domain.SignalSLCross
	case strings.ToLower(domain.SignalTPCross):
		return domain.SignalTPCross
	}
	return t
}
