package binance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	spot "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tradeledger/configs"
	"tradeledger/internal/domain"
)

const (
	// QuantityPrecision is the lot step used when formatting order quantities
	QuantityPrecision = 3

	// errCodeTimestamp is returned when the request timestamp is outside the receive window
	errCodeTimestamp = -1021

	quoteAsset = "USDT"
)

// Venue is the Binance USDT-M futures execution venue
type Venue struct {
	client     Client
	limiter    *rate.Limiter
	maxRetries int
	logger     *zap.Logger
}

// NewVenue creates a new Venue
func NewVenue(client Client, cfg configs.BinanceConfig, logger *zap.Logger) *Venue {
	limit, burst := cfg.RateLimit, cfg.RateBurst
	if limit <= 0 {
		limit = 10
	}
	if burst <= 0 {
		burst = 20
	}
	return &Venue{
		client:     client,
		limiter:    rate.NewLimiter(rate.Limit(limit), burst),
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}
}

// SetLeverage sets the symbol leverage before an order is placed
func (v *Venue) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	if err := v.limiter.Wait(ctx); err != nil {
		return err
	}

	if _, err := v.client.NewChangeLeverageService().Symbol(symbol).Leverage(leverage).Do(ctx); err != nil {
		return fmt.Errorf("%w: failed to set leverage %d on %s: %w", domain.ErrVenue, leverage, symbol, err)
	}
	return nil
}

// PlaceOrder sends a futures order. Quantities are truncated to the lot step.
func (v *Venue) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	qty := decimal.NewFromFloat(req.Quantity).Truncate(QuantityPrecision)
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%w: quantity %v below lot step", domain.ErrValidation, req.Quantity)
	}

	side := futures.SideTypeBuy
	if req.Side == domain.SideSell {
		side = futures.SideTypeSell
	}

	if err := v.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	svc := v.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(side).
		Quantity(qty.String())

	if req.Type == domain.OrderTypeLimit && req.Price != nil {
		svc = svc.Type(futures.OrderTypeLimit).
			Price(decimal.NewFromFloat(*req.Price).String()).
			TimeInForce(futures.TimeInForceTypeGTC)
	} else {
		svc = svc.Type(futures.OrderTypeMarket)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to place %s order on %s: %w", domain.ErrVenue, req.Side, req.Symbol, err)
	}

	result := &domain.OrderResult{OrderID: resp.OrderID}
	if avg, err := decimal.NewFromString(resp.AvgPrice); err == nil {
		result.AvgPrice = avg.InexactFloat64()
	}

	v.logger.Info("venue order placed",
		zap.String("symbol", req.Symbol),
		zap.String("side", req.Side),
		zap.String("quantity", qty.String()),
		zap.Int64("order_id", resp.OrderID),
	)
	return result, nil
}

// CurrentPrice returns the latest price of a symbol
func (v *Venue) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	prices, err := v.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to fetch price for %s: %w", domain.ErrVenue, symbol, err)
	}

	for _, p := range prices {
		if !strings.EqualFold(p.Symbol, symbol) {
			continue
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid price %q for %s", domain.ErrVenue, p.Price, symbol)
		}
		return price.InexactFloat64(), nil
	}
	return 0, fmt.Errorf("%w: no price for %s", domain.ErrVenue, symbol)
}

// Balances returns the USDT futures wallet and spot free balance.
// Timestamp errors resync the clock and retry up to maxRetries times.
func (v *Venue) Balances(ctx context.Context) (*domain.Balances, error) {
	var lastErr error
	for attempt := 0; attempt <= v.maxRetries; attempt++ {
		balances, err := v.fetchBalances(ctx)
		if err == nil {
			return balances, nil
		}
		lastErr = err

		if !isTimestampError(err) || attempt == v.maxRetries {
			break
		}

		v.logger.Warn("timestamp error, resyncing server time", zap.Int("attempt", attempt+1))
		if err := v.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		offset, err := v.client.NewSetServerTimeService().Do(ctx)
		if err != nil {
			v.logger.Error("failed to resync server time", zap.Error(err))
		} else {
			v.logger.Info("server time resynced", zap.Duration("offset", time.Duration(offset)*time.Millisecond))
		}
	}
	return nil, fmt.Errorf("%w: failed to fetch balances: %w", domain.ErrVenue, lastErr)
}

func (v *Venue) fetchBalances(ctx context.Context) (*domain.Balances, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	fa, err := v.client.NewFuturesAccountService().Do(ctx)
	if err != nil {
		return nil, err
	}

	if err := v.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	sa, err := v.client.NewSpotAccountService().Do(ctx)
	if err != nil {
		return nil, err
	}

	b := &domain.Balances{
		Futures: futuresWallet(fa),
		Spot:    spotFree(sa),
	}
	b.Total = decimal.NewFromFloat(b.Futures).Add(decimal.NewFromFloat(b.Spot)).InexactFloat64()
	return b, nil
}

func futuresWallet(a *futures.Account) float64 {
	if a == nil {
		return 0
	}
	for _, asset := range a.Assets {
		if asset.Asset == quoteAsset {
			return parseOrZero(asset.WalletBalance)
		}
	}
	return 0
}

func spotFree(a *spot.Account) float64 {
	if a == nil {
		return 0
	}
	for _, b := range a.Balances {
		if b.Asset == quoteAsset {
			return parseOrZero(b.Free)
		}
	}
	return 0
}

func parseOrZero(s string) float64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func isTimestampError(err error) bool {
	var apiErr *common.APIError
	return errors.As(err, &apiErr) && apiErr.Code == errCodeTimestamp
}
