package service

import (
	"time"

	"tradeledger/internal/domain"
)

const (
	// DefaultFeeRate is the Binance Futures taker fee (0.04%) charged on entry and exit
	DefaultFeeRate = 0.0004
)

// PnLCalculator sizes positions and settles closed trades
type PnLCalculator struct {
	feeRate float64
}

// NewPnLCalculator creates a calculator; a non-positive rate falls back to DefaultFeeRate
func NewPnLCalculator(feeRate float64) *PnLCalculator {
	if feeRate <= 0 {
		feeRate = DefaultFeeRate
	}
	return &PnLCalculator{feeRate: feeRate}
}

// FeeRate returns the per-side fee rate
func (c *PnLCalculator) FeeRate() float64 {
	return c.feeRate
}

// Size computes margin-based sizing: margin = balance × tradePercent/100,
// quantity = margin × leverage / price
func (c *PnLCalculator) Size(balance, tradePercent, leverage, price float64) (quantity, margin float64) {
	margin = balance * tradePercent / 100
	if price <= 0 {
		return 0, margin
	}
	return margin * leverage / price, margin
}

// MarginFor returns the margin locked by a position of quantity at price
func (c *PnLCalculator) MarginFor(price, quantity, leverage float64) float64 {
	if leverage <= 0 {
		return 0
	}
	return price * quantity / leverage
}

// Fee returns the round-trip fee, charged on entry notional for both sides
func (c *PnLCalculator) Fee(entryPrice, quantity float64) float64 {
	return 2 * entryPrice * quantity * c.feeRate
}

// RawPnL returns the directional PnL before fees
func (c *PnLCalculator) RawPnL(side string, entryPrice, exitPrice, quantity float64) float64 {
	if side == domain.SideBuy {
		return (exitPrice - entryPrice) * quantity
	}
	return (entryPrice - exitPrice) * quantity
}

// Settle returns a closed copy of an open trade. margin is the capital the percentages
// are measured against.
func (c *PnLCalculator) Settle(open *domain.Trade, exitPrice, margin float64, at time.Time) *domain.Trade {
	closed := open.Clone()

	fee := c.Fee(open.Price, open.Quantity)
	profit := c.RawPnL(open.Type, open.Price, exitPrice, open.Quantity) - fee

	closed.EndTime = &at
	closed.ExitPrice = domain.Float(exitPrice)
	closed.Duration = domain.Seconds(at.Sub(open.StartTime).Seconds())
	closed.Profit = domain.Float(profit)
	closed.Fee = domain.Float(fee)
	closed.Margin = margin
	closed.PercentProfit = domain.Float(ratio(profit, margin) * 100)
	closed.PercentFee = domain.Float(ratio(fee, margin) * 100)

	return closed
}
