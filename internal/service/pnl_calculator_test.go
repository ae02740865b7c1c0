package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/domain"
)

func TestSizeMarginBased(t *testing.T) {
	calc := NewPnLCalculator(0)

	qty, margin := calc.Size(100, 10, 125, 100)

	assert.InDelta(t, 12.5, qty, 1e-9)
	assert.InDelta(t, 10.0, margin, 1e-9)
}

func TestSizeRejectsZeroPrice(t *testing.T) {
	qty, margin := NewPnLCalculator(0).Size(100, 10, 125, 0)
	assert.Zero(t, qty)
	assert.InDelta(t, 10.0, margin, 1e-9)
}

func TestSettleLongLeafScenario(t *testing.T) {
	calc := NewPnLCalculator(DefaultFeeRate)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	open := &domain.Trade{
		ID:        "t1",
		Type:      domain.SideBuy,
		Price:     100,
		Quantity:  12.5,
		Leverage:  125,
		Margin:    10,
		StartTime: start,
	}

	closed := calc.Settle(open, 101, open.Margin, start.Add(90*time.Second))

	require.NotNil(t, closed.Profit)
	assert.InDelta(t, 1.0, *closed.Fee, 1e-9)
	assert.InDelta(t, 11.5, *closed.Profit, 1e-9)
	assert.InDelta(t, 115.0, *closed.PercentProfit, 1e-9)
	assert.InDelta(t, 10.0, *closed.PercentFee, 1e-9)
	assert.Equal(t, 90.0, closed.Duration.Seconds)
	assert.InDelta(t, 101.0, *closed.ExitPrice, 1e-9)
	// the open record is untouched
	assert.True(t, open.IsOpen())
	assert.Nil(t, open.Profit)
}

func TestSettleShortTPScenario(t *testing.T) {
	calc := NewPnLCalculator(DefaultFeeRate)
	open := &domain.Trade{ID: "tp1", Type: domain.SideSell, Price: 50, Quantity: 2, Leverage: 10, StartTime: time.Now()}

	margin := calc.MarginFor(open.Price, open.Quantity, open.Leverage)
	closed := calc.Settle(open, 45, margin, time.Now())

	assert.InDelta(t, 10.0, margin, 1e-9)
	assert.InDelta(t, 0.08, *closed.Fee, 1e-9)
	assert.InDelta(t, 9.92, *closed.Profit, 1e-9)
	assert.InDelta(t, 99.2, *closed.PercentProfit, 1e-9)
}

func TestSettleZeroMarginGivesZeroPercent(t *testing.T) {
	calc := NewPnLCalculator(DefaultFeeRate)
	open := &domain.Trade{ID: "x", Type: domain.SideBuy, Price: 10, Quantity: 1, Leverage: 1, StartTime: time.Now()}

	closed := calc.Settle(open, 12, 0, time.Now())

	assert.Zero(t, *closed.PercentProfit)
	assert.Zero(t, *closed.PercentFee)
}
