package domain

import (
	"strings"
	"time"
)

// Trade sides and signal types as they arrive from alerts
const (
	SideBuy  = "buy"
	SideSell = "sell"

	SignalSLCross = "slCross"
	SignalTPCross = "tpCross"
)

// AggregateSuffix is appended to a leaf trade id for its mirror in the aggregate journal
const AggregateSuffix = "_agg"

// Trade is a single position lifecycle record.
// A trade is open while EndTime is nil.
type Trade struct {
	ID            string     `json:"id"`
	Indicator     string     `json:"indicator"`
	SubIndicator  string     `json:"subIndicator,omitempty"`
	Type          string     `json:"type"`
	Symbol        string     `json:"symbol"`
	Price         float64    `json:"price"`
	Quantity      float64    `json:"quantity"`
	Leverage      float64    `json:"leverage"`
	Margin        float64    `json:"margin"`
	StopLoss      *float64   `json:"stopLoss"`
	TakeProfit    *float64   `json:"takeProfit"`
	RealTrade     bool       `json:"realTrade"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       *time.Time `json:"endTime"`
	ExitPrice     *float64   `json:"exitPrice"`
	Profit        *float64   `json:"profit"`
	Fee           *float64   `json:"fee"`
	PercentProfit *float64   `json:"percentProfit"`
	PercentFee    *float64   `json:"percentFee"`
	Duration      Duration   `json:"duration"`
	BalanceBefore *float64   `json:"balanceBefore"`
	BalanceAfter  *float64   `json:"balanceAfter"`
	OrderID       int64      `json:"orderId,omitempty"`
}

// IsOpen reports whether the trade has not been closed yet
func (t *Trade) IsOpen() bool {
	return t.EndTime == nil
}

// IsLong reports whether the trade is a buy
func (t *Trade) IsLong() bool {
	return t.Type == SideBuy
}

// OppositeSide returns the side that closes this trade on a venue
func (t *Trade) OppositeSide() string {
	if t.IsLong() {
		return SideSell
	}
	return SideBuy
}

// CanonicalID returns the id of the authoritative record for this trade.
// Aggregate mirrors point back at the leaf trade they were cloned from.
func (t *Trade) CanonicalID() string {
	if t.SubIndicator != "" && strings.HasSuffix(t.ID, AggregateSuffix) {
		return strings.TrimSuffix(t.ID, AggregateSuffix)
	}
	return t.ID
}

// ProfitValue returns the realized profit, 0 while open
func (t *Trade) ProfitValue() float64 {
	return valueOf(t.Profit)
}

// FeeValue returns the fee, 0 while open
func (t *Trade) FeeValue() float64 {
	return valueOf(t.Fee)
}

// PercentProfitValue returns the percent profit, 0 while open
func (t *Trade) PercentProfitValue() float64 {
	return valueOf(t.PercentProfit)
}

// Clone returns a deep copy of the trade
func (t *Trade) Clone() *Trade {
	c := *t
	c.StopLoss = copyFloat(t.StopLoss)
	c.TakeProfit = copyFloat(t.TakeProfit)
	c.ExitPrice = copyFloat(t.ExitPrice)
	c.Profit = copyFloat(t.Profit)
	c.Fee = copyFloat(t.Fee)
	c.PercentProfit = copyFloat(t.PercentProfit)
	c.PercentFee = copyFloat(t.PercentFee)
	c.BalanceBefore = copyFloat(t.BalanceBefore)
	c.BalanceAfter = copyFloat(t.BalanceAfter)
	if t.EndTime != nil {
		end := *t.EndTime
		c.EndTime = &end
	}
	return &c
}

// MirrorFor builds the aggregate journal copy of a leaf trade
func (t *Trade) MirrorFor(aggregateID string) *Trade {
	m := t.Clone()
	m.ID = t.ID + AggregateSuffix
	m.Indicator = aggregateID
	m.SubIndicator = t.Indicator
	return m
}

// ApplyClose copies the exit fields of a closed trade onto this record.
// Entry fields stay untouched.
func (t *Trade) ApplyClose(closed *Trade) {
	t.EndTime = closed.EndTime
	t.ExitPrice = copyFloat(closed.ExitPrice)
	t.Duration = closed.Duration
	t.Profit = copyFloat(closed.Profit)
	t.Margin = closed.Margin
	t.PercentProfit = copyFloat(closed.PercentProfit)
	t.Fee = copyFloat(closed.Fee)
	t.PercentFee = copyFloat(closed.PercentFee)
	if closed.BalanceAfter != nil {
		t.BalanceAfter = copyFloat(closed.BalanceAfter)
	}
}

// CheckSLTP reports whether the current price has crossed the trade's stop-loss or take-profit.
// The second value is ClosedByTP or ClosedBySL.
func (t *Trade) CheckSLTP(currentPrice float64) (bool, string) {
	tp := valueOf(t.TakeProfit)
	sl := valueOf(t.StopLoss)

	if t.IsLong() {
		if tp > 0 && currentPrice >= tp {
			return true, ClosedByTP
		}
		if sl > 0 && currentPrice <= sl {
			return true, ClosedBySL
		}
		return false, ""
	}

	if tp > 0 && currentPrice <= tp {
		return true, ClosedByTP
	}
	if sl > 0 && currentPrice >= sl {
		return true, ClosedBySL
	}
	return false, ""
}

// Close reasons
const (
	ClosedByTP       = "TP"
	ClosedBySL       = "SL"
	ClosedByManual   = "MANUAL"
	ClosedByOpposite = "OPPOSITE"
	ClosedBySignal   = "SIGNAL"
)

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

func valueOf(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
