package domain

// Document is the persisted shape of one journal
type Document struct {
	TradeHistory      []*Trade         `json:"tradeHistory"`
	Statistics        *Statistics      `json:"statistics"`
	Settings          *AccountSettings `json:"settings,omitempty"`
	BotSettings       *BotSettings     `json:"botSettings,omitempty"`
	AggregatedBalance *BalanceSummary  `json:"aggregatedBalance,omitempty"`
}

// Statistics is derived from a trade history and is always recomputed wholesale
type Statistics struct {
	TotalTrades        int             `json:"totalTrades"`
	Wins               int             `json:"wins"`
	Losses             int             `json:"losses"`
	WinRate            float64         `json:"winRate"`
	TotalProfit        float64         `json:"totalProfit"`
	AvgProfit          float64         `json:"avgProfit"`
	AvgWin             float64         `json:"avgWin"`
	AvgLoss            float64         `json:"avgLoss"`
	TotalFees          float64         `json:"totalFees"`
	AvgFee             float64         `json:"avgFee"`
	TotalPercentProfit float64         `json:"totalPercentProfit"`
	AvgPercentProfit   float64         `json:"avgPercentProfit"`
	AvgDuration        float64         `json:"avgDuration"`
	OpenTrades         int             `json:"openTrades"`
	Balance            *BalanceSummary `json:"balance,omitempty"`
}

// BalanceSummary carries balance fields for leaf, aggregate and global statistics.
// At the global level CurrentBalance is the combined balance of the leaves.
type BalanceSummary struct {
	InitialBalance     float64 `json:"initialBalance"`
	CurrentBalance     float64 `json:"currentBalance"`
	MaxBalance         float64 `json:"maxBalance"`
	MinBalance         float64 `json:"minBalance"`
	TotalUsedMargin    float64 `json:"totalUsedMargin"`
	MarginUsagePercent float64 `json:"marginUsagePercent"`
}

// AccountSettings holds the capital simulation of a leaf account
type AccountSettings struct {
	InitialBalance     float64 `json:"initialBalance"`
	CurrentBalance     float64 `json:"currentBalance"`
	MaxBalance         float64 `json:"maxBalance"`
	MinBalance         float64 `json:"minBalance"`
	TradePercent       float64 `json:"tradePercent"`
	Leverage           float64 `json:"leverage"`
	MarginUsagePercent float64 `json:"marginUsagePercent"`
}

// ApplyProfit adds a realized profit to the balance and moves the watermarks
func (s *AccountSettings) ApplyProfit(profit float64) float64 {
	s.CurrentBalance += profit
	if s.CurrentBalance > s.MaxBalance {
		s.MaxBalance = s.CurrentBalance
	}
	if s.CurrentBalance < s.MinBalance {
		s.MinBalance = s.CurrentBalance
	}
	return s.CurrentBalance
}

// BotSettings are process-wide trading switches stored in the global journal
type BotSettings struct {
	Symbol            string  `json:"symbol"`
	BalancePercentage float64 `json:"balancePercentage"`
	AutoTrade         bool    `json:"autoTrade"`
}

// FindOpen returns the open trade with the given id
func (d *Document) FindOpen(id string) *Trade {
	for _, t := range d.TradeHistory {
		if t.ID == id && t.IsOpen() {
			return t
		}
	}
	return nil
}

// OpenTrades returns the open trades of the journal in insertion order
func (d *Document) OpenTrades() []*Trade {
	open := make([]*Trade, 0)
	for _, t := range d.TradeHistory {
		if t.IsOpen() {
			open = append(open, t)
		}
	}
	return open
}

// Append adds a trade to the end of the history
func (d *Document) Append(t *Trade) {
	d.TradeHistory = append(d.TradeHistory, t)
}
