package domain

// RawAlert is an alert event as delivered by the alert source.
// Price is kept raw because sources send template placeholders instead of numbers.
type RawAlert struct {
	Type       string `json:"type"`
	Symbol     string `json:"symbol"`
	Price      any    `json:"price"`
	Indicator  string `json:"indicator"`
	Version    string `json:"version,omitempty"`
	Quantity   any    `json:"quantity,omitempty"`
	StopLoss   any    `json:"stopLoss,omitempty"`
	TakeProfit any    `json:"takeProfit,omitempty"`
}

// OpenTradeInput is a validated request to open a trade
type OpenTradeInput struct {
	AccountID  string
	Side       string
	Symbol     string
	Price      float64
	Quantity   *float64
	Leverage   *float64
	StopLoss   *float64
	TakeProfit *float64
	Real       bool
}

// CloseTradeInput is a request to close an open trade
type CloseTradeInput struct {
	TradeID   string
	ExitPrice float64
	Real      bool
	Reason    string
}

// OpenResult is returned by a successful open. FailedToClose lists opposite trades that
// could not be closed before the new trade was opened.
type OpenResult struct {
	Trade         *Trade    `json:"trade"`
	TPTrade       *Trade    `json:"tpTrade,omitempty"`
	ClosedFirst   []*Trade  `json:"closedFirst,omitempty"`
	FailedToClose []string  `json:"failedToClose,omitempty"`
	Snapshot      *Snapshot `json:"snapshot"`
}

// CloseResult is returned by a successful close
type CloseResult struct {
	Trade         *Trade    `json:"trade"`
	Profit        float64   `json:"profit"`
	PercentProfit float64   `json:"percentProfit"`
	Snapshot      *Snapshot `json:"snapshot"`
}

// CloseAllResult is returned by closing every open trade of an account
type CloseAllResult struct {
	Closed   []*Trade  `json:"closed"`
	Failed   []string  `json:"failed,omitempty"`
	Snapshot *Snapshot `json:"snapshot"`
}

// LeafSettingsPatch updates the sizing parameters of one leaf account
type LeafSettingsPatch struct {
	TradePercent *float64 `json:"tradePercent,omitempty"`
	Leverage     *float64 `json:"leverage,omitempty"`
}
