package dto

// OpenTradeRequest represents a manual open
type OpenTradeRequest struct {
	Indicator  string   `json:"indicator" validate:"required"`
	Type       string   `json:"type" validate:"required,oneof=buy sell"`
	Symbol     string   `json:"symbol" validate:"required"`
	Price      float64  `json:"price" validate:"gt=0"`
	Quantity   *float64 `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Leverage   *float64 `json:"leverage,omitempty" validate:"omitempty,gt=0"`
	StopLoss   *float64 `json:"stopLoss,omitempty"`
	TakeProfit *float64 `json:"takeProfit,omitempty"`
	RealTrade  bool     `json:"realTrade"`
}

// CloseTradeRequest represents a manual close of one trade or of an account
type CloseTradeRequest struct {
	ExitPrice float64 `json:"exitPrice" validate:"gt=0"`
	RealTrade bool    `json:"realTrade"`
}

// TradeQuery filters trade listings
type TradeQuery struct {
	Status  string `query:"status" validate:"omitempty,oneof=open closed"`
	Account string `query:"account"`
}
