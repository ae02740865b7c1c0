package domain

import "context"

// OrderRequest is a venue order
type OrderRequest struct {
	Symbol   string
	Side     string
	Type     string
	Quantity float64
	Price    *float64
}

// Order types
const (
	OrderTypeMarket = "MARKET"
	OrderTypeLimit  = "LIMIT"
)

// OrderResult is the venue acknowledgement
type OrderResult struct {
	OrderID  int64
	AvgPrice float64
}

// ExecutionVenue accepts orders and reports prices
type ExecutionVenue interface {
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// BalanceProvider reports venue wallet balances
type BalanceProvider interface {
	Balances(ctx context.Context) (*Balances, error)
}

// SnapshotPublisher hands snapshots to the presentation layer
type SnapshotPublisher interface {
	Publish(ctx context.Context, snapshot *Snapshot) error
}

// Notifier sends human-readable trade notifications
type Notifier interface {
	TradeOpened(trade *Trade) error
	TradeClosed(trade *Trade, reason string) error
}
