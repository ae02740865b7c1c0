package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tradeledger/internal/domain"
	"tradeledger/internal/service"
)

// TPService keeps the take-profit journal: a shadow copy of strategy trades that carry a
// take-profit target, settled separately from the strategy journal
type TPService struct {
	store    domain.JournalStore
	registry *service.AccountRegistry
	pnl      *service.PnLCalculator
	newID    func() string
	now      func() time.Time
	logger   *zap.Logger
}

// NewTPService creates a new TPService
func NewTPService(
	store domain.JournalStore,
	registry *service.AccountRegistry,
	pnl *service.PnLCalculator,
	newID func() string,
	logger *zap.Logger,
) *TPService {
	return &TPService{
		store:    store,
		registry: registry,
		pnl:      pnl,
		newID:    newID,
		now:      time.Now,
		logger:   logger,
	}
}

// Log records a copy of trade under a new id
func (s *TPService) Log(ctx context.Context, trade *domain.Trade) (*domain.Trade, error) {
	key := s.registry.TPJournal()
	doc, err := s.store.Read(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read tp journal: %w", err)
	}

	tp := trade.Clone()
	tp.ID = s.newID()
	doc.Append(tp)

	if err := s.store.Write(ctx, key, doc); err != nil {
		return nil, fmt.Errorf("failed to write tp journal: %w", err)
	}

	s.logger.Info("tp trade logged",
		zap.String("trade_id", tp.ID),
		zap.String("source_trade_id", trade.ID),
		zap.String("account", trade.Indicator),
	)
	return tp.Clone(), nil
}

// Close settles an open TP trade. Margin is derived from entry notional and leverage.
func (s *TPService) Close(ctx context.Context, id string, exitPrice float64) (*domain.Trade, error) {
	if exitPrice <= 0 {
		return nil, fmt.Errorf("%w: exit price must be positive", domain.ErrValidation)
	}

	key := s.registry.TPJournal()
	doc, err := s.store.Read(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read tp journal: %w", err)
	}

	open := doc.FindOpen(id)
	if open == nil {
		return nil, fmt.Errorf("%w: tp trade %s", domain.ErrTradeNotFound, id)
	}

	margin := s.pnl.MarginFor(open.Price, open.Quantity, open.Leverage)
	closed := s.pnl.Settle(open, exitPrice, margin, s.now().UTC())
	open.ApplyClose(closed)

	if err := s.store.Write(ctx, key, doc); err != nil {
		return nil, fmt.Errorf("failed to write tp journal: %w", err)
	}

	s.logger.Info("tp trade closed",
		zap.String("trade_id", id),
		zap.Float64("profit", closed.ProfitValue()),
	)
	return closed, nil
}

// Trades returns the TP journal history
func (s *TPService) Trades(ctx context.Context) ([]*domain.Trade, error) {
	doc, err := s.store.Read(ctx, s.registry.TPJournal())
	if err != nil {
		return nil, fmt.Errorf("failed to read tp journal: %w", err)
	}
	return doc.TradeHistory, nil
}
