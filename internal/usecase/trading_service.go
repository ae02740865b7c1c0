package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tradeledger/internal/domain"
	"tradeledger/internal/service"
)

// TradeDefaults is the sizing used for accounts without a capital simulation
type TradeDefaults struct {
	Quantity float64
	Leverage float64
}

// TradingService opens and closes trades across the global ledger and the account journals.
// Every mutation holds mu, so journals are never written concurrently by two operations.
type TradingService struct {
	mu sync.Mutex

	store       domain.JournalStore
	registry    *service.AccountRegistry
	pnl         *service.PnLCalculator
	aggregation *AggregationService
	tp          *TPService
	defaults    TradeDefaults

	venue     domain.ExecutionVenue
	notifier  domain.Notifier
	publisher domain.SnapshotPublisher

	newID  func() string
	now    func() time.Time
	logger *zap.Logger
}

// NewTradingService creates a new TradingService
func NewTradingService(
	store domain.JournalStore,
	registry *service.AccountRegistry,
	pnl *service.PnLCalculator,
	aggregation *AggregationService,
	tp *TPService,
	defaults TradeDefaults,
	logger *zap.Logger,
) *TradingService {
	if defaults.Quantity <= 0 {
		defaults.Quantity = 0.01
	}
	if defaults.Leverage <= 0 {
		defaults.Leverage = 125
	}
	return &TradingService{
		store:       store,
		registry:    registry,
		pnl:         pnl,
		aggregation: aggregation,
		tp:          tp,
		defaults:    defaults,
		newID:       func() string { return uuid.New().String() },
		now:         time.Now,
		logger:      logger,
	}
}

// SetVenue enables real orders on the exchange account
func (s *TradingService) SetVenue(venue domain.ExecutionVenue) {
	s.venue = venue
}

// SetNotifier sets the trade notifier
func (s *TradingService) SetNotifier(notifier domain.Notifier) {
	s.notifier = notifier
}

// SetPublisher sets where snapshots go after each mutation
func (s *TradingService) SetPublisher(publisher domain.SnapshotPublisher) {
	s.publisher = publisher
}

// Locker returns the mutation lock shared with the settings service
func (s *TradingService) Locker() sync.Locker {
	return &s.mu
}

// Open opens a trade, closing opposite positions of the same account first
func (s *TradingService) Open(ctx context.Context, in domain.OpenTradeInput) (*domain.OpenResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.registry.Resolve(in.AccountID)
	if err != nil {
		return nil, err
	}

	if in.Side == domain.SignalSLCross || in.Side == domain.SignalTPCross {
		return s.handleCrossSignal(ctx, account, in)
	}

	if err := s.validateOpen(account, in); err != nil {
		return nil, err
	}

	touched := newTouchSet()
	result := &domain.OpenResult{}

	closed, failed, err := s.closeOpposite(ctx, account, in, touched)
	if err != nil {
		return nil, err
	}
	result.ClosedFirst = closed
	result.FailedToClose = failed

	trade, err := s.buildTrade(ctx, account, in)
	if err != nil {
		return nil, s.abortOpen(ctx, touched, err)
	}

	if in.Real && account.Kind == domain.KindExchange {
		if err := s.placeEntryOrder(ctx, trade); err != nil {
			return nil, s.abortOpen(ctx, touched, err)
		}
	}

	if err := s.persistOpen(ctx, account, trade, touched); err != nil {
		return nil, s.abortOpen(ctx, touched, err)
	}
	result.Trade = trade.Clone()

	if s.registry.TracksTP(account.ID) && trade.TakeProfit != nil {
		tpTrade, err := s.tp.Log(ctx, trade)
		if err != nil {
			s.logger.Error("failed to log tp trade", zap.String("trade_id", trade.ID), zap.Error(err))
		} else {
			result.TPTrade = tpTrade
			touched.add(s.registry.TPJournal())
		}
	}

	s.logger.Info("trade opened",
		zap.String("trade_id", trade.ID),
		zap.String("account", account.ID),
		zap.String("side", trade.Type),
		zap.Float64("price", trade.Price),
		zap.Float64("quantity", trade.Quantity),
		zap.Float64("margin", trade.Margin),
		zap.Bool("real", trade.RealTrade),
	)
	s.notifyOpened(trade)

	result.Snapshot, err = s.syncAndPublish(ctx, touched)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Close closes an open trade at exitPrice
func (s *TradingService) Close(ctx context.Context, in domain.CloseTradeInput) (*domain.CloseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reason := in.Reason
	if reason == "" {
		reason = domain.ClosedByManual
	}

	touched := newTouchSet()
	closed, err := s.closeLocked(ctx, in.TradeID, in.ExitPrice, in.Real, reason, touched)
	if err != nil {
		return nil, err
	}

	snap, err := s.syncAndPublish(ctx, touched)
	if err != nil {
		return nil, err
	}
	return &domain.CloseResult{
		Trade:         closed,
		Profit:        closed.ProfitValue(),
		PercentProfit: closed.PercentProfitValue(),
		Snapshot:      snap,
	}, nil
}

// CloseAll closes every open trade of an account. Closing the aggregate also closes its leaves.
func (s *TradingService) CloseAll(ctx context.Context, accountID string, exitPrice float64, isReal bool) (*domain.CloseAllResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.registry.Resolve(accountID)
	if err != nil {
		return nil, err
	}
	if exitPrice <= 0 {
		return nil, fmt.Errorf("%w: exit price must be positive", domain.ErrValidation)
	}

	touched := newTouchSet()
	result, err := s.closeAccountLocked(ctx, account, exitPrice, isReal, domain.ClosedByManual, touched)
	if err != nil {
		return nil, err
	}

	result.Snapshot, err = s.syncAndPublish(ctx, touched)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CloseTP settles a trade of the take-profit journal
func (s *TradingService) CloseTP(ctx context.Context, id string, exitPrice float64) (*domain.CloseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	closed, err := s.tp.Close(ctx, id, exitPrice)
	if err != nil {
		return nil, err
	}

	touched := newTouchSet()
	touched.add(s.registry.TPJournal())
	snap, err := s.syncAndPublish(ctx, touched)
	if err != nil {
		return nil, err
	}
	return &domain.CloseResult{
		Trade:         closed,
		Profit:        closed.ProfitValue(),
		PercentProfit: closed.PercentProfitValue(),
		Snapshot:      snap,
	}, nil
}

// Trades returns the trades of the global ledger filtered by status ("open", "closed" or "")
// and account id ("" for all)
func (s *TradingService) Trades(ctx context.Context, status, accountID string) ([]*domain.Trade, error) {
	doc, err := s.store.Read(ctx, s.registry.Global().JournalKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read global journal: %w", err)
	}
	return filterTrades(doc.TradeHistory, status, accountID), nil
}

// JournalTrades returns the history of an auxiliary journal such as the paper or exchange journal
func (s *TradingService) JournalTrades(ctx context.Context, key string) ([]*domain.Trade, error) {
	doc, err := s.store.Read(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal %s: %w", key, err)
	}
	return doc.TradeHistory, nil
}

// OpenRealTrades returns the open real trades of the global ledger
func (s *TradingService) OpenRealTrades(ctx context.Context) ([]*domain.Trade, error) {
	trades, err := s.Trades(ctx, "open", "")
	if err != nil {
		return nil, err
	}
	live := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t.RealTrade {
			live = append(live, t)
		}
	}
	return live, nil
}

// handleCrossSignal ignores SL/TP cross alerts on the family; elsewhere they close the account
func (s *TradingService) handleCrossSignal(ctx context.Context, account *domain.Account, in domain.OpenTradeInput) (*domain.OpenResult, error) {
	if s.registry.IsFamily(account.ID) {
		s.logger.Info("ignoring cross signal for family account",
			zap.String("account", account.ID),
			zap.String("signal", in.Side),
		)
		return nil, fmt.Errorf("%w: %s on %s", domain.ErrIgnoredSignal, in.Side, account.ID)
	}
	if in.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", domain.ErrValidation)
	}

	touched := newTouchSet()
	closed, err := s.closeAccountLocked(ctx, account, in.Price, in.Real, domain.ClosedBySignal, touched)
	if err != nil {
		return nil, err
	}

	snap, err := s.syncAndPublish(ctx, touched)
	if err != nil {
		return nil, err
	}
	return &domain.OpenResult{ClosedFirst: closed.Closed, Snapshot: snap}, nil
}

func (s *TradingService) validateOpen(account *domain.Account, in domain.OpenTradeInput) error {
	if !account.Tradable() {
		return fmt.Errorf("%w: account %s does not accept trades", domain.ErrValidation, account.ID)
	}
	if in.Side != domain.SideBuy && in.Side != domain.SideSell {
		return fmt.Errorf("%w: unknown side %q", domain.ErrValidation, in.Side)
	}
	if in.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", domain.ErrValidation)
	}
	if in.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", domain.ErrValidation)
	}
	if in.Quantity != nil && *in.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}
	if in.Leverage != nil && *in.Leverage <= 0 {
		return fmt.Errorf("%w: leverage must be positive", domain.ErrValidation)
	}
	return nil
}

// closeOpposite closes open trades of the account on the other side with the same real flag.
// A trade that cannot be closed is logged and reported; the open goes ahead.
func (s *TradingService) closeOpposite(ctx context.Context, account *domain.Account, in domain.OpenTradeInput, touched touchSet) ([]*domain.Trade, []string, error) {
	globalDoc, err := s.store.Read(ctx, s.registry.Global().JournalKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read global journal: %w", err)
	}

	var ids []string
	for _, t := range globalDoc.OpenTrades() {
		if t.Indicator == account.ID && t.Type != in.Side && t.RealTrade == in.Real {
			ids = append(ids, t.ID)
		}
	}

	closed := make([]*domain.Trade, 0, len(ids))
	var failed []string
	for _, id := range ids {
		c, err := s.closeLocked(ctx, id, in.Price, in.Real, domain.ClosedByOpposite, touched)
		if err != nil {
			s.logger.Error("failed to close opposite trade",
				zap.String("account", account.ID),
				zap.String("trade_id", id),
				zap.String("operation", "close_opposite"),
				zap.Error(err),
			)
			failed = append(failed, id)
			continue
		}
		closed = append(closed, c)
	}
	return closed, failed, nil
}

// abortOpen recomputes the journals already changed by a failed open, then returns err
func (s *TradingService) abortOpen(ctx context.Context, touched touchSet, err error) error {
	if len(touched) == 0 {
		return err
	}
	if _, syncErr := s.syncAndPublish(ctx, touched); syncErr != nil {
		s.logger.Error("failed to recompute statistics after aborted open", zap.Error(syncErr))
	}
	return err
}

// buildTrade sizes a new trade. Leaves size from their capital simulation, the rest use
// the caller's quantity and leverage.
func (s *TradingService) buildTrade(ctx context.Context, account *domain.Account, in domain.OpenTradeInput) (*domain.Trade, error) {
	trade := &domain.Trade{
		ID:         s.newID(),
		Indicator:  account.ID,
		Type:       in.Side,
		Symbol:     in.Symbol,
		Price:      in.Price,
		StopLoss:   positive(in.StopLoss),
		TakeProfit: positive(in.TakeProfit),
		RealTrade:  in.Real,
		StartTime:  s.now().UTC(),
	}

	if account.IsLeaf() {
		doc, err := s.store.Read(ctx, account.JournalKey)
		if err != nil {
			return nil, fmt.Errorf("failed to read leaf journal %s: %w", account.JournalKey, err)
		}
		settings := doc.Settings
		if settings == nil {
			settings = s.registry.DefaultLeafSettings()
		}
		qty, margin := s.pnl.Size(settings.CurrentBalance, settings.TradePercent, settings.Leverage, in.Price)
		if qty <= 0 {
			return nil, fmt.Errorf("%w: leaf %s has no balance to size from", domain.ErrValidation, account.ID)
		}
		trade.Quantity = qty
		trade.Margin = margin
		trade.Leverage = settings.Leverage
		trade.BalanceBefore = domain.Float(settings.CurrentBalance)
		return trade, nil
	}

	trade.Quantity = s.defaults.Quantity
	if in.Quantity != nil {
		trade.Quantity = *in.Quantity
	}
	trade.Leverage = s.defaults.Leverage
	if in.Leverage != nil {
		trade.Leverage = *in.Leverage
	}
	trade.Margin = s.pnl.MarginFor(trade.Price, trade.Quantity, trade.Leverage)
	return trade, nil
}

func (s *TradingService) placeEntryOrder(ctx context.Context, trade *domain.Trade) error {
	if s.venue == nil {
		return fmt.Errorf("%w: no execution venue configured", domain.ErrVenue)
	}
	if err := s.venue.SetLeverage(ctx, trade.Symbol, int(trade.Leverage)); err != nil {
		return err
	}
	res, err := s.venue.PlaceOrder(ctx, domain.OrderRequest{
		Symbol:   trade.Symbol,
		Side:     trade.Type,
		Type:     domain.OrderTypeMarket,
		Quantity: trade.Quantity,
	})
	if err != nil {
		return err
	}
	trade.OrderID = res.OrderID
	return nil
}

// persistOpen appends the trade to the global ledger first; that write decides success.
// The remaining journals are fanned out and their failures only logged.
func (s *TradingService) persistOpen(ctx context.Context, account *domain.Account, trade *domain.Trade, touched touchSet) error {
	globalKey := s.registry.Global().JournalKey
	globalDoc, err := s.store.Read(ctx, globalKey)
	if err != nil {
		return fmt.Errorf("failed to read global journal: %w", err)
	}
	globalDoc.Append(trade.Clone())
	if err := s.store.Write(ctx, globalKey, globalDoc); err != nil {
		return fmt.Errorf("failed to write global journal: %w", err)
	}
	touched.add(globalKey)

	s.appendTo(ctx, s.primaryJournal(account, trade.RealTrade), trade.Clone(), "open", touched)
	if account.IsLeaf() {
		s.appendTo(ctx, s.registry.Aggregate().JournalKey, trade.MirrorFor(account.ParentID), "open_mirror", touched)
	}
	if key := s.sideJournal(account, trade.RealTrade); key != "" {
		s.appendTo(ctx, key, trade.Clone(), "open", touched)
	}
	return nil
}

func (s *TradingService) appendTo(ctx context.Context, key string, trade *domain.Trade, operation string, touched touchSet) {
	doc, err := s.store.Read(ctx, key)
	if err == nil {
		doc.Append(trade)
		err = s.store.Write(ctx, key, doc)
	}
	if err != nil {
		s.logger.Error("journal fan-out failed",
			zap.String("account", key),
			zap.String("trade_id", trade.ID),
			zap.String("operation", operation),
			zap.Error(err),
		)
		return
	}
	touched.add(key)
}

// primaryJournal is where a trade of account lives besides the global ledger.
// Simulated trades on the exchange account never enter the exchange journal.
func (s *TradingService) primaryJournal(account *domain.Account, isReal bool) string {
	if account.Kind == domain.KindExchange && !isReal {
		return s.registry.PaperJournal()
	}
	return account.JournalKey
}

// sideJournal returns the paper journal for simulated trades not already kept there
func (s *TradingService) sideJournal(account *domain.Account, isReal bool) string {
	paper := s.registry.PaperJournal()
	if isReal || s.primaryJournal(account, isReal) == paper {
		return ""
	}
	return paper
}

// closeLocked settles one trade. The caller holds mu.
func (s *TradingService) closeLocked(ctx context.Context, id string, exitPrice float64, isReal bool, reason string, touched touchSet) (*domain.Trade, error) {
	if exitPrice <= 0 {
		return nil, fmt.Errorf("%w: exit price must be positive", domain.ErrValidation)
	}

	globalKey := s.registry.Global().JournalKey
	globalDoc, err := s.store.Read(ctx, globalKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read global journal: %w", err)
	}
	open := findOpen(globalDoc, id, isReal)
	if open == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTradeNotFound, id)
	}

	account, err := s.registry.Resolve(open.Indicator)
	if err != nil {
		return nil, fmt.Errorf("%w: %s has no account journal: %w", domain.ErrJournalInconsistent, id, err)
	}
	accountKey := s.primaryJournal(account, open.RealTrade)
	accountDoc, err := s.store.Read(ctx, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal %s: %w", accountKey, err)
	}
	accountTrade := accountDoc.FindOpen(id)
	if accountTrade == nil {
		return nil, fmt.Errorf("%w: %s not open in %s", domain.ErrJournalInconsistent, id, accountKey)
	}

	if open.RealTrade && account.Kind == domain.KindExchange {
		if err := s.placeExitOrder(ctx, open); err != nil {
			return nil, err
		}
	}

	closed := s.pnl.Settle(open, exitPrice, open.Margin, s.now().UTC())
	if account.IsLeaf() {
		if accountDoc.Settings == nil {
			accountDoc.Settings = s.registry.DefaultLeafSettings()
		}
		closed.BalanceAfter = domain.Float(accountDoc.Settings.ApplyProfit(closed.ProfitValue()))
	}

	open.ApplyClose(closed)
	if err := s.store.Write(ctx, globalKey, globalDoc); err != nil {
		return nil, fmt.Errorf("failed to write global journal: %w", err)
	}
	touched.add(globalKey)

	accountTrade.ApplyClose(closed)
	if err := s.store.Write(ctx, accountKey, accountDoc); err != nil {
		s.logFanOut(accountKey, id, "close", err)
	} else {
		touched.add(accountKey)
	}

	if account.IsLeaf() {
		s.closeIn(ctx, s.registry.Aggregate().JournalKey, id+domain.AggregateSuffix, closed, touched)
	}
	if key := s.sideJournal(account, open.RealTrade); key != "" {
		s.closeIn(ctx, key, id, closed, touched)
	}

	s.logger.Info("trade closed",
		zap.String("trade_id", id),
		zap.String("account", account.ID),
		zap.String("reason", reason),
		zap.Float64("exit_price", exitPrice),
		zap.Float64("profit", closed.ProfitValue()),
	)
	s.notifyClosed(closed, reason)
	return closed, nil
}

func (s *TradingService) closeIn(ctx context.Context, key, id string, closed *domain.Trade, touched touchSet) {
	doc, err := s.store.Read(ctx, key)
	if err != nil {
		s.logFanOut(key, id, "close", err)
		return
	}
	t := doc.FindOpen(id)
	if t == nil {
		s.logger.Warn("trade missing from journal on close", zap.String("account", key), zap.String("trade_id", id))
		return
	}
	t.ApplyClose(closed)
	if err := s.store.Write(ctx, key, doc); err != nil {
		s.logFanOut(key, id, "close", err)
		return
	}
	touched.add(key)
}

func (s *TradingService) placeExitOrder(ctx context.Context, open *domain.Trade) error {
	if s.venue == nil {
		return fmt.Errorf("%w: no execution venue configured", domain.ErrVenue)
	}
	_, err := s.venue.PlaceOrder(ctx, domain.OrderRequest{
		Symbol:   open.Symbol,
		Side:     open.OppositeSide(),
		Type:     domain.OrderTypeMarket,
		Quantity: open.Quantity,
	})
	return err
}

// closeAccountLocked closes every open trade of account with the given real flag.
// Individual failures are collected, not returned.
func (s *TradingService) closeAccountLocked(ctx context.Context, account *domain.Account, exitPrice float64, isReal bool, reason string, touched touchSet) (*domain.CloseAllResult, error) {
	globalDoc, err := s.store.Read(ctx, s.registry.Global().JournalKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read global journal: %w", err)
	}

	owners := map[string]bool{account.ID: true}
	for _, child := range account.ChildIDs {
		owners[child] = true
	}

	var ids []string
	for _, t := range globalDoc.OpenTrades() {
		if owners[t.Indicator] && t.RealTrade == isReal {
			ids = append(ids, t.ID)
		}
	}

	result := &domain.CloseAllResult{Closed: make([]*domain.Trade, 0, len(ids))}
	for _, id := range ids {
		closed, err := s.closeLocked(ctx, id, exitPrice, isReal, reason, touched)
		if err != nil {
			s.logger.Error("failed to close trade", zap.String("trade_id", id), zap.String("account", account.ID), zap.Error(err))
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Closed = append(result.Closed, closed)
	}
	return result, nil
}

func (s *TradingService) syncAndPublish(ctx context.Context, touched touchSet) (*domain.Snapshot, error) {
	snap, err := s.aggregation.Sync(ctx, touched.keys()...)
	if err != nil {
		return nil, fmt.Errorf("failed to recompute statistics: %w", err)
	}
	publishSnapshot(ctx, s.publisher, snap, s.logger)
	return snap, nil
}

// publishSnapshot hands snap to publisher; failures are only logged
func publishSnapshot(ctx context.Context, publisher domain.SnapshotPublisher, snap *domain.Snapshot, logger *zap.Logger) {
	if publisher == nil || snap == nil {
		return
	}
	if err := publisher.Publish(ctx, snap); err != nil {
		logger.Warn("failed to publish snapshot", zap.Error(err))
	}
}

func (s *TradingService) notifyOpened(trade *domain.Trade) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.TradeOpened(trade); err != nil {
		s.logger.Warn("failed to send open notification", zap.String("trade_id", trade.ID), zap.Error(err))
	}
}

func (s *TradingService) notifyClosed(trade *domain.Trade, reason string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.TradeClosed(trade, reason); err != nil {
		s.logger.Warn("failed to send close notification", zap.String("trade_id", trade.ID), zap.Error(err))
	}
}

func (s *TradingService) logFanOut(key, id, operation string, err error) {
	s.logger.Error("journal fan-out failed",
		zap.String("account", key),
		zap.String("trade_id", id),
		zap.String("operation", operation),
		zap.Error(err),
	)
}

func findOpen(doc *domain.Document, id string, isReal bool) *domain.Trade {
	for _, t := range doc.TradeHistory {
		if t.ID == id && t.IsOpen() && t.RealTrade == isReal {
			return t
		}
	}
	return nil
}

func filterTrades(trades []*domain.Trade, status, accountID string) []*domain.Trade {
	out := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if accountID != "" && t.Indicator != accountID {
			continue
		}
		switch status {
		case "open":
			if !t.IsOpen() {
				continue
			}
		case "closed":
			if t.IsOpen() {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func positive(p *float64) *float64 {
	if p == nil || *p <= 0 {
		return nil
	}
	return domain.Float(*p)
}

// touchSet collects the journals written by one operation
type touchSet map[string]struct{}

func newTouchSet() touchSet {
	return make(touchSet)
}

func (t touchSet) add(key string) {
	t[key] = struct{}{}
}

func (t touchSet) keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	return keys
}
