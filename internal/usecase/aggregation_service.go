package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tradeledger/internal/domain"
	"tradeledger/internal/service"
)

// AggregationService recomputes derived statistics bottom-up after a mutation:
// leaves, then the aggregate, then the global ledger.
type AggregationService struct {
	store    domain.JournalStore
	registry *service.AccountRegistry
	stats    *service.StatisticsEngine
	logger   *zap.Logger
}

// NewAggregationService creates a new AggregationService
func NewAggregationService(
	store domain.JournalStore,
	registry *service.AccountRegistry,
	stats *service.StatisticsEngine,
	logger *zap.Logger,
) *AggregationService {
	return &AggregationService{
		store:    store,
		registry: registry,
		stats:    stats,
		logger:   logger,
	}
}

// syncPass caches documents read during one Sync call
type syncPass struct {
	ctx  context.Context
	svc  *AggregationService
	docs map[string]*domain.Document
}

func (p *syncPass) read(key string) (*domain.Document, error) {
	if doc, ok := p.docs[key]; ok {
		return doc, nil
	}
	doc, err := p.svc.store.Read(p.ctx, key)
	if err != nil {
		return nil, err
	}
	p.docs[key] = doc
	return doc, nil
}

// write persists a recomputed document. Failures are logged, the in-memory view stays usable.
func (p *syncPass) write(key string, doc *domain.Document) {
	if err := p.svc.store.Write(p.ctx, key, doc); err != nil {
		p.svc.logger.Error("failed to persist statistics",
			zap.String("journal", key),
			zap.String("operation", "sync"),
			zap.Error(err),
		)
	}
}

// Sync recomputes the statistics of the touched journals and of the global ledger, and
// returns the resulting snapshot. touched holds journal keys.
func (s *AggregationService) Sync(ctx context.Context, touched ...string) (*domain.Snapshot, error) {
	p := &syncPass{ctx: ctx, svc: s, docs: make(map[string]*domain.Document)}

	touchedSet := make(map[string]bool, len(touched))
	for _, k := range touched {
		touchedSet[k] = true
	}

	aggregate := s.registry.Aggregate()
	family := touchedSet[aggregate.JournalKey]
	for _, leaf := range s.registry.Leaves() {
		if touchedSet[leaf.JournalKey] {
			family = true
		}
	}

	leaves, err := s.leafDocs(p)
	if err != nil {
		return nil, err
	}

	if family {
		for i, leaf := range s.registry.Leaves() {
			doc := leaves[i]
			refreshMarginUsage(doc)
			doc.Statistics = s.stats.LeafStatistics(doc)
			p.write(leaf.JournalKey, doc)
		}

		aggDoc, err := p.read(aggregate.JournalKey)
		if err != nil {
			return nil, fmt.Errorf("failed to read aggregate journal: %w", err)
		}
		stats, summary := s.stats.AggregateStatistics(aggDoc, leaves)
		aggDoc.Statistics = stats
		aggDoc.AggregatedBalance = summary
		p.write(aggregate.JournalKey, aggDoc)
	}

	// flat journals: independents, exchange, paper, tp
	for _, key := range s.flatJournals() {
		if !touchedSet[key] {
			continue
		}
		doc, err := p.read(key)
		if err != nil {
			s.logger.Error("failed to read journal for statistics", zap.String("journal", key), zap.Error(err))
			continue
		}
		doc.Statistics = s.stats.Recompute(doc.TradeHistory)
		p.write(key, doc)
	}

	global := s.registry.Global()
	globalDoc, err := p.read(global.JournalKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read global journal: %w", err)
	}
	globalDoc.Statistics = s.stats.GlobalStatistics(globalDoc, leaves)
	p.write(global.JournalKey, globalDoc)

	return s.snapshot(p)
}

// SyncAll recomputes every journal
func (s *AggregationService) SyncAll(ctx context.Context) (*domain.Snapshot, error) {
	return s.Sync(ctx, s.registry.JournalKeys()...)
}

// Snapshot builds a snapshot from the stored statistics without recomputing anything
func (s *AggregationService) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	p := &syncPass{ctx: ctx, svc: s, docs: make(map[string]*domain.Document)}
	return s.snapshot(p)
}

// Statistics returns the stored statistics of an account
func (s *AggregationService) Statistics(ctx context.Context, accountID string) (*domain.Statistics, error) {
	account, err := s.registry.Resolve(accountID)
	if err != nil {
		return nil, err
	}
	doc, err := s.store.Read(ctx, account.JournalKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal %s: %w", account.JournalKey, err)
	}
	return doc.Statistics, nil
}

func (s *AggregationService) leafDocs(p *syncPass) ([]*domain.Document, error) {
	leaves := s.registry.Leaves()
	docs := make([]*domain.Document, 0, len(leaves))
	for _, leaf := range leaves {
		doc, err := p.read(leaf.JournalKey)
		if err != nil {
			return nil, fmt.Errorf("failed to read leaf journal %s: %w", leaf.JournalKey, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *AggregationService) flatJournals() []string {
	keys := []string{}
	for _, a := range s.registry.Tradable() {
		if a.Kind == domain.KindIndependent || a.Kind == domain.KindExchange {
			keys = append(keys, a.JournalKey)
		}
	}
	return append(keys, s.registry.PaperJournal(), s.registry.TPJournal())
}

func (s *AggregationService) snapshot(p *syncPass) (*domain.Snapshot, error) {
	global := s.registry.Global()
	globalDoc, err := p.read(global.JournalKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read global journal: %w", err)
	}

	snap := &domain.Snapshot{
		Global:      globalDoc.Statistics,
		Accounts:    make(map[string]*domain.Statistics),
		OpenTrades:  make([]*domain.Trade, 0),
		GeneratedAt: time.Now().UTC(),
	}
	if globalDoc.BotSettings != nil {
		bs := *globalDoc.BotSettings
		snap.Settings = &bs
	}
	for _, t := range globalDoc.OpenTrades() {
		snap.OpenTrades = append(snap.OpenTrades, t.Clone())
	}

	for _, a := range s.registry.Tradable() {
		doc, err := p.read(a.JournalKey)
		if err != nil {
			s.logger.Warn("journal unavailable for snapshot", zap.String("account", a.ID), zap.Error(err))
			continue
		}
		snap.Accounts[a.ID] = doc.Statistics
		switch a.Kind {
		case domain.KindAggregate:
			snap.Aggregate = doc.Statistics
		case domain.KindExchange:
			snap.Exchange = doc.Statistics
		}
	}

	if tpDoc, err := p.read(s.registry.TPJournal()); err == nil {
		snap.TP = tpDoc.Statistics
	} else {
		s.logger.Warn("tp journal unavailable for snapshot", zap.Error(err))
	}

	return snap, nil
}

// refreshMarginUsage sets a leaf's margin usage from the margin of its open trades
func refreshMarginUsage(doc *domain.Document) {
	if doc.Settings == nil {
		return
	}
	var used float64
	for _, t := range doc.OpenTrades() {
		used += t.Margin
	}
	if doc.Settings.CurrentBalance <= 0 {
		doc.Settings.MarginUsagePercent = 0
		return
	}
	doc.Settings.MarginUsagePercent = used / doc.Settings.CurrentBalance * 100
}
