package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"tradeledger/internal/domain"
	"tradeledger/internal/service"
)

// SettingsService reads and updates bot switches and leaf sizing
type SettingsService struct {
	store       domain.JournalStore
	registry    *service.AccountRegistry
	aggregation *AggregationService
	publisher   domain.SnapshotPublisher
	lock        sync.Locker
	logger      *zap.Logger
}

// NewSettingsService creates a new SettingsService. lock must be the trading mutation lock.
func NewSettingsService(
	store domain.JournalStore,
	registry *service.AccountRegistry,
	aggregation *AggregationService,
	lock sync.Locker,
	logger *zap.Logger,
) *SettingsService {
	return &SettingsService{
		store:       store,
		registry:    registry,
		aggregation: aggregation,
		lock:        lock,
		logger:      logger,
	}
}

// SetPublisher sets where snapshots go after a settings change
func (s *SettingsService) SetPublisher(publisher domain.SnapshotPublisher) {
	s.publisher = publisher
}

// GetBotSettings returns the global bot settings
func (s *SettingsService) GetBotSettings(ctx context.Context) (*domain.BotSettings, error) {
	doc, err := s.store.Read(ctx, s.registry.Global().JournalKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read global journal: %w", err)
	}
	if doc.BotSettings == nil {
		return s.registry.DefaultBotSettings(), nil
	}
	bs := *doc.BotSettings
	return &bs, nil
}

// SetAutoTrade switches alert-driven trades between real and simulated
func (s *SettingsService) SetAutoTrade(ctx context.Context, enabled bool) (*domain.BotSettings, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	key := s.registry.Global().JournalKey
	doc, err := s.store.Read(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read global journal: %w", err)
	}
	if doc.BotSettings == nil {
		doc.BotSettings = s.registry.DefaultBotSettings()
	}
	doc.BotSettings.AutoTrade = enabled

	if err := s.store.Write(ctx, key, doc); err != nil {
		return nil, fmt.Errorf("failed to write global journal: %w", err)
	}

	s.logger.Info("auto trade updated", zap.Bool("auto_trade", enabled))
	if snap, err := s.aggregation.Sync(ctx, key); err != nil {
		s.logger.Error("failed to recompute statistics after auto trade change", zap.Error(err))
	} else {
		publishSnapshot(ctx, s.publisher, snap, s.logger)
	}

	bs := *doc.BotSettings
	return &bs, nil
}

// GetLeafSettings returns the capital simulation of a leaf
func (s *SettingsService) GetLeafSettings(ctx context.Context, accountID string) (*domain.AccountSettings, error) {
	account, err := s.leaf(accountID)
	if err != nil {
		return nil, err
	}
	doc, err := s.store.Read(ctx, account.JournalKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaf journal %s: %w", account.JournalKey, err)
	}
	settings := *doc.Settings
	return &settings, nil
}

// UpdateLeafSettings applies sizing patches to leaves. All patches are validated before any
// journal is written.
func (s *SettingsService) UpdateLeafSettings(ctx context.Context, patches map[string]domain.LeafSettingsPatch) (*domain.Snapshot, error) {
	if len(patches) == 0 {
		return nil, fmt.Errorf("%w: no leaf settings given", domain.ErrValidation)
	}

	ids := make([]string, 0, len(patches))
	for id, patch := range patches {
		if _, err := s.leaf(id); err != nil {
			return nil, err
		}
		if err := validatePatch(id, patch); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	s.lock.Lock()
	defer s.lock.Unlock()

	touched := make([]string, 0, len(ids))
	for _, id := range ids {
		account, _ := s.leaf(id)
		doc, err := s.store.Read(ctx, account.JournalKey)
		if err != nil {
			return nil, fmt.Errorf("failed to read leaf journal %s: %w", account.JournalKey, err)
		}

		patch := patches[id]
		if patch.TradePercent != nil {
			doc.Settings.TradePercent = *patch.TradePercent
		}
		if patch.Leverage != nil {
			doc.Settings.Leverage = *patch.Leverage
		}

		if err := s.store.Write(ctx, account.JournalKey, doc); err != nil {
			return nil, fmt.Errorf("failed to write leaf journal %s: %w", account.JournalKey, err)
		}
		touched = append(touched, account.JournalKey)

		s.logger.Info("leaf settings updated",
			zap.String("account", id),
			zap.Float64("trade_percent", doc.Settings.TradePercent),
			zap.Float64("leverage", doc.Settings.Leverage),
		)
	}

	snap, err := s.aggregation.Sync(ctx, touched...)
	if err != nil {
		return nil, fmt.Errorf("failed to recompute statistics: %w", err)
	}
	publishSnapshot(ctx, s.publisher, snap, s.logger)
	return snap, nil
}

func (s *SettingsService) leaf(id string) (*domain.Account, error) {
	account, err := s.registry.Resolve(id)
	if err != nil {
		return nil, err
	}
	if !account.IsLeaf() {
		return nil, fmt.Errorf("%w: %s has no capital settings", domain.ErrValidation, id)
	}
	return account, nil
}

func validatePatch(id string, p domain.LeafSettingsPatch) error {
	if p.TradePercent == nil && p.Leverage == nil {
		return fmt.Errorf("%w: empty settings for %s", domain.ErrValidation, id)
	}
	if p.TradePercent != nil && (*p.TradePercent <= 0 || *p.TradePercent > 100) {
		return fmt.Errorf("%w: tradePercent for %s must be in (0, 100]", domain.ErrValidation, id)
	}
	if p.Leverage != nil && *p.Leverage <= 0 {
		return fmt.Errorf("%w: leverage for %s must be positive", domain.ErrValidation, id)
	}
	return nil
}
