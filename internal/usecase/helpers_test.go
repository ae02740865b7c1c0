package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"tradeledger/configs"
	"tradeledger/internal/domain"
	"tradeledger/internal/service"
)

// memStore is an in-memory JournalStore that round-trips through JSON like the real stores
type memStore struct {
	mu         sync.Mutex
	docs       map[string][]byte
	defaults   domain.Defaulter
	failWrites map[string]error
}

func newMemStore(defaults domain.Defaulter) *memStore {
	return &memStore{
		docs:       make(map[string][]byte),
		defaults:   defaults,
		failWrites: make(map[string]error),
	}
}

func (m *memStore) Read(_ context.Context, key string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc := m.defaults.DefaultDocument(key)
	if data, ok := m.docs[key]; ok {
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, err
		}
		m.defaults.Backfill(key, doc)
	}
	return doc, nil
}

func (m *memStore) Write(_ context.Context, key string, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failWrites[key]; err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.docs[key] = data
	return nil
}

func (m *memStore) raw(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.docs[key]...)
}

type mockVenue struct {
	mock.Mock
}

func (m *mockVenue) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	return m.Called(ctx, symbol, leverage).Error(0)
}

func (m *mockVenue) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*domain.OrderResult)
	return res, args.Error(1)
}

func (m *mockVenue) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, snapshot *domain.Snapshot) error {
	return m.Called(ctx, snapshot).Error(0)
}

// ledger wires the services against a memStore with a deterministic clock and ids
type ledger struct {
	registry    *service.AccountRegistry
	store       *memStore
	aggregation *AggregationService
	tp          *TPService
	trading     *TradingService
	settings    *SettingsService
}

func newLedger(mode service.FoldMode) *ledger {
	registry := service.NewAccountRegistry(configs.DefaultAccounts())
	store := newMemStore(registry)
	logger := zap.NewNop()
	pnl := service.NewPnLCalculator(service.DefaultFeeRate)
	stats := service.NewStatisticsEngine(mode, logger)

	aggregation := NewAggregationService(store, registry, stats, logger)
	tp := NewTPService(store, registry, pnl, sequence("tp"), logger)
	trading := NewTradingService(store, registry, pnl, aggregation, tp, TradeDefaults{}, logger)

	clock := steppingClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), time.Minute)
	trading.newID = sequence("t")
	trading.now = clock
	tp.now = clock

	return &ledger{
		registry:    registry,
		store:       store,
		aggregation: aggregation,
		tp:          tp,
		trading:     trading,
		settings:    NewSettingsService(store, registry, aggregation, trading.Locker(), logger),
	}
}

func (l *ledger) doc(key string) *domain.Document {
	doc, err := l.store.Read(context.Background(), key)
	if err != nil {
		panic(err)
	}
	return doc
}

func sequence(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(step)
		return current
	}
}
