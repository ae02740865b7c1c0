package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradeledger/configs"
	"tradeledger/internal/domain"
)

type mockTradeSource struct {
	mock.Mock
}

func (m *mockTradeSource) OpenRealTrades(ctx context.Context) ([]*domain.Trade, error) {
	args := m.Called(ctx)
	trades, _ := args.Get(0).([]*domain.Trade)
	return trades, args.Error(1)
}

type mockCloser struct {
	mock.Mock
}

func (m *mockCloser) Close(ctx context.Context, in domain.CloseTradeInput) (*domain.CloseResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*domain.CloseResult)
	return res, args.Error(1)
}

type mockPriceSource struct {
	mock.Mock
}

func (m *mockPriceSource) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Error(1)
}

func monitored(id, account, side, symbol string, sl, tp float64) *domain.Trade {
	return &domain.Trade{
		ID:         id,
		Indicator:  account,
		Type:       side,
		Symbol:     symbol,
		Price:      100,
		Quantity:   1,
		Leverage:   10,
		StopLoss:   domain.Float(sl),
		TakeProfit: domain.Float(tp),
		RealTrade:  true,
		StartTime:  time.Now(),
	}
}

func newMonitor(source *mockTradeSource, closer *mockCloser, prices *mockPriceSource) *MonitorService {
	registry := NewAccountRegistry(configs.DefaultAccounts())
	return NewMonitorService(source, closer, NewMarketPriceService(prices, zap.NewNop()), registry, zap.NewNop())
}

func TestMonitorClosesOnTriggers(t *testing.T) {
	source := &mockTradeSource{}
	closer := &mockCloser{}
	prices := &mockPriceSource{}

	source.On("OpenRealTrades", mock.Anything).Return([]*domain.Trade{
		monitored("long-tp", "easy_entry", domain.SideBuy, "BTCUSDT", 90, 110),
		monitored("short-sl", "ut_bot", domain.SideSell, "BTCUSDT", 105, 80),
		monitored("long-hold", "easy_entry", domain.SideBuy, "ETHUSDT", 90, 110),
		monitored("leaf", "eci_longA", domain.SideBuy, "BTCUSDT", 90, 110),
	}, nil)
	prices.On("CurrentPrice", mock.Anything, "BTCUSDT").Return(110.0, nil).Once()
	prices.On("CurrentPrice", mock.Anything, "ETHUSDT").Return(100.0, nil).Once()
	closer.On("Close", mock.Anything, domain.CloseTradeInput{TradeID: "long-tp", ExitPrice: 110, Real: true, Reason: domain.ClosedByTP}).
		Return(&domain.CloseResult{}, nil)
	closer.On("Close", mock.Anything, domain.CloseTradeInput{TradeID: "short-sl", ExitPrice: 110, Real: true, Reason: domain.ClosedBySL}).
		Return(&domain.CloseResult{}, nil)

	report, err := newMonitor(source, closer, prices).CheckPositions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 1, report.Skipped)
	assert.ElementsMatch(t, []string{"long-tp", "short-sl"}, report.Closed)
	assert.Empty(t, report.Failed)
	closer.AssertExpectations(t)
	prices.AssertExpectations(t)
}

func TestMonitorIsolatesFailures(t *testing.T) {
	source := &mockTradeSource{}
	closer := &mockCloser{}
	prices := &mockPriceSource{}

	source.On("OpenRealTrades", mock.Anything).Return([]*domain.Trade{
		monitored("a", "easy_entry", domain.SideBuy, "BTCUSDT", 0, 105),
		monitored("b", "ut_bot", domain.SideBuy, "BTCUSDT", 0, 105),
		monitored("c", "ut_bot", domain.SideBuy, "SOLUSDT", 0, 105),
	}, nil)
	prices.On("CurrentPrice", mock.Anything, "BTCUSDT").Return(106.0, nil)
	prices.On("CurrentPrice", mock.Anything, "SOLUSDT").Return(0.0, errors.New("timeout"))
	closer.On("Close", mock.Anything, mock.MatchedBy(func(in domain.CloseTradeInput) bool { return in.TradeID == "a" })).
		Return(nil, errors.New("disk full"))
	closer.On("Close", mock.Anything, mock.MatchedBy(func(in domain.CloseTradeInput) bool { return in.TradeID == "b" })).
		Return(&domain.CloseResult{}, nil)

	report, err := newMonitor(source, closer, prices).CheckPositions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, report.Closed)
	assert.ElementsMatch(t, []string{"a", "c"}, report.Failed)
}

func TestMonitorRejectsOverlappingPass(t *testing.T) {
	source := &mockTradeSource{}
	m := newMonitor(source, &mockCloser{}, &mockPriceSource{})
	m.running.Store(true)

	_, err := m.CheckPositions(context.Background())
	assert.ErrorIs(t, err, domain.ErrMonitorBusy)
	source.AssertNotCalled(t, "OpenRealTrades", mock.Anything)
}

func TestMonitorNothingOpen(t *testing.T) {
	source := &mockTradeSource{}
	source.On("OpenRealTrades", mock.Anything).Return([]*domain.Trade{}, nil)
	m := newMonitor(source, &mockCloser{}, &mockPriceSource{})

	report, err := m.CheckPositions(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Checked)
	assert.False(t, m.running.Load())
}

func TestMarketPriceServiceReportsMissing(t *testing.T) {
	prices := &mockPriceSource{}
	prices.On("CurrentPrice", mock.Anything, "BTCUSDT").Return(64000.0, nil).Once()
	prices.On("CurrentPrice", mock.Anything, "XRPUSDT").Return(0.0, errors.New("invalid symbol"))

	svc := NewMarketPriceService(prices, zap.NewNop())
	got, err := svc.FetchRealTimePrices(context.Background(), []string{"btcusdt", "BTCUSDT", "XRPUSDT"})

	assert.ErrorContains(t, err, "XRPUSDT")
	assert.Equal(t, map[string]float64{"BTCUSDT": 64000}, got)
	prices.AssertExpectations(t)
}
