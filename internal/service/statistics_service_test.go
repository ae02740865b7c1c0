package service

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"tradeledger/internal/domain"
)

func closedTrade(id string, profit, fee, pct, duration float64) *domain.Trade {
	end := time.Now()
	return &domain.Trade{
		ID:            id,
		Type:          domain.SideBuy,
		Price:         100,
		Quantity:      1,
		Leverage:      10,
		EndTime:       &end,
		Profit:        domain.Float(profit),
		Fee:           domain.Float(fee),
		PercentProfit: domain.Float(pct),
		Duration:      domain.Seconds(duration),
	}
}

func openTrade(id string) *domain.Trade {
	return &domain.Trade{ID: id, Type: domain.SideBuy, Price: 100, Quantity: 1, Leverage: 10, StartTime: time.Now()}
}

type StatisticsEngineTestSuite struct {
	suite.Suite
	engine *StatisticsEngine
}

func (suite *StatisticsEngineTestSuite) SetupTest() {
	suite.engine = NewStatisticsEngine(FoldDedup, nil)
}

func TestStatisticsEngineSuite(t *testing.T) {
	suite.Run(t, new(StatisticsEngineTestSuite))
}

func (suite *StatisticsEngineTestSuite) TestEmptyHistoryIsAllZero() {
	stats := suite.engine.Recompute(nil)

	suite.Equal(domain.Statistics{}, *stats)
	suite.False(math.IsNaN(stats.WinRate))
	suite.False(math.IsNaN(stats.AvgDuration))
}

func (suite *StatisticsEngineTestSuite) TestWinsLossesAndRates() {
	trades := []*domain.Trade{
		closedTrade("a", 10, 1, 100, 60),
		closedTrade("b", -4, 1, -40, 120),
		closedTrade("c", 0, 1, 0, 180),
		closedTrade("d", 6, 1, 60, 240),
	}

	stats := suite.engine.Recompute(trades)

	suite.Equal(4, stats.TotalTrades)
	suite.Equal(2, stats.Wins)
	suite.Equal(2, stats.Losses)
	suite.Equal(stats.TotalTrades, stats.Wins+stats.Losses)
	suite.InDelta(50.0, stats.WinRate, 1e-9)
	suite.InDelta(12.0, stats.TotalProfit, 1e-9)
	suite.InDelta(3.0, stats.AvgProfit, 1e-9)
	suite.InDelta(8.0, stats.AvgWin, 1e-9)
	suite.InDelta(-2.0, stats.AvgLoss, 1e-9)
	suite.InDelta(4.0, stats.TotalFees, 1e-9)
	suite.InDelta(1.0, stats.AvgFee, 1e-9)
	suite.InDelta(120.0, stats.TotalPercentProfit, 1e-9)
	suite.InDelta(30.0, stats.AvgPercentProfit, 1e-9)
	suite.InDelta(150.0, stats.AvgDuration, 1e-9)
}

func (suite *StatisticsEngineTestSuite) TestOpenTradesCountAsLossesWithoutDuration() {
	trades := []*domain.Trade{
		closedTrade("a", 5, 0.5, 50, 100),
		openTrade("b"),
	}

	stats := suite.engine.Recompute(trades)

	suite.Equal(2, stats.TotalTrades)
	suite.Equal(1, stats.Wins)
	suite.Equal(1, stats.Losses)
	suite.Equal(1, stats.OpenTrades)
	// the open trade has no duration so it does not dilute the average
	suite.InDelta(100.0, stats.AvgDuration, 1e-9)
}

func (suite *StatisticsEngineTestSuite) TestMalformedDurationExcluded() {
	bad := closedTrade("bad", 1, 0, 0, 0)
	bad.Duration = domain.Duration{}
	trades := []*domain.Trade{closedTrade("a", 1, 0, 0, 30), bad}

	stats := suite.engine.Recompute(trades)

	suite.InDelta(30.0, stats.AvgDuration, 1e-9)
}

func (suite *StatisticsEngineTestSuite) TestLeafMirrorsSettings() {
	doc := &domain.Document{
		TradeHistory: []*domain.Trade{closedTrade("a", 11.5, 1, 115, 10)},
		Settings: &domain.AccountSettings{
			InitialBalance:     100,
			CurrentBalance:     200,
			MaxBalance:         210,
			MinBalance:         90,
			TradePercent:       10,
			Leverage:           125,
			MarginUsagePercent: 25,
		},
	}

	stats := suite.engine.LeafStatistics(doc)

	suite.Require().NotNil(stats.Balance)
	suite.Equal(100.0, stats.Balance.InitialBalance)
	suite.Equal(200.0, stats.Balance.CurrentBalance)
	suite.Equal(210.0, stats.Balance.MaxBalance)
	suite.Equal(90.0, stats.Balance.MinBalance)
	suite.InDelta(50.0, stats.Balance.TotalUsedMargin, 1e-9)
	suite.Equal(1, stats.TotalTrades)
}

func (suite *StatisticsEngineTestSuite) leaf(id string, balance float64, trades ...*domain.Trade) *domain.Document {
	doc := &domain.Document{
		TradeHistory: trades,
		Settings: &domain.AccountSettings{
			InitialBalance:     100,
			CurrentBalance:     balance,
			MaxBalance:         balance + 5,
			MinBalance:         balance - 5,
			MarginUsagePercent: 10,
		},
	}
	for _, t := range trades {
		t.Indicator = id
	}
	doc.Statistics = suite.engine.LeafStatistics(doc)
	return doc
}

func (suite *StatisticsEngineTestSuite) TestAggregateSumsChildren() {
	a := suite.leaf("eci_longA", 110, closedTrade("t1", 10, 1, 100, 10))
	b := suite.leaf("eci_longB", 95, closedTrade("t2", -5, 1, -50, 10))
	c := suite.leaf("eci_longC", 100)

	own := &domain.Document{TradeHistory: []*domain.Trade{
		a.TradeHistory[0].MirrorFor("eci_long"),
		b.TradeHistory[0].MirrorFor("eci_long"),
	}}

	stats, summary := suite.engine.AggregateStatistics(own, []*domain.Document{a, b, c})

	suite.Equal(305.0, stats.Balance.CurrentBalance)
	suite.Equal(a.Statistics.TotalTrades+b.Statistics.TotalTrades+c.Statistics.TotalTrades, stats.TotalTrades)
	suite.InDelta(5.0, stats.TotalProfit, 1e-9)
	suite.Equal(320.0, summary.MaxBalance)
	suite.Equal(290.0, summary.MinBalance)
	suite.InDelta(30.5, summary.TotalUsedMargin, 1e-9)
	suite.InDelta(10.0, summary.MarginUsagePercent, 1e-9)
}

func (suite *StatisticsEngineTestSuite) TestAggregateKeepsDirectTrades() {
	a := suite.leaf("eci_longA", 100, closedTrade("t1", 3, 0, 0, 1))
	direct := closedTrade("direct", 2, 0, 0, 1)
	direct.Indicator = "eci_long"
	own := &domain.Document{TradeHistory: []*domain.Trade{a.TradeHistory[0].MirrorFor("eci_long"), direct}}

	stats, _ := suite.engine.AggregateStatistics(own, []*domain.Document{a})

	suite.Equal(2, stats.TotalTrades)
	suite.InDelta(5.0, stats.TotalProfit, 1e-9)
}

func (suite *StatisticsEngineTestSuite) TestGlobalReconcilesWithLeafProfits() {
	t1 := closedTrade("t1", 10, 1, 100, 10)
	t2 := closedTrade("t2", -3, 1, -30, 10)
	a := suite.leaf("eci_longA", 110, t1)
	b := suite.leaf("eci_longB", 97, t2)

	// the ledger holds its own copy of every leaf trade
	global := &domain.Document{TradeHistory: []*domain.Trade{t1.Clone(), t2.Clone()}}

	stats := suite.engine.GlobalStatistics(global, []*domain.Document{a, b})

	leafProfit := a.Statistics.TotalProfit + b.Statistics.TotalProfit
	suite.InDelta(leafProfit, stats.TotalProfit, 1e-9)
	suite.Equal(2, stats.TotalTrades)
	suite.Equal(207.0, stats.Balance.CurrentBalance)
}

func (suite *StatisticsEngineTestSuite) TestGlobalIncludesIndependentTrades() {
	a := suite.leaf("eci_longA", 100, closedTrade("t1", 1, 0, 0, 1))
	easy := closedTrade("e1", 4, 0, 0, 1)
	easy.Indicator = "easy_entry"
	global := &domain.Document{TradeHistory: []*domain.Trade{a.TradeHistory[0].Clone(), easy}}

	stats := suite.engine.GlobalStatistics(global, []*domain.Document{a})

	suite.Equal(2, stats.TotalTrades)
	suite.InDelta(5.0, stats.TotalProfit, 1e-9)
}

func TestLegacyFoldDoubleCountsLeafTrades(t *testing.T) {
	engine := NewStatisticsEngine(FoldLegacy, nil)

	t1 := closedTrade("t1", 10, 1, 100, 10)
	leaf := &domain.Document{TradeHistory: []*domain.Trade{t1}, Settings: &domain.AccountSettings{CurrentBalance: 110}}
	global := &domain.Document{TradeHistory: []*domain.Trade{t1.Clone()}}

	stats := engine.GlobalStatistics(global, []*domain.Document{leaf})

	// the legacy concatenation reads each leaf trade twice; reconciliation against the
	// leaf total fails by exactly the leaf profit
	require.Equal(t, 2, stats.TotalTrades)
	assert.InDelta(t, 2*leaf.TradeHistory[0].ProfitValue(), stats.TotalProfit, 1e-9)
}

func TestParseFoldMode(t *testing.T) {
	assert.Equal(t, FoldLegacy, ParseFoldMode("legacy"))
	assert.Equal(t, FoldDedup, ParseFoldMode("dedup"))
	assert.Equal(t, FoldDedup, ParseFoldMode("whatever"))
}
