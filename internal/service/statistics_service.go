package service

import (
	"go.uber.org/zap"

	"tradeledger/internal/domain"
)

// FoldMode selects how aggregate and global views combine overlapping histories
type FoldMode string

const (
	// FoldDedup keeps one record per canonical trade id, children first
	FoldDedup FoldMode = "dedup"
	// FoldLegacy concatenates histories, counting mirrored leaf trades more than once
	FoldLegacy FoldMode = "legacy"
)

// ParseFoldMode falls back to FoldDedup for unknown values
func ParseFoldMode(s string) FoldMode {
	if FoldMode(s) == FoldLegacy {
		return FoldLegacy
	}
	return FoldDedup
}

// StatisticsEngine derives statistics from trade histories. It holds no state besides its mode.
type StatisticsEngine struct {
	mode   FoldMode
	logger *zap.Logger
}

// NewStatisticsEngine creates a new StatisticsEngine
func NewStatisticsEngine(mode FoldMode, logger *zap.Logger) *StatisticsEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mode == FoldLegacy {
		logger.Warn("statistics fold mode is legacy: leaf trades are counted in both leaf and mirror journals")
	}
	return &StatisticsEngine{mode: mode, logger: logger}
}

// Mode returns the configured fold mode
func (e *StatisticsEngine) Mode() FoldMode {
	return e.mode
}

// Recompute derives the base statistics of a trade list.
// Wins have profit > 0; everything else, open trades included, counts as a loss.
func (e *StatisticsEngine) Recompute(trades []*domain.Trade) *domain.Statistics {
	stats := &domain.Statistics{}

	var winSum, lossSum, durationSum float64
	var durationCount int

	for _, t := range trades {
		if t == nil {
			continue
		}
		stats.TotalTrades++
		profit := t.ProfitValue()
		if profit > 0 {
			stats.Wins++
			winSum += profit
		} else {
			stats.Losses++
			lossSum += profit
		}
		if t.IsOpen() {
			stats.OpenTrades++
		}

		stats.TotalProfit += profit
		stats.TotalFees += t.FeeValue()
		stats.TotalPercentProfit += t.PercentProfitValue()

		if t.Duration.Valid {
			durationSum += t.Duration.Seconds
			durationCount++
		}
	}

	stats.WinRate = ratio(float64(stats.Wins), float64(stats.TotalTrades)) * 100
	stats.AvgProfit = ratio(stats.TotalProfit, float64(stats.TotalTrades))
	stats.AvgWin = ratio(winSum, float64(stats.Wins))
	stats.AvgLoss = ratio(lossSum, float64(stats.Losses))
	stats.AvgFee = ratio(stats.TotalFees, float64(stats.TotalTrades))
	stats.AvgPercentProfit = ratio(stats.TotalPercentProfit, float64(stats.TotalTrades))
	stats.AvgDuration = ratio(durationSum, float64(durationCount))

	return stats
}

// LeafStatistics recomputes a leaf journal and mirrors its settings balances.
// Used margin is a point-in-time estimate from the margin usage percent.
func (e *StatisticsEngine) LeafStatistics(doc *domain.Document) *domain.Statistics {
	stats := e.Recompute(doc.TradeHistory)
	if doc.Settings == nil {
		return stats
	}

	s := doc.Settings
	stats.Balance = &domain.BalanceSummary{
		InitialBalance:     s.InitialBalance,
		CurrentBalance:     s.CurrentBalance,
		MaxBalance:         s.MaxBalance,
		MinBalance:         s.MinBalance,
		TotalUsedMargin:    s.MarginUsagePercent / 100 * s.CurrentBalance,
		MarginUsagePercent: s.MarginUsagePercent,
	}
	return stats
}

// AggregateStatistics recomputes the aggregate from its own journal and its children.
// Children must already carry fresh statistics; their balances are summed, not recomputed.
func (e *StatisticsEngine) AggregateStatistics(own *domain.Document, children []*domain.Document) (*domain.Statistics, *domain.BalanceSummary) {
	histories := make([][]*domain.Trade, 0, len(children))
	for _, c := range children {
		histories = append(histories, c.TradeHistory)
	}

	stats := e.Recompute(e.Fold(histories, own.TradeHistory))
	summary := e.sumBalances(children)
	stats.Balance = summary

	return stats, copySummary(summary)
}

// GlobalStatistics recomputes the global ledger from its own history and the leaf histories,
// with the combined balance of the leaves
func (e *StatisticsEngine) GlobalStatistics(own *domain.Document, leaves []*domain.Document) *domain.Statistics {
	histories := make([][]*domain.Trade, 0, len(leaves))
	for _, l := range leaves {
		histories = append(histories, l.TradeHistory)
	}

	stats := e.Recompute(e.Fold(histories, own.TradeHistory))
	stats.Balance = e.sumBalances(leaves)
	return stats
}

// Fold combines child histories with an account's own history into one effective history.
// In dedup mode the first record seen for a canonical id wins, so children take precedence
// over mirrors and ledger copies.
func (e *StatisticsEngine) Fold(children [][]*domain.Trade, own []*domain.Trade) []*domain.Trade {
	if e.mode == FoldLegacy {
		out := append([]*domain.Trade(nil), own...)
		for _, h := range children {
			out = append(out, h...)
		}
		return out
	}

	seen := make(map[string]bool)
	out := make([]*domain.Trade, 0, len(own))
	add := func(trades []*domain.Trade) {
		for _, t := range trades {
			if t == nil {
				continue
			}
			id := t.CanonicalID()
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, t)
		}
	}
	for _, h := range children {
		add(h)
	}
	add(own)
	return out
}

func (e *StatisticsEngine) sumBalances(docs []*domain.Document) *domain.BalanceSummary {
	sum := &domain.BalanceSummary{}
	for _, d := range docs {
		b := balanceOf(d)
		if b == nil {
			b = e.LeafStatistics(d).Balance
		}
		if b == nil {
			continue
		}
		sum.InitialBalance += b.InitialBalance
		sum.CurrentBalance += b.CurrentBalance
		sum.MaxBalance += b.MaxBalance
		sum.MinBalance += b.MinBalance
		sum.TotalUsedMargin += b.TotalUsedMargin
	}
	sum.MarginUsagePercent = ratio(sum.TotalUsedMargin, sum.CurrentBalance) * 100
	return sum
}

func balanceOf(d *domain.Document) *domain.BalanceSummary {
	if d.Statistics == nil {
		return nil
	}
	return d.Statistics.Balance
}

func copySummary(s *domain.BalanceSummary) *domain.BalanceSummary {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
