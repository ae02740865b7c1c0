package domain

import "time"

// Snapshot is the state handed to the presentation layer after a mutation
type Snapshot struct {
	Global      *Statistics            `json:"global"`
	Aggregate   *Statistics            `json:"aggregate,omitempty"`
	Accounts    map[string]*Statistics `json:"accounts"`
	Exchange    *Statistics            `json:"exchange,omitempty"`
	TP          *Statistics            `json:"tp,omitempty"`
	Settings    *BotSettings           `json:"settings,omitempty"`
	OpenTrades  []*Trade               `json:"openTrades"`
	GeneratedAt time.Time              `json:"generatedAt"`
}

// Balances is the venue wallet summary in USDT
type Balances struct {
	Futures float64 `json:"futures"`
	Spot    float64 `json:"spot"`
	Total   float64 `json:"total"`
}

// MonitorReport summarizes one SL/TP pass
type MonitorReport struct {
	Checked int      `json:"checked"`
	Closed  []string `json:"closed"`
	Failed  []string `json:"failed"`
	Skipped int      `json:"skipped"`
}
