package configs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AccountsConfig describes the account tree. It is fixed once the process starts.
type AccountsConfig struct {
	Global      GlobalAccount       `yaml:"global"`
	Family      FamilyAccount       `yaml:"family"`
	Independent []JournalAccount    `yaml:"independent"`
	Exchange    JournalAccount      `yaml:"exchange"`
	TP          TPJournal           `yaml:"tp"`
	Paper       JournalAccount      `yaml:"paper"`
	Fallback    FallbackAlertConfig `yaml:"fallback"`
}

// JournalAccount binds an account id to a journal key
type JournalAccount struct {
	ID      string `yaml:"id"`
	Journal string `yaml:"journal"`
}

// GlobalAccount is the top-level ledger
type GlobalAccount struct {
	JournalAccount `yaml:",inline"`
	Symbol         string  `yaml:"symbol"`
	BalancePercent float64 `yaml:"balancePercentage"`
	AutoTrade      bool    `yaml:"autoTrade"`
}

// FamilyAccount is the aggregate and its leaves. Leaf ids are ID + version tag.
type FamilyAccount struct {
	JournalAccount `yaml:",inline"`
	Versions       []string     `yaml:"versions"`
	Defaults       LeafDefaults `yaml:"defaults"`
}

// LeafDefaults seeds the capital simulation of a new leaf journal
type LeafDefaults struct {
	InitialBalance float64 `yaml:"initialBalance"`
	TradePercent   float64 `yaml:"tradePercent"`
	Leverage       float64 `yaml:"leverage"`
}

// TPJournal lists the strategies whose take-profit targets are tracked separately
type TPJournal struct {
	Journal    string   `yaml:"journal"`
	Strategies []string `yaml:"strategies"`
}

// FallbackAlertConfig holds the safe defaults used by alert normalization
type FallbackAlertConfig struct {
	Symbol string `yaml:"symbol"`
}

// DefaultAccounts returns the layout the bot has always run with
func DefaultAccounts() *AccountsConfig {
	return &AccountsConfig{
		Global: GlobalAccount{
			JournalAccount: JournalAccount{ID: "global", Journal: "db"},
			Symbol:         "BTCUSDT",
			BalancePercent: 1,
			AutoTrade:      true,
		},
		Family: FamilyAccount{
			JournalAccount: JournalAccount{ID: "eci_long", Journal: "eci_long"},
			Versions:       []string{"A", "B", "C", "D", "E"},
			Defaults: LeafDefaults{
				InitialBalance: 100,
				TradePercent:   10,
				Leverage:       125,
			},
		},
		Independent: []JournalAccount{
			{ID: "easy_entry", Journal: "easy"},
			{ID: "ut_bot", Journal: "utbot"},
		},
		Exchange: JournalAccount{ID: "futures", Journal: "exchangeTrades"},
		TP: TPJournal{
			Journal:    "tp",
			Strategies: []string{"easy_entry", "ut_bot"},
		},
		Paper:    JournalAccount{ID: "paper", Journal: "paperTrades"},
		Fallback: FallbackAlertConfig{Symbol: "BTCUSDT"},
	}
}

// LoadAccounts reads the account tree from a YAML file.
// An empty path yields DefaultAccounts; fields missing from the file keep their defaults.
func LoadAccounts(path string) (*AccountsConfig, error) {
	cfg := DefaultAccounts()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse accounts file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that ids and journal keys are present and unique
func (c *AccountsConfig) Validate() error {
	if len(c.Family.Versions) == 0 {
		return fmt.Errorf("accounts: family %q has no versions", c.Family.ID)
	}
	if c.Family.Defaults.Leverage <= 0 || c.Family.Defaults.TradePercent <= 0 {
		return fmt.Errorf("accounts: family defaults need positive leverage and tradePercent")
	}

	ids := map[string]bool{}
	journals := map[string]bool{}
	check := func(a JournalAccount) error {
		if a.ID == "" || a.Journal == "" {
			return fmt.Errorf("accounts: id and journal are required (got %q/%q)", a.ID, a.Journal)
		}
		if ids[a.ID] {
			return fmt.Errorf("accounts: duplicate id %q", a.ID)
		}
		if journals[a.Journal] {
			return fmt.Errorf("accounts: duplicate journal %q", a.Journal)
		}
		ids[a.ID] = true
		journals[a.Journal] = true
		return nil
	}

	all := []JournalAccount{c.Global.JournalAccount, c.Family.JournalAccount, c.Exchange, c.Paper}
	all = append(all, c.Independent...)
	for _, v := range c.Family.Versions {
		leaf := c.Family.ID + v
		all = append(all, JournalAccount{ID: leaf, Journal: leaf})
	}
	for _, a := range all {
		if err := check(a); err != nil {
			return err
		}
	}
	if c.TP.Journal == "" || journals[c.TP.Journal] {
		return fmt.Errorf("accounts: tp journal %q missing or reused", c.TP.Journal)
	}
	return nil
}
