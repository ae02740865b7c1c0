package service

import (
	"fmt"

	"tradeledger/configs"
	"tradeledger/internal/domain"
)

// AccountRegistry maps account identifiers to journals and their place in the aggregation tree.
// It is built once at startup and never mutated.
type AccountRegistry struct {
	cfg       *configs.AccountsConfig
	accounts  map[string]*domain.Account
	byJournal map[string]*domain.Account
	leafIDs   []string
	tpSet     map[string]bool
}

// NewAccountRegistry creates a registry from the accounts configuration
func NewAccountRegistry(cfg *configs.AccountsConfig) *AccountRegistry {
	r := &AccountRegistry{
		cfg:       cfg,
		accounts:  make(map[string]*domain.Account),
		byJournal: make(map[string]*domain.Account),
		tpSet:     make(map[string]bool),
	}

	r.add(&domain.Account{ID: cfg.Global.ID, Kind: domain.KindGlobal, JournalKey: cfg.Global.Journal})

	for _, v := range cfg.Family.Versions {
		r.leafIDs = append(r.leafIDs, cfg.Family.ID+v)
	}
	r.add(&domain.Account{
		ID:         cfg.Family.ID,
		Kind:       domain.KindAggregate,
		JournalKey: cfg.Family.Journal,
		ParentID:   cfg.Global.ID,
		ChildIDs:   append([]string(nil), r.leafIDs...),
	})
	for _, id := range r.leafIDs {
		r.add(&domain.Account{ID: id, Kind: domain.KindLeaf, JournalKey: id, ParentID: cfg.Family.ID})
	}

	for _, a := range cfg.Independent {
		r.add(&domain.Account{ID: a.ID, Kind: domain.KindIndependent, JournalKey: a.Journal, ParentID: cfg.Global.ID})
	}
	r.add(&domain.Account{ID: cfg.Exchange.ID, Kind: domain.KindExchange, JournalKey: cfg.Exchange.Journal, ParentID: cfg.Global.ID})
	r.add(&domain.Account{ID: cfg.Paper.ID, Kind: domain.KindPaper, JournalKey: cfg.Paper.Journal})
	r.byJournal[cfg.TP.Journal] = &domain.Account{ID: cfg.TP.Journal, Kind: domain.KindTP, JournalKey: cfg.TP.Journal}

	for _, id := range cfg.TP.Strategies {
		r.tpSet[id] = true
	}
	return r
}

func (r *AccountRegistry) add(a *domain.Account) {
	r.accounts[a.ID] = a
	r.byJournal[a.JournalKey] = a
}

// Resolve returns the account for an identifier
func (r *AccountRegistry) Resolve(id string) (*domain.Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAccount, id)
	}
	return a, nil
}

// Global returns the global ledger account
func (r *AccountRegistry) Global() *domain.Account {
	return r.accounts[r.cfg.Global.ID]
}

// Aggregate returns the family aggregate account
func (r *AccountRegistry) Aggregate() *domain.Account {
	return r.accounts[r.cfg.Family.ID]
}

// Exchange returns the venue-backed account
func (r *AccountRegistry) Exchange() *domain.Account {
	return r.accounts[r.cfg.Exchange.ID]
}

// PaperJournal returns the journal key that collects simulated trades
func (r *AccountRegistry) PaperJournal() string {
	return r.cfg.Paper.Journal
}

// TPJournal returns the journal key of the take-profit journal
func (r *AccountRegistry) TPJournal() string {
	return r.cfg.TP.Journal
}

// LeafIDs returns the leaf identifiers in configured order
func (r *AccountRegistry) LeafIDs() []string {
	return append([]string(nil), r.leafIDs...)
}

// Leaves returns the leaf accounts in configured order
func (r *AccountRegistry) Leaves() []*domain.Account {
	leaves := make([]*domain.Account, 0, len(r.leafIDs))
	for _, id := range r.leafIDs {
		leaves = append(leaves, r.accounts[id])
	}
	return leaves
}

// Tradable returns every account trades can be opened against
func (r *AccountRegistry) Tradable() []*domain.Account {
	out := []*domain.Account{r.Aggregate()}
	out = append(out, r.Leaves()...)
	for _, a := range r.cfg.Independent {
		out = append(out, r.accounts[a.ID])
	}
	return append(out, r.Exchange())
}

// IsFamily reports whether id is the aggregate or one of its leaves
func (r *AccountRegistry) IsFamily(id string) bool {
	a, ok := r.accounts[id]
	if !ok {
		return false
	}
	return a.Kind == domain.KindAggregate || a.Kind == domain.KindLeaf
}

// FamilyBase returns the identifier alerts use for the family
func (r *AccountRegistry) FamilyBase() string {
	return r.cfg.Family.ID
}

// LeafForVersion maps a family version tag to its leaf identifier
func (r *AccountRegistry) LeafForVersion(version string) (string, error) {
	id := r.cfg.Family.ID + version
	if a, ok := r.accounts[id]; ok && a.IsLeaf() {
		return id, nil
	}
	return "", fmt.Errorf("%w: unknown %s version %q", domain.ErrValidation, r.cfg.Family.ID, version)
}

// TracksTP reports whether trades of the account also get a take-profit journal entry
func (r *AccountRegistry) TracksTP(id string) bool {
	return r.tpSet[id]
}

// FallbackSymbol is used when an alert carries a placeholder symbol
func (r *AccountRegistry) FallbackSymbol() string {
	if r.cfg.Fallback.Symbol == "" {
		return r.cfg.Global.Symbol
	}
	return r.cfg.Fallback.Symbol
}

// JournalKeys returns every journal key known to the registry
func (r *AccountRegistry) JournalKeys() []string {
	keys := make([]string, 0, len(r.byJournal))
	for k := range r.byJournal {
		keys = append(keys, k)
	}
	return keys
}

// DefaultLeafSettings returns the capital simulation a new leaf starts with
func (r *AccountRegistry) DefaultLeafSettings() *domain.AccountSettings {
	d := r.cfg.Family.Defaults
	return &domain.AccountSettings{
		InitialBalance: d.InitialBalance,
		CurrentBalance: d.InitialBalance,
		MaxBalance:     d.InitialBalance,
		MinBalance:     d.InitialBalance,
		TradePercent:   d.TradePercent,
		Leverage:       d.Leverage,
	}
}

// DefaultBotSettings returns the global switches a new ledger starts with
func (r *AccountRegistry) DefaultBotSettings() *domain.BotSettings {
	return &domain.BotSettings{
		Symbol:            r.cfg.Global.Symbol,
		BalancePercentage: r.cfg.Global.BalancePercent,
		AutoTrade:         r.cfg.Global.AutoTrade,
	}
}

// DefaultDocument implements domain.Defaulter
func (r *AccountRegistry) DefaultDocument(key string) *domain.Document {
	doc := &domain.Document{TradeHistory: []*domain.Trade{}}
	r.Backfill(key, doc)
	return doc
}

// Backfill implements domain.Defaulter
func (r *AccountRegistry) Backfill(key string, doc *domain.Document) {
	if doc.TradeHistory == nil {
		doc.TradeHistory = []*domain.Trade{}
	}
	if doc.Statistics == nil {
		doc.Statistics = &domain.Statistics{}
	}

	a, ok := r.byJournal[key]
	if !ok {
		return
	}
	switch a.Kind {
	case domain.KindLeaf:
		if doc.Settings == nil {
			doc.Settings = r.DefaultLeafSettings()
		} else {
			backfillLeafSettings(doc.Settings, r.DefaultLeafSettings())
		}
	case domain.KindGlobal:
		if doc.BotSettings == nil {
			doc.BotSettings = r.DefaultBotSettings()
		}
	}
}

// backfillLeafSettings fills zero-valued fields from defaults.
// A zero balance is only replaced when every balance field is zero, so a wiped-out leaf stays at 0.
func backfillLeafSettings(s, defaults *domain.AccountSettings) {
	if s.InitialBalance == 0 && s.CurrentBalance == 0 && s.MaxBalance == 0 && s.MinBalance == 0 {
		s.InitialBalance = defaults.InitialBalance
		s.CurrentBalance = defaults.CurrentBalance
		s.MaxBalance = defaults.MaxBalance
		s.MinBalance = defaults.MinBalance
	}
	if s.TradePercent <= 0 {
		s.TradePercent = defaults.TradePercent
	}
	if s.Leverage <= 0 {
		s.Leverage = defaults.Leverage
	}
}
