package domain

// AccountKind is the position of an account in the aggregation tree
type AccountKind string

const (
	KindGlobal      AccountKind = "global"
	KindAggregate   AccountKind = "aggregate"
	KindLeaf        AccountKind = "leaf"
	KindIndependent AccountKind = "independent"
	KindExchange    AccountKind = "exchange"
	KindTP          AccountKind = "tp"
	KindPaper       AccountKind = "paper"
)

// Account describes where an account's journal lives and how it rolls up
type Account struct {
	ID         string      `json:"id"`
	Kind       AccountKind `json:"kind"`
	JournalKey string      `json:"journalKey"`
	ParentID   string      `json:"parentId,omitempty"`
	ChildIDs   []string    `json:"childIds,omitempty"`
}

// IsLeaf reports whether the account owns a capital simulation
func (a *Account) IsLeaf() bool {
	return a.Kind == KindLeaf
}

// IsAggregate reports whether the account only holds derived views of its children
func (a *Account) IsAggregate() bool {
	return a.Kind == KindAggregate
}

// Tradable reports whether trades can be opened against the account
func (a *Account) Tradable() bool {
	switch a.Kind {
	case KindLeaf, KindIndependent, KindExchange, KindAggregate:
		return true
	}
	return false
}
