package core

// NamedAmount represents an amount aggregated by category or source name.
type NamedAmount struct {
	Name   string
	Amount Money
}

// LedgerTotals is the aggregate of one transaction ledger for a single owner.
type LedgerTotals struct {
	Count  int64
	Total  Money
	ByName []NamedAmount
}

// Dashboard is a compact summary of both ledgers for one owner.
type Dashboard struct {
	Incomes  LedgerTotals
	Expenses LedgerTotals
}

// NetSavings is income minus expenses; it can be negative.
func (d Dashboard) NetSavings() Money {
	return Money{Cents: d.Incomes.Total.Cents - d.Expenses.Total.Cents}
}
