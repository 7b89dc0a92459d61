package http

import (
	"time"

	"fintrack/internal/core"
)

// userView is the public part of a user. The password hash never leaves
// the service layer.
type userView struct {
	Email string      `json:"email"`
	ID    core.UserID `json:"_id"`
}

type loginResponse struct {
	Message string   `json:"message"`
	User    userView `json:"user"`
	Token   string   `json:"token"`
}

type renameResponse struct {
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

// transactionView renders a ledger record. Incomes carry "source" and expenses
// carry "category"; the unused one is omitted.
type transactionView struct {
	ID        string      `json:"_id"`
	Amount    core.Money  `json:"amount"`
	Source    string      `json:"source,omitempty"`
	Category  string      `json:"category,omitempty"`
	Date      string      `json:"date"`
	UserID    core.UserID `json:"userId"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func newTransactionView(t core.Transaction) transactionView {
	v := transactionView{
		ID:        t.ID,
		Amount:    t.Amount,
		Date:      t.Date.String(),
		UserID:    t.OwnerID,
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}
	if t.Kind == core.Income {
		v.Source = t.Descriptor
	} else {
		v.Category = t.Descriptor
	}
	return v
}

func newTransactionViews(ts []core.Transaction) []transactionView {
	views := make([]transactionView, 0, len(ts))
	for _, t := range ts {
		views = append(views, newTransactionView(t))
	}
	return views
}

type namedAmountView struct {
	Name   string     `json:"name"`
	Amount core.Money `json:"amount"`
}

type dashboardView struct {
	TotalIncome        core.Money        `json:"totalIncome"`
	TotalExpenses      core.Money        `json:"totalExpenses"`
	NetSavings         core.Money        `json:"netSavings"`
	IncomeCount        int64             `json:"incomeCount"`
	ExpenseCount       int64             `json:"expenseCount"`
	ExpensesByCategory []namedAmountView `json:"expensesByCategory"`
	IncomesBySource    []namedAmountView `json:"incomesBySource"`
}

func newNamedAmountViews(items []core.NamedAmount) []namedAmountView {
	views := make([]namedAmountView, 0, len(items))
	for _, it := range items {
		views = append(views, namedAmountView{Name: it.Name, Amount: it.Amount})
	}
	return views
}

func newDashboardView(d core.Dashboard) dashboardView {
	return dashboardView{
		TotalIncome:        d.Incomes.Total,
		TotalExpenses:      d.Expenses.Total,
		NetSavings:         d.NetSavings(),
		IncomeCount:        d.Incomes.Count,
		ExpenseCount:       d.Expenses.Count,
		ExpensesByCategory: newNamedAmountViews(d.Expenses.ByName),
		IncomesBySource:    newNamedAmountViews(d.Incomes.ByName),
	}
}
