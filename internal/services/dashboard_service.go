package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
)

type TotalsStore interface {
	LedgerTotals(ctx context.Context, kind core.TransactionKind, owner core.UserID) (core.LedgerTotals, error)
}

// DashboardService summarises both ledgers of an owner. Nothing is cached.
type DashboardService struct {
	store TotalsStore
}

func NewDashboardService(store TotalsStore) *DashboardService {
	return &DashboardService{store: store}
}

func (s *DashboardService) Summary(ctx context.Context, owner core.UserID) (core.Dashboard, error) {
	var d core.Dashboard
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.Incomes, err = s.store.LedgerTotals(ctx, core.Income, owner)
		return err
	})
	g.Go(func() error {
		var err error
		d.Expenses, err = s.store.LedgerTotals(ctx, core.Expense, owner)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, err
	}
	return d, nil
}
