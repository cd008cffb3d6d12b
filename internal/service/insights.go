package service

import (
	"context"

	"github.com/shopspring/decimal"

	"nexuserp/backend/internal/domain"
	"nexuserp/backend/internal/insight"
)

// Briefing asks the insight engine for a summary of the current state. It
// runs outside the state lock: the remote call may be slow and mutates
// nothing.
func (s *Service) Briefing(ctx context.Context, kind insight.Kind) (insight.Result, error) {
	state, err := s.State(ctx)
	if err != nil {
		return insight.Result{}, err
	}
	return s.insights.Generate(ctx, kind, snapshotOf(state))
}

func snapshotOf(state domain.BusinessState) insight.Snapshot {
	snap := insight.Snapshot{
		BusinessName: BusinessName,
		Revenue:      decimal.Zero,
		Expenses:     totalExpenses(state),
		SaleCount:    len(state.Sales),
	}
	if state.User != nil && state.User.BusinessName != "" {
		snap.BusinessName = state.User.BusinessName
	}
	for _, sale := range state.Sales {
		snap.Revenue = snap.Revenue.Add(decimal.NewFromFloat(sale.TotalPrice))
	}
	for _, item := range state.Inventory {
		if item.Quantity < LowStockThreshold {
			snap.LowStock++
		}
		if item.Quantity < CriticalStockThreshold {
			snap.CriticalStock++
		}
	}
	return snap
}
