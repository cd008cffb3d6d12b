package service

import (
	"context"
	"fmt"
	"strings"

	"nexuserp/backend/internal/domain"
	"nexuserp/backend/internal/xid"
)

// Checkout sells quantity units of one inventory item at the current VAT
// rate. Stock is checked against the freshly loaded state; a rejected sale
// leaves inventory, sales and the audit log untouched.
func (s *Service) Checkout(ctx context.Context, itemID string, quantity int) (domain.CheckoutResponse, error) {
	itemID = strings.TrimSpace(itemID)
	if quantity < 1 {
		return domain.CheckoutResponse{}, ErrInvalidQuantity
	}

	var (
		sale    domain.Sale
		pricing domain.SalePricing
	)
	state, err := s.mutate(ctx, "checkout", func(state *domain.BusinessState) (string, error) {
		item, ok := state.FindItem(itemID)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
		}
		if quantity > item.Quantity {
			return "", fmt.Errorf("%w: only %d units available", ErrInsufficientStock, item.Quantity)
		}

		pricing = PriceSale(item, quantity, state.Settings.VATRate)
		sale = domain.Sale{
			ID:           xid.New("sale"),
			ItemID:       item.ID,
			ItemName:     item.Name,
			QuantitySold: quantity,
			TotalPrice:   pricing.TotalPrice,
			CostBasis:    pricing.CostBasis,
			TaxAmount:    pricing.Tax,
			Timestamp:    s.now().UTC(),
		}

		inventory := make([]domain.InventoryItem, len(state.Inventory))
		for i, existing := range state.Inventory {
			if existing.ID == item.ID {
				existing.Quantity -= quantity
			}
			inventory[i] = existing
		}

		return s.applySale(state, sale, inventory), nil
	})
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	return domain.CheckoutResponse{Sale: sale, Pricing: pricing, State: state}, nil
}
