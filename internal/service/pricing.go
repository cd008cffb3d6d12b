package service

import (
	"github.com/shopspring/decimal"

	"nexuserp/backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// PriceSale applies the point-of-sale rule: subtotal = price*qty,
// tax = subtotal*vat/100, total = subtotal+tax, costBasis = cost*qty.
// Every amount is computed exactly and rounded to cents only on return.
func PriceSale(item domain.InventoryItem, quantity int, vatRate float64) domain.SalePricing {
	qty := decimal.NewFromInt(int64(quantity))

	subtotal := decimal.NewFromFloat(item.Price).Mul(qty)
	tax := subtotal.Mul(decimal.NewFromFloat(vatRate)).Div(hundred)
	cost := decimal.NewFromFloat(item.Cost).Mul(qty)

	return domain.SalePricing{
		Subtotal:   subtotal.Round(2).InexactFloat64(),
		Tax:        tax.Round(2).InexactFloat64(),
		TotalPrice: subtotal.Add(tax).Round(2).InexactFloat64(),
		CostBasis:  cost.Round(2).InexactFloat64(),
	}
}
