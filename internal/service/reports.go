package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"nexuserp/backend/internal/domain"
)

const (
	CriticalStockThreshold = 10
	LowStockThreshold      = 5

	// dailyBurnRate is the assumed units sold per day for the forecast.
	dailyBurnRate      = 1.5
	urgentForecastDays = 3
	invoiceWidth       = 40
)

// Dashboard aggregates KPIs from the current state. Financial fields are
// dropped for roles without the view_financials capability; the role comes
// from the request actor, then the stored session, then STAFF.
func (s *Service) Dashboard(ctx context.Context) (domain.DashboardMetrics, error) {
	state, err := s.State(ctx)
	if err != nil {
		return domain.DashboardMetrics{}, err
	}

	role := domain.RoleStaff
	if actor, ok := ActorFromContext(ctx); ok {
		role = actor.Role
	} else if state.User != nil {
		role = state.User.Role
	}

	revenue, cost := decimal.Zero, decimal.Zero
	for _, sale := range state.Sales {
		revenue = revenue.Add(decimal.NewFromFloat(sale.TotalPrice))
		cost = cost.Add(decimal.NewFromFloat(sale.CostBasis))
	}
	expenses := totalExpenses(state)

	critical, low := 0, 0
	for _, item := range state.Inventory {
		if item.Quantity < CriticalStockThreshold {
			critical++
		}
		if item.Quantity < LowStockThreshold {
			low++
		}
	}

	metrics := domain.DashboardMetrics{
		TotalRevenue: revenue.Round(2).InexactFloat64(),
		SaleCount:    len(state.Sales),
		SKUCount:     len(state.Inventory),
		LowStock:     low,
	}
	if domain.Allowed(role, domain.CapViewFinancials) {
		totalCost := cost.Round(2).InexactFloat64()
		profit := revenue.Sub(cost).Round(2).InexactFloat64()
		spent := expenses.Round(2).InexactFloat64()
		metrics.TotalCost = &totalCost
		metrics.GrossProfit = &profit
		metrics.TotalExpenses = &spent
		metrics.CriticalStock = &critical
	}
	return metrics, nil
}

func (s *Service) Payroll(ctx context.Context) (domain.PayrollSummary, error) {
	state, err := s.State(ctx)
	if err != nil {
		return domain.PayrollSummary{}, err
	}

	total := decimal.Zero
	lines := make([]domain.PayrollLine, 0, len(state.Employees))
	for _, emp := range state.Employees {
		gross := decimal.NewFromFloat(emp.HourlyRate).Mul(decimal.NewFromFloat(emp.HoursWorked)).Round(2)
		total = total.Add(gross)
		lines = append(lines, domain.PayrollLine{
			EmployeeID:  emp.ID,
			Name:        emp.Name,
			Role:        emp.Role,
			HourlyRate:  emp.HourlyRate,
			HoursWorked: emp.HoursWorked,
			GrossPay:    gross.InexactFloat64(),
		})
	}
	return domain.PayrollSummary{Lines: lines, Total: total.InexactFloat64()}, nil
}

func (s *Service) LowStock(ctx context.Context) ([]domain.LowStockAlert, error) {
	state, err := s.State(ctx)
	if err != nil {
		return nil, err
	}

	alerts := make([]domain.LowStockAlert, 0)
	for _, item := range state.Inventory {
		if item.Quantity >= LowStockThreshold {
			continue
		}
		alerts = append(alerts, domain.LowStockAlert{
			ItemID:   item.ID,
			SKU:      item.SKU,
			Name:     item.Name,
			Quantity: item.Quantity,
		})
	}
	return alerts, nil
}

// StockOutForecast estimates days of stock left per item at a flat burn rate.
func (s *Service) StockOutForecast(ctx context.Context) ([]domain.StockForecast, error) {
	state, err := s.State(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.StockForecast, 0, len(state.Inventory))
	for _, item := range state.Inventory {
		out = append(out, forecastItem(item))
	}
	return out, nil
}

func forecastItem(item domain.InventoryItem) domain.StockForecast {
	days := int(math.Floor(float64(item.Quantity) / dailyBurnRate))
	urgent := days < urgentForecastDays
	label := fmt.Sprintf("%d days", days)
	if urgent {
		label = "URGENT"
	}
	return domain.StockForecast{
		ItemID:   item.ID,
		SKU:      item.SKU,
		Name:     item.Name,
		Quantity: item.Quantity,
		Days:     days,
		Label:    label,
		Urgent:   urgent,
	}
}

// Invoice renders a fixed-width plain-text invoice for one recorded sale. The
// VAT rate shown is derived from the sale's own amounts, not current settings.
func (s *Service) Invoice(ctx context.Context, saleID string) (string, error) {
	state, err := s.State(ctx)
	if err != nil {
		return "", err
	}
	sale, ok := state.FindSale(saleID)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrSaleNotFound, saleID)
	}

	business := BusinessName
	if state.User != nil && state.User.BusinessName != "" {
		business = state.User.BusinessName
	}

	total := decimal.NewFromFloat(sale.TotalPrice)
	tax := decimal.NewFromFloat(sale.TaxAmount)
	subtotal := total.Sub(tax)
	rate := decimal.Zero
	if subtotal.IsPositive() {
		rate = tax.Mul(hundred).Div(subtotal).Round(2)
	}

	rule := strings.Repeat("-", invoiceWidth)
	var b strings.Builder
	b.WriteString(centered(strings.ToUpper(business)) + "\n")
	b.WriteString(centered("SALES INVOICE") + "\n")
	b.WriteString(rule + "\n")
	b.WriteString(invoiceRow("Invoice", sale.ID))
	b.WriteString(invoiceRow("Date", sale.Timestamp.UTC().Format("2006-01-02 15:04")))
	b.WriteString(rule + "\n")
	b.WriteString(invoiceRow(fmt.Sprintf("%s x %d", sale.ItemName, sale.QuantitySold), "$"+subtotal.StringFixed(2)))
	b.WriteString(rule + "\n")
	b.WriteString(invoiceRow("Subtotal", "$"+subtotal.StringFixed(2)))
	b.WriteString(invoiceRow(fmt.Sprintf("VAT (%s%%)", rate.String()), "$"+tax.StringFixed(2)))
	b.WriteString(invoiceRow("TOTAL", "$"+total.StringFixed(2)))
	b.WriteString(rule + "\n")
	b.WriteString(centered("Thank you for your business") + "\n")
	return b.String(), nil
}

func invoiceRow(label, value string) string {
	pad := invoiceWidth - utf8.RuneCountInString(label) - utf8.RuneCountInString(value)
	if pad < 1 {
		pad = 1
	}
	return label + strings.Repeat(" ", pad) + value + "\n"
}

func centered(text string) string {
	width := utf8.RuneCountInString(text)
	if width >= invoiceWidth {
		return text
	}
	return strings.Repeat(" ", (invoiceWidth-width)/2) + text
}

func totalExpenses(state domain.BusinessState) decimal.Decimal {
	sum := decimal.Zero
	for _, exp := range state.Expenses {
		sum = sum.Add(decimal.NewFromFloat(exp.Amount))
	}
	return sum
}
