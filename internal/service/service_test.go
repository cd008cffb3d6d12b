package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexuserp/backend/internal/audit"
	"nexuserp/backend/internal/domain"
	"nexuserp/backend/internal/insight"
	"nexuserp/backend/internal/store"
	"nexuserp/backend/internal/store/memory"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(memory.NewSeeded(), nil, WithClock(func() time.Time { return fixedNow }))
}

func loggedIn(t *testing.T, svc *Service, email, password string) domain.BusinessState {
	t.Helper()
	state, err := svc.Authenticate(context.Background(), email, password)
	require.NoError(t, err)
	return state
}

func TestAuthenticateBuiltInAccounts(t *testing.T) {
	cases := []struct {
		email    string
		password string
		role     domain.Role
	}{
		{"admin@erp.com", "admin123", domain.RoleAdmin},
		{"staff@erp.com", "staff123", domain.RoleStaff},
	}
	for _, tc := range cases {
		t.Run(tc.email, func(t *testing.T) {
			svc := newTestService(t)
			state := loggedIn(t, svc, tc.email, tc.password)

			require.NotNil(t, state.User)
			assert.Equal(t, tc.role, state.User.Role)
			assert.Equal(t, BusinessName, state.User.BusinessName)
			assert.True(t, state.User.IsLoggedIn)
			require.Len(t, state.AuditLogs, 1)
			assert.Equal(t, "User Logged In", state.AuditLogs[0].Action)
			assert.Equal(t, tc.email, state.AuditLogs[0].User)
		})
	}
}

func TestAuthenticateRejectsWithoutMutation(t *testing.T) {
	svc := newTestService(t)
	before, err := svc.State(context.Background())
	require.NoError(t, err)

	for _, creds := range [][2]string{
		{"admin@erp.com", "staff123"},
		{"staff@erp.com", ""},
		{"ADMIN@erp.com", "admin123"},
		{"nobody@erp.com", "admin123"},
	} {
		state, err := svc.Authenticate(context.Background(), creds[0], creds[1])
		require.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Nil(t, state.User)
	}

	after, err := svc.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEndSessionThenLoginOrdersAuditEntries(t *testing.T) {
	svc := newTestService(t)
	loggedIn(t, svc, "admin@erp.com", "admin123")

	state, err := svc.EndSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, state.User)
	require.Len(t, state.AuditLogs, 2)
	assert.Equal(t, "User Logged Out", state.AuditLogs[0].Action)
	assert.Equal(t, "admin@erp.com", state.AuditLogs[0].User)

	state = loggedIn(t, svc, "staff@erp.com", "staff123")
	require.NotNil(t, state.User)
	require.Len(t, state.AuditLogs, 3)
	assert.Equal(t, "User Logged In", state.AuditLogs[0].Action)
	assert.Equal(t, "User Logged Out", state.AuditLogs[1].Action)
}

func TestEndSessionWithoutSessionRecordsNothing(t *testing.T) {
	svc := newTestService(t)

	state, err := svc.EndSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, state.User)
	assert.Empty(t, state.AuditLogs)
}

func TestMutationRequiresActorToOwnSession(t *testing.T) {
	svc := newTestService(t)
	loggedIn(t, svc, "admin@erp.com", "admin123")
	admin := WithActor(context.Background(), domain.Actor{Email: "admin@erp.com", Role: domain.RoleAdmin})
	staff := WithActor(context.Background(), domain.Actor{Email: "staff@erp.com", Role: domain.RoleStaff})

	before, err := svc.State(context.Background())
	require.NoError(t, err)

	_, err = svc.UpdateSettings(staff, domain.Settings{VATRate: 0})
	require.ErrorIs(t, err, ErrNoSession)

	_, err = svc.EndSession(admin)
	require.NoError(t, err)
	_, err = svc.UpdateSettings(admin, domain.Settings{VATRate: 0})
	require.ErrorIs(t, err, ErrNoSession)

	after, err := svc.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before.Settings, after.Settings)
	assert.Nil(t, after.User)
	require.NotEmpty(t, after.AuditLogs)
	assert.Equal(t, "User Logged Out", after.AuditLogs[0].Action)
}

func TestPriceSaleTaxesUnroundedSubtotal(t *testing.T) {
	tests := map[string]struct {
		price, cost float64
		qty         int
		vat         float64
		want        domain.SalePricing
	}{
		"whole amounts": {price: 100, cost: 60, qty: 2, vat: 15,
			want: domain.SalePricing{Subtotal: 200, Tax: 30, TotalPrice: 230, CostBasis: 120}},
		"sub-cent price": {price: 9.999, cost: 4.5, qty: 1, vat: 8.25,
			want: domain.SalePricing{Subtotal: 10, Tax: 0.82, TotalPrice: 10.82, CostBasis: 4.5}},
		"sub-cent price times three": {price: 0.333, cost: 0.1, qty: 3, vat: 7.5,
			want: domain.SalePricing{Subtotal: 1, Tax: 0.07, TotalPrice: 1.07, CostBasis: 0.3}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := PriceSale(domain.InventoryItem{Price: tc.price, Cost: tc.cost}, tc.qty, tc.vat)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInvoiceRowsAlignWithMultibyteNames(t *testing.T) {
	for _, row := range []string{
		invoiceRow("Café Crème x 2", "$12.00"),
		invoiceRow("Plain x 2", "$12.00"),
	} {
		assert.Equal(t, invoiceWidth, utf8.RuneCountInString(strings.TrimSuffix(row, "\n")), row)
	}
	assert.Equal(t, strings.Repeat(" ", 18)+"ÜBER", centered("ÜBER"))
}

func TestCheckoutPricesAndDecrementsStock(t *testing.T) {
	svc := newTestService(t)
	loggedIn(t, svc, "admin@erp.com", "admin123")
	_, err := svc.ReplaceInventory(context.Background(), []domain.InventoryItem{
		{ID: "w1", SKU: "W-1", Name: "Widget", Quantity: 10, Cost: 60, Price: 100},
	})
	require.NoError(t, err)

	resp, err := svc.Checkout(context.Background(), "w1", 2)
	require.NoError(t, err)

	assert.Equal(t, 200.0, resp.Pricing.Subtotal)
	assert.Equal(t, 30.0, resp.Pricing.Tax)
	assert.Equal(t, 230.0, resp.Pricing.TotalPrice)
	assert.Equal(t, 120.0, resp.Pricing.CostBasis)
	assert.Equal(t, 230.0, resp.Sale.TotalPrice)
	assert.Equal(t, 30.0, resp.Sale.TaxAmount)

	item, ok := resp.State.FindItem("w1")
	require.True(t, ok)
	assert.Equal(t, 8, item.Quantity)
	require.Len(t, resp.State.Sales, 1)
	assert.Equal(t, resp.Sale.ID, resp.State.Sales[0].ID)
	assert.Equal(t, "Processed Sale: Widget x 2", resp.State.AuditLogs[0].Action)
}

func TestCheckoutRejectsOverselling(t *testing.T) {
	svc := newTestService(t)
	loggedIn(t, svc, "admin@erp.com", "admin123")
	_, err := svc.ReplaceInventory(context.Background(), []domain.InventoryItem{
		{ID: "w1", SKU: "W-1", Name: "Widget", Quantity: 10, Cost: 60, Price: 100},
	})
	require.NoError(t, err)
	before, err := svc.State(context.Background())
	require.NoError(t, err)

	_, err = svc.Checkout(context.Background(), "w1", 11)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "only 10 units")

	_, err = svc.Checkout(context.Background(), "w1", 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Checkout(context.Background(), "missing", 1)
	require.ErrorIs(t, err, ErrItemNotFound)

	after, err := svc.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRecordSalePrependsAndReplacesInventory(t *testing.T) {
	svc := newTestService(t)
	loggedIn(t, svc, "staff@erp.com", "staff123")

	inventory := []domain.InventoryItem{{ID: "1", SKU: "SKU-001", Name: "MacBook Pro M3", Quantity: 14, Cost: 1200, Price: 1999}}
	first, err := svc.RecordSale(context.Background(), domain.Sale{ID: "s1", ItemID: "1", ItemName: "MacBook Pro M3", QuantitySold: 1}, inventory)
	require.NoError(t, err)
	second, err := svc.RecordSale(context.Background(), domain.Sale{ID: "s2", ItemID: "1", ItemName: "MacBook Pro M3", QuantitySold: 1}, inventory)
	require.NoError(t, err)

	assert.Len(t, first.Inventory, 1)
	require.Len(t, second.Sales, 2)
	assert.Equal(t, "s2", second.Sales[0].ID)
	assert.Equal(t, "s1", second.Sales[1].ID)
	assert.Equal(t, fixedNow, second.Sales[0].Timestamp)
	assert.Equal(t, "Processed Sale: MacBook Pro M3 x 1", second.AuditLogs[0].Action)
}

func TestMutationsRecordTheirAuditText(t *testing.T) {
	svc := newTestService(t)
	loggedIn(t, svc, "admin@erp.com", "admin123")
	ctx := context.Background()

	state, err := svc.RecordExpense(ctx, domain.Expense{Category: "Rent", Amount: 1200.5})
	require.NoError(t, err)
	assert.Equal(t, "Expense Logged: $1200.5 (Rent)", state.AuditLogs[0].Action)
	assert.Equal(t, domain.ExpenseStatusPending, state.Expenses[0].Status)
	assert.NotEmpty(t, state.Expenses[0].ID)

	state, err = svc.ReplaceEmployees(ctx, []domain.Employee{{ID: "e1", Name: "Kim", Role: "Clerk", HourlyRate: 20, HoursWorked: 10}})
	require.NoError(t, err)
	assert.Equal(t, "Personnel records updated: 1 entries", state.AuditLogs[0].Action)

	state, err = svc.UpdateEmployeeHours(ctx, "e1", 42)
	require.NoError(t, err)
	assert.Equal(t, 42.0, state.Employees[0].HoursWorked)
	assert.Equal(t, "Personnel records updated: 1 entries", state.AuditLogs[0].Action)

	state, err = svc.UpdateSettings(ctx, domain.Settings{VATRate: 7.5})
	require.NoError(t, err)
	assert.Equal(t, "Settings Updated: VAT Rate 7.5%", state.AuditLogs[0].Action)

	state, err = svc.AddInventoryItem(ctx, domain.InventoryItem{SKU: "N-1", Name: "Notebook", Quantity: 3, Cost: 1, Price: 2})
	require.NoError(t, err)
	assert.Equal(t, "Inventory Item Added: Notebook (N-1)", state.AuditLogs[0].Action)
	assert.Equal(t, "Notebook", state.Inventory[0].Name)

	before := len(state.AuditLogs)
	state, err = svc.ReplaceInventory(ctx, state.Inventory[1:])
	require.NoError(t, err)
	assert.Len(t, state.AuditLogs, before, "replace inventory records no entry")
}

func TestInvalidInputIsRejectedWithoutMutation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	before, err := svc.State(ctx)
	require.NoError(t, err)

	_, err = svc.RecordExpense(ctx, domain.Expense{Category: "Rent", Amount: -1})
	assert.ErrorIs(t, err, ErrInvalidExpense)
	_, err = svc.RecordExpense(ctx, domain.Expense{Category: "Rent", Amount: 1, Status: "PAID"})
	assert.ErrorIs(t, err, ErrInvalidExpense)
	_, err = svc.UpdateSettings(ctx, domain.Settings{VATRate: -1})
	assert.ErrorIs(t, err, ErrInvalidSettings)
	_, err = svc.ReplaceInventory(ctx, []domain.InventoryItem{{ID: "a"}, {ID: "a"}})
	assert.ErrorIs(t, err, ErrInvalidInventory)
	_, err = svc.ReplaceEmployees(ctx, []domain.Employee{{ID: "e", HoursWorked: -2}})
	assert.ErrorIs(t, err, ErrInvalidEmployee)
	_, err = svc.UpdateEmployeeHours(ctx, "missing", 4)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
	_, err = svc.RecordScan(ctx, "  ")
	assert.ErrorIs(t, err, ErrInvalidScan)

	after, err := svc.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAuditLogStaysBounded(t *testing.T) {
	svc := newTestService(t)
	loggedIn(t, svc, "admin@erp.com", "admin123")

	var state domain.BusinessState
	var err error
	for i := 0; i < audit.MaxEntries+20; i++ {
		state, err = svc.UpdateSettings(context.Background(), domain.Settings{VATRate: float64(i)})
		require.NoError(t, err)
		require.LessOrEqual(t, len(state.AuditLogs), audit.MaxEntries)
		require.Equal(t, fmt.Sprintf("Settings Updated: VAT Rate %d%%", i), state.AuditLogs[0].Action)
	}
	assert.Len(t, state.AuditLogs, audit.MaxEntries)
}

func TestImportInventoryCSV(t *testing.T) {
	svc := newTestService(t)
	loggedIn(t, svc, "admin@erp.com", "admin123")

	csv := "name,sku,quantity,cost,price\nCable,C-1,40,2.5,9.99\n\nAdapter, A-1 ,3,4,12\n"
	state, count, err := svc.ImportInventoryCSV(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 2, count)
	require.Len(t, state.Inventory, 5)
	assert.Equal(t, "Cable", state.Inventory[0].Name)
	assert.Equal(t, 9.99, state.Inventory[0].Price)
	assert.Equal(t, "A-1", state.Inventory[1].SKU)
	assert.Equal(t, "SKU-001", state.Inventory[2].SKU)
	assert.Equal(t, "Bulk Imported 2 Items", state.AuditLogs[0].Action)
}

func TestImportInventoryCSVRejectsMalformedRow(t *testing.T) {
	cases := map[string]struct {
		body string
		line int
	}{
		"bad quantity":  {"name,sku,quantity,cost,price\nCable,C-1,forty,2,3\n", 2},
		"missing price": {"name,sku,quantity,cost,price\nCable,C-1,4,2,3\nPlug,P-1,1,2\n", 3},
		"negative cost": {"name,sku,quantity,cost,price\nCable,C-1,4,-2,3\n", 2},
		"empty sku":     {"name,sku,quantity,cost,price\nCable,,4,2,3\n", 2},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(t)
			before, err := svc.State(context.Background())
			require.NoError(t, err)

			_, _, err = svc.ImportInventoryCSV(context.Background(), strings.NewReader(tc.body))
			require.ErrorIs(t, err, ErrMalformedImport)
			var importErr *ImportError
			require.True(t, errors.As(err, &importErr))
			assert.Equal(t, tc.line, importErr.Line)

			after, err := svc.State(context.Background())
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestRecordScan(t *testing.T) {
	svc := newTestService(t)
	loggedIn(t, svc, "staff@erp.com", "staff123")

	resp, err := svc.RecordScan(context.Background(), "SKU-002")
	require.NoError(t, err)
	assert.True(t, resp.Found)
	require.NotNil(t, resp.Item)
	assert.Equal(t, "Dell UltraSharp Monitor", resp.Item.Name)
	assert.Equal(t, "Scanner Used: Identified SKU-002", resp.State.AuditLogs[0].Action)

	resp, err = svc.RecordScan(context.Background(), "UNKNOWN")
	require.NoError(t, err)
	assert.False(t, resp.Found)
	assert.Nil(t, resp.Item)
}

func TestDashboardFiltersFinancialsByRole(t *testing.T) {
	svc := newTestService(t)
	loggedIn(t, svc, "admin@erp.com", "admin123")
	_, err := svc.Checkout(context.Background(), "3", 2)
	require.NoError(t, err)
	_, err = svc.RecordExpense(context.Background(), domain.Expense{Category: "Rent", Amount: 50})
	require.NoError(t, err)

	admin, err := svc.Dashboard(WithActor(context.Background(), domain.Actor{Email: "admin@erp.com", Role: domain.RoleAdmin}))
	require.NoError(t, err)
	assert.Equal(t, 227.7, admin.TotalRevenue)
	require.NotNil(t, admin.GrossProfit)
	assert.Equal(t, 137.7, *admin.GrossProfit)
	require.NotNil(t, admin.TotalExpenses)
	assert.Equal(t, 50.0, *admin.TotalExpenses)
	require.NotNil(t, admin.CriticalStock)
	assert.Equal(t, 1, *admin.CriticalStock)
	assert.Equal(t, 0, admin.LowStock)
	assert.Equal(t, 3, admin.SKUCount)
	assert.Equal(t, 1, admin.SaleCount)

	staff, err := svc.Dashboard(WithActor(context.Background(), domain.Actor{Email: "staff@erp.com", Role: domain.RoleStaff}))
	require.NoError(t, err)
	assert.Equal(t, 227.7, staff.TotalRevenue)
	assert.Nil(t, staff.GrossProfit)
	assert.Nil(t, staff.TotalCost)
	assert.Nil(t, staff.CriticalStock)
}

func TestPayrollAndForecast(t *testing.T) {
	svc := newTestService(t)

	payroll, err := svc.Payroll(context.Background())
	require.NoError(t, err)
	require.Len(t, payroll.Lines, 2)
	assert.Equal(t, 5600.0, payroll.Lines[0].GrossPay)
	assert.Equal(t, 4340.0, payroll.Lines[1].GrossPay)
	assert.Equal(t, 9940.0, payroll.Total)

	forecast, err := svc.StockOutForecast(context.Background())
	require.NoError(t, err)
	require.Len(t, forecast, 3)
	assert.Equal(t, 10, forecast[0].Days)
	assert.False(t, forecast[0].Urgent)
	assert.Equal(t, "10 days", forecast[0].Label)
	assert.Equal(t, 3, forecast[1].Days)
	assert.False(t, forecast[1].Urgent)

	assert.True(t, forecastItem(domain.InventoryItem{Quantity: 4}).Urgent)
	assert.Equal(t, "URGENT", forecastItem(domain.InventoryItem{Quantity: 0}).Label)
}

func TestLowStockAlerts(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.ReplaceInventory(context.Background(), []domain.InventoryItem{
		{ID: "a", SKU: "A", Name: "Alpha", Quantity: 4},
		{ID: "b", SKU: "B", Name: "Beta", Quantity: 5},
	})
	require.NoError(t, err)

	alerts, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "a", alerts[0].ItemID)
}

func TestInvoiceUsesRecordedAmounts(t *testing.T) {
	svc := newTestService(t)
	loggedIn(t, svc, "admin@erp.com", "admin123")
	resp, err := svc.Checkout(context.Background(), "3", 2)
	require.NoError(t, err)

	_, err = svc.UpdateSettings(context.Background(), domain.Settings{VATRate: 20})
	require.NoError(t, err)

	text, err := svc.Invoice(context.Background(), resp.Sale.ID)
	require.NoError(t, err)
	assert.Contains(t, text, "NEXUS GLOBAL ERP")
	assert.Contains(t, text, "Logitech MX Master 3 x 2")
	assert.Contains(t, text, "$198.00")
	assert.Contains(t, text, "VAT (15%)")
	assert.Contains(t, text, "$29.70")
	assert.Contains(t, text, "$227.70")

	_, err = svc.Invoice(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSaleNotFound)
}

type stubSummarizer struct {
	text   string
	prompt string
}

func (s *stubSummarizer) Summarize(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.text, nil
}

func TestBriefingUsesCurrentMetrics(t *testing.T) {
	summarizer := &stubSummarizer{text: "Revenue is up."}
	engine := insight.NewEngine(summarizer, nil, time.Minute, time.Second)
	svc := New(memory.NewSeeded(), engine, WithClock(func() time.Time { return fixedNow }))

	result, err := svc.Briefing(context.Background(), insight.KindDailyBriefing)
	require.NoError(t, err)
	assert.Equal(t, insight.OutcomeSuccess, result.Outcome)
	assert.Equal(t, "Revenue is up.", result.Text)
	assert.Contains(t, summarizer.prompt, "Business: Nexus Global ERP")
	assert.Contains(t, summarizer.prompt, "Revenue: $0.00")
}

func TestBriefingFallsBackWithoutSummarizer(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.Briefing(context.Background(), insight.KindExecutiveInsight)
	require.NoError(t, err)
	assert.Equal(t, insight.OutcomeError, result.Outcome)
	assert.NotEmpty(t, result.Text)
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.ReplaceInventory(context.Background(), []domain.InventoryItem{
		{ID: "w1", SKU: "W-1", Name: "Widget", Quantity: 5, Price: 1},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	sold := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Checkout(context.Background(), "w1", 1); err == nil {
				mu.Lock()
				sold++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	state, err := svc.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, sold)
	assert.Equal(t, 0, state.Inventory[0].Quantity)
	assert.Len(t, state.Sales, 5)
}

type failingRepo struct{ err error }

func (f failingRepo) Load(context.Context) (domain.BusinessState, error) {
	return store.DefaultState(), nil
}

func (f failingRepo) Save(context.Context, domain.BusinessState) error { return f.err }

func TestSaveFailureIsReturned(t *testing.T) {
	boom := errors.New("disk full")
	svc := New(failingRepo{err: boom}, nil)

	_, err := svc.UpdateSettings(context.Background(), domain.Settings{VATRate: 5})
	require.ErrorIs(t, err, boom)
}
