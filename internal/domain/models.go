package domain

import "time"

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleStaff Role = "STAFF"
)

const (
	ExpenseStatusPending   = "PENDING"
	ExpenseStatusProcessed = "PROCESSED"
)

type InventoryItem struct {
	ID       string  `json:"id"`
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Cost     float64 `json:"cost"`
	Price    float64 `json:"price"`
}

type Sale struct {
	ID           string    `json:"id"`
	ItemID       string    `json:"itemId"`
	ItemName     string    `json:"itemName"`
	QuantitySold int       `json:"quantitySold"`
	TotalPrice   float64   `json:"totalPrice"`
	CostBasis    float64   `json:"costBasis"`
	TaxAmount    float64   `json:"taxAmount"`
	Timestamp    time.Time `json:"timestamp"`
}

type Employee struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	HourlyRate  float64 `json:"hourlyRate"`
	HoursWorked float64 `json:"hoursWorked"`
}

type Expense struct {
	ID       string    `json:"id"`
	Category string    `json:"category"`
	Amount   float64   `json:"amount"`
	Date     time.Time `json:"date"`
	Status   string    `json:"status"`
}

type AuditEntry struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

type Settings struct {
	VATRate float64 `json:"vatRate"`
}

type UserSession struct {
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	BusinessName string `json:"businessName"`
	IsLoggedIn   bool   `json:"isLoggedIn"`
}

// BusinessState is the root aggregate persisted as a single document.
type BusinessState struct {
	Inventory []InventoryItem `json:"inventory"`
	Sales     []Sale          `json:"sales"`
	Employees []Employee      `json:"employees"`
	Expenses  []Expense       `json:"expenses"`
	AuditLogs []AuditEntry    `json:"auditLogs"`
	Settings  Settings        `json:"settings"`
	User      *UserSession    `json:"user"`
}

// Clone returns a deep copy so callers can mutate collections without
// aliasing the original slices.
func (s BusinessState) Clone() BusinessState {
	out := BusinessState{
		Inventory: append(make([]InventoryItem, 0, len(s.Inventory)), s.Inventory...),
		Sales:     append(make([]Sale, 0, len(s.Sales)), s.Sales...),
		Employees: append(make([]Employee, 0, len(s.Employees)), s.Employees...),
		Expenses:  append(make([]Expense, 0, len(s.Expenses)), s.Expenses...),
		AuditLogs: append(make([]AuditEntry, 0, len(s.AuditLogs)), s.AuditLogs...),
		Settings:  s.Settings,
	}
	if s.User != nil {
		user := *s.User
		out.User = &user
	}
	return out
}

// Normalize replaces nil collections with empty ones so the persisted
// document never carries null arrays.
func (s *BusinessState) Normalize() {
	if s.Inventory == nil {
		s.Inventory = []InventoryItem{}
	}
	if s.Sales == nil {
		s.Sales = []Sale{}
	}
	if s.Employees == nil {
		s.Employees = []Employee{}
	}
	if s.Expenses == nil {
		s.Expenses = []Expense{}
	}
	if s.AuditLogs == nil {
		s.AuditLogs = []AuditEntry{}
	}
}

func (s BusinessState) FindItem(id string) (InventoryItem, bool) {
	for _, item := range s.Inventory {
		if item.ID == id {
			return item, true
		}
	}
	return InventoryItem{}, false
}

func (s BusinessState) FindItemBySKU(sku string) (InventoryItem, bool) {
	for _, item := range s.Inventory {
		if item.SKU == sku {
			return item, true
		}
	}
	return InventoryItem{}, false
}

func (s BusinessState) FindSale(id string) (Sale, bool) {
	for _, sale := range s.Sales {
		if sale.ID == id {
			return sale, true
		}
	}
	return Sale{}, false
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	Role        Role          `json:"role"`
	ExpiresAt   string        `json:"expires_at"`
	State       BusinessState `json:"state"`
}

type Actor struct {
	Email string
	Role  Role
}

type CheckoutRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type RecordSaleRequest struct {
	Sale      Sale            `json:"sale"`
	Inventory []InventoryItem `json:"inventory"`
}

type ExpenseCreateRequest struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Status   string  `json:"status,omitempty"`
}

type ScanRequest struct {
	Code string `json:"code"`
}

type ScanResponse struct {
	Code  string         `json:"code"`
	Found bool           `json:"found"`
	Item  *InventoryItem `json:"item,omitempty"`
	State BusinessState  `json:"state"`
}

type HoursUpdateRequest struct {
	HoursWorked float64 `json:"hours_worked"`
}

type SalePricing struct {
	Subtotal   float64 `json:"subtotal"`
	Tax        float64 `json:"tax"`
	TotalPrice float64 `json:"total_price"`
	CostBasis  float64 `json:"cost_basis"`
}

type CheckoutResponse struct {
	Sale    Sale          `json:"sale"`
	Pricing SalePricing   `json:"pricing"`
	State   BusinessState `json:"state"`
}

// DashboardMetrics carries the aggregate KPIs. Profit and critical stock are
// omitted for roles without the view_financials capability.
type DashboardMetrics struct {
	TotalRevenue  float64  `json:"total_revenue"`
	TotalCost     *float64 `json:"total_cost,omitempty"`
	GrossProfit   *float64 `json:"gross_profit,omitempty"`
	TotalExpenses *float64 `json:"total_expenses,omitempty"`
	SaleCount     int      `json:"sale_count"`
	SKUCount      int      `json:"sku_count"`
	CriticalStock *int     `json:"critical_stock,omitempty"`
	LowStock      int      `json:"low_stock"`
}

type PayrollLine struct {
	EmployeeID  string  `json:"employee_id"`
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	HourlyRate  float64 `json:"hourly_rate"`
	HoursWorked float64 `json:"hours_worked"`
	GrossPay    float64 `json:"gross_pay"`
}

type PayrollSummary struct {
	Lines []PayrollLine `json:"lines"`
	Total float64       `json:"total"`
}

type StockForecast struct {
	ItemID   string `json:"item_id"`
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Days     int    `json:"days"`
	Label    string `json:"label"`
	Urgent   bool   `json:"urgent"`
}

type LowStockAlert struct {
	ItemID   string `json:"item_id"`
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}
