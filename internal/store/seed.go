package store

import "nexuserp/backend/internal/domain"

const DefaultVATRate = 15

// DefaultState is written to an empty slot on first access.
func DefaultState() domain.BusinessState {
	return domain.BusinessState{
		Inventory: []domain.InventoryItem{
			{ID: "1", SKU: "SKU-001", Name: "MacBook Pro M3", Quantity: 15, Cost: 1200, Price: 1999},
			{ID: "2", SKU: "SKU-002", Name: "Dell UltraSharp Monitor", Quantity: 5, Cost: 300, Price: 499},
			{ID: "3", SKU: "SKU-003", Name: "Logitech MX Master 3", Quantity: 50, Cost: 45, Price: 99},
		},
		Sales: []domain.Sale{},
		Employees: []domain.Employee{
			{ID: "1", Name: "Sarah Chen", Role: "Sales Lead", HourlyRate: 35, HoursWorked: 160},
			{ID: "2", Name: "Alex Rivera", Role: "Inventory Manager", HourlyRate: 28, HoursWorked: 155},
		},
		Expenses:  []domain.Expense{},
		AuditLogs: []domain.AuditEntry{},
		Settings:  domain.Settings{VATRate: DefaultVATRate},
		User:      nil,
	}
}
