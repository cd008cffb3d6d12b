package service

import (
	"context"
	"fmt"

	"nexuserp/backend/internal/domain"
)

// UpdateEmployeeHours edits one employee's hours and goes through the same
// bulk replacement path as ReplaceEmployees, so the audit text matches.
func (s *Service) UpdateEmployeeHours(ctx context.Context, employeeID string, hours float64) (domain.BusinessState, error) {
	if hours < 0 {
		return domain.BusinessState{}, fmt.Errorf("%w: hours must not be negative", ErrInvalidEmployee)
	}

	return s.mutate(ctx, "update_employee_hours", func(state *domain.BusinessState) (string, error) {
		found := false
		for i := range state.Employees {
			if state.Employees[i].ID == employeeID {
				state.Employees[i].HoursWorked = hours
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("%w: %q", ErrEmployeeNotFound, employeeID)
		}
		return fmt.Sprintf("Personnel records updated: %d entries", len(state.Employees)), nil
	})
}
