package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"nexuserp/backend/internal/domain"
	"nexuserp/backend/internal/xid"
)

// AddInventoryItem prepends one item under a fresh id.
func (s *Service) AddInventoryItem(ctx context.Context, item domain.InventoryItem) (domain.BusinessState, error) {
	item.ID = xid.New("item")
	item.SKU = strings.TrimSpace(item.SKU)
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" || item.SKU == "" {
		return domain.BusinessState{}, fmt.Errorf("%w: name and sku required", ErrInvalidInventory)
	}
	if item.Quantity < 0 || item.Cost < 0 || item.Price < 0 {
		return domain.BusinessState{}, fmt.Errorf("%w: negative quantity or amount", ErrInvalidInventory)
	}

	return s.mutate(ctx, "add_inventory_item", func(state *domain.BusinessState) (string, error) {
		state.Inventory = append([]domain.InventoryItem{item}, state.Inventory...)
		return fmt.Sprintf("Inventory Item Added: %s (%s)", item.Name, item.SKU), nil
	})
}

// ImportInventoryCSV parses the whole file before touching state. The
// returned count is the number of imported rows.
func (s *Service) ImportInventoryCSV(ctx context.Context, r io.Reader) (domain.BusinessState, int, error) {
	items, err := ParseInventoryCSV(r)
	if err != nil {
		s.metrics.ObserveOperation("import_inventory", err)
		return domain.BusinessState{}, 0, err
	}

	state, err := s.mutate(ctx, "import_inventory", func(state *domain.BusinessState) (string, error) {
		merged := append(append([]domain.InventoryItem{}, items...), state.Inventory...)
		if err := validateInventory(merged); err != nil {
			return "", err
		}
		state.Inventory = merged
		return fmt.Sprintf("Bulk Imported %d Items", len(items)), nil
	})
	if err != nil {
		return domain.BusinessState{}, 0, err
	}
	return state, len(items), nil
}

// RecordScan looks the code up as a SKU and logs the scan whether or not it
// matched an item.
func (s *Service) RecordScan(ctx context.Context, code string) (domain.ScanResponse, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ScanResponse{}, ErrInvalidScan
	}

	var match *domain.InventoryItem
	state, err := s.mutate(ctx, "record_scan", func(state *domain.BusinessState) (string, error) {
		if item, ok := state.FindItemBySKU(code); ok {
			match = &item
		}
		return fmt.Sprintf("Scanner Used: Identified %s", code), nil
	})
	if err != nil {
		return domain.ScanResponse{}, err
	}

	return domain.ScanResponse{Code: code, Found: match != nil, Item: match, State: state}, nil
}
