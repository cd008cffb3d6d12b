package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"nexuserp/backend/internal/domain"
	"nexuserp/backend/internal/xid"
)

var ErrMalformedImport = errors.New("malformed inventory import")

// ImportError reports the first bad row of a CSV import. Line is 1-based and
// counts the header.
type ImportError struct {
	Line   int
	Reason string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("csv line %d: %s", e.Line, e.Reason)
}

func (e *ImportError) Is(target error) bool {
	return target == ErrMalformedImport
}

const importColumns = 5

// ParseInventoryCSV reads rows of name,sku,quantity,cost,price after a header
// row. Any malformed row rejects the whole file.
func ParseInventoryCSV(r io.Reader) ([]domain.InventoryItem, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	items := make([]domain.InventoryItem, 0, 32)
	headerSeen := false
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, &ImportError{Line: parseErr.Line, Reason: parseErr.Err.Error()}
			}
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)

		if isBlankRecord(record) {
			continue
		}
		if !headerSeen {
			headerSeen = true
			continue
		}

		item, reason := parseInventoryRow(record)
		if reason != "" {
			return nil, &ImportError{Line: line, Reason: reason}
		}
		items = append(items, item)
	}
	return items, nil
}

func parseInventoryRow(record []string) (domain.InventoryItem, string) {
	if len(record) != importColumns {
		return domain.InventoryItem{}, fmt.Sprintf("expected %d columns (name,sku,quantity,cost,price), got %d", importColumns, len(record))
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}

	name, sku := record[0], record[1]
	if name == "" {
		return domain.InventoryItem{}, "name is empty"
	}
	if sku == "" {
		return domain.InventoryItem{}, "sku is empty"
	}

	qty, err := strconv.Atoi(record[2])
	if err != nil || qty < 0 {
		return domain.InventoryItem{}, fmt.Sprintf("quantity %q is not a non-negative integer", record[2])
	}
	cost, err := decimal.NewFromString(record[3])
	if err != nil || cost.IsNegative() {
		return domain.InventoryItem{}, fmt.Sprintf("cost %q is not a non-negative number", record[3])
	}
	price, err := decimal.NewFromString(record[4])
	if err != nil || price.IsNegative() {
		return domain.InventoryItem{}, fmt.Sprintf("price %q is not a non-negative number", record[4])
	}

	return domain.InventoryItem{
		ID:       xid.New("item"),
		SKU:      sku,
		Name:     name,
		Quantity: qty,
		Cost:     cost.InexactFloat64(),
		Price:    price.InexactFloat64(),
	}, ""
}

func isBlankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
