package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/terrabuild/terrafusion/backend/internal/property"
	"github.com/terrabuild/terrafusion/backend/internal/valuation"
)

// RowError records a rejected input row with its line number
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Columns every upload file must carry. owner and condition are optional.
var requiredColumns = []string{
	"parcel_id", "address", "city", "region",
	"property_type", "square_footage", "year_built",
}

// ParseCSV reads an upload file into property records. Rows that fail
// validation are collected as RowErrors rather than aborting the parse;
// a malformed header or unreadable stream aborts.
func ParseCSV(r io.Reader) ([]property.Property, []RowError, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("csv header missing columns: %s", strings.Join(missing, ", "))
	}

	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var (
		records   []property.Property
		rowErrors []RowError
		line      = 1
	)

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrors = append(rowErrors, RowError{Line: line, Reason: err.Error()})
			continue
		}

		p, err := rowToProperty(row, field)
		if err != nil {
			rowErrors = append(rowErrors, RowError{Line: line, Reason: err.Error()})
			continue
		}

		records = append(records, p)
	}

	return records, rowErrors, nil
}

func rowToProperty(row []string, field func([]string, string) string) (property.Property, error) {
	var p property.Property

	p.ParcelID = field(row, "parcel_id")
	if p.ParcelID == "" {
		return p, fmt.Errorf("parcel_id is required")
	}

	p.Address = field(row, "address")
	p.Owner = field(row, "owner")
	p.City = field(row, "city")
	p.Region = field(row, "region")

	p.PropertyType = valuation.PropertyType(strings.ToLower(field(row, "property_type")))
	if !p.PropertyType.Valid() {
		return p, fmt.Errorf("unrecognized property_type %q", field(row, "property_type"))
	}

	sqft, err := strconv.ParseFloat(field(row, "square_footage"), 64)
	if err != nil || sqft <= 0 {
		return p, fmt.Errorf("square_footage must be a positive number")
	}
	p.SquareFootage = sqft

	year, err := strconv.Atoi(field(row, "year_built"))
	if err != nil {
		return p, fmt.Errorf("year_built must be an integer")
	}
	p.YearBuilt = year

	if cond := field(row, "condition"); cond != "" {
		p.Condition = valuation.Condition(strings.ToLower(cond))
		if !p.Condition.Valid() {
			return p, fmt.Errorf("unrecognized condition %q", cond)
		}
	}

	return p, nil
}
