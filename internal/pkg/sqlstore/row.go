// Copyright 2026 Peter Edge
//
// All rights reserved.

package sqlstore

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// timeLayouts are the text layouts accepted for date and timestamp columns
// returned as strings (e.g., by SQLite).
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Row is a single result row keyed by column name.
//
// Values are the driver values with []byte converted to string.
type Row map[string]any

// String returns the column value as a string. NULL and missing columns return "".
func (r Row) String(column string) string {
	switch v := r[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

// Decimal returns the column value as a decimal. NULL and missing columns return zero.
func (r Row) Decimal(column string) (decimal.Decimal, error) {
	nullDecimal, err := r.NullDecimal(column)
	if err != nil {
		return decimal.Zero, err
	}
	return nullDecimal.Decimal, nil
}

// NullDecimal returns the column value as a decimal, invalid if NULL or missing.
func (r Row) NullDecimal(column string) (decimal.NullDecimal, error) {
	d, ok, err := toDecimal(r[column])
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("column %q: %w", column, err)
	}
	return decimal.NullDecimal{Decimal: d, Valid: ok}, nil
}

// Time returns the column value as a time. NULL and missing columns return the zero time.
func (r Row) Time(column string) (time.Time, error) {
	switch v := r[column].(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("column %q: cannot parse %q as a time", column, v)
	default:
		return time.Time{}, fmt.Errorf("column %q: cannot convert %T to a time", column, v)
	}
}

// Distinct returns the rows with exact duplicates removed.
// The first occurrence of each row is kept and the order is preserved.
func Distinct(rows []Row) []Row {
	seen := make(map[string]struct{}, len(rows))
	result := make([]Row, 0, len(rows))
	for _, row := range rows {
		key := row.key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, row)
	}
	return result
}

// *** PRIVATE ***

// key returns a string identifying the row contents independent of map order.
func (r Row) key() string {
	columns := make([]string, 0, len(r))
	for column := range r {
		columns = append(columns, column)
	}
	slices.Sort(columns)
	var builder strings.Builder
	for _, column := range columns {
		builder.WriteString(column)
		builder.WriteByte('=')
		fmt.Fprintf(&builder, "%T:%v", r[column], r[column])
		builder.WriteByte(0)
	}
	return builder.String()
}

// scanRows reads every row from rows into Row maps.
func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var result []Row
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, column := range columns {
			// Drivers may reuse byte slices between rows.
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			row[column] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// toDecimal converts a driver value to a decimal. The bool is false for NULL.
func toDecimal(value any) (decimal.Decimal, bool, error) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, false, nil
	case decimal.Decimal:
		return v, true, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, false, err
		}
		return d, true, nil
	case []byte:
		return toDecimal(string(v))
	case float64:
		return decimal.NewFromFloat(v), true, nil
	case float32:
		return decimal.NewFromFloat32(v), true, nil
	case int64:
		return decimal.NewFromInt(v), true, nil
	case int32:
		return decimal.NewFromInt32(v), true, nil
	case int:
		return decimal.NewFromInt(int64(v)), true, nil
	case driver.Valuer:
		driverValue, err := v.Value()
		if err != nil {
			return decimal.Zero, false, err
		}
		return toDecimal(driverValue)
	default:
		return decimal.Zero, false, fmt.Errorf("cannot convert %T to a decimal", value)
	}
}
