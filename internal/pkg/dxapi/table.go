// Copyright 2026 Peter Edge
//
// All rights reserved.

package dxapi

import (
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// AccountHeaders returns the column headers for account output.
func AccountHeaders() []string {
	return []string{"USER", "ACCOUNT", "CLEARING", "CURRENCY", "STATUS", "CATEGORIES"}
}

// AccountToRow converts an Account to a string slice for table/CSV output.
//
// Categories are printed as "category=value" pairs sorted by category.
func AccountToRow(a *Account) []string {
	categories := make([]string, 0, len(a.Categories))
	for _, category := range slices.Sorted(maps.Keys(a.Categories)) {
		categories = append(categories, category+"="+a.Categories[category])
	}
	return []string{a.UserID, a.AccountCode, a.ClearingCode, a.Currency, a.Status, strings.Join(categories, ",")}
}

// MetricsHeaders returns the column headers for metrics output.
func MetricsHeaders() []string {
	return []string{"ACCOUNT", "EQUITY", "BALANCE", "OPEN PL", "TOTAL PL"}
}

// MetricsToRow converts Metrics to a string slice for table/CSV output.
func MetricsToRow(m *Metrics) []string {
	return []string{m.Account, m.Equity.String(), m.Balance.String(), m.OpenPL.String(), m.TotalPL.String()}
}

// PositionHeaders returns the column headers for position output.
func PositionHeaders() []string {
	return []string{"ACCOUNT", "POSITION", "SYMBOL", "SIDE", "QUANTITY", "OPEN PRICE", "OPEN TIME"}
}

// PositionToRow converts a Position to a string slice for table/CSV output.
func PositionToRow(p *Position) []string {
	return []string{p.Account, p.PositionCode, p.Symbol, p.Side, p.Quantity.String(), nullDecimalString(p.OpenPrice), p.OpenTime}
}

// OrderHeaders returns the column headers for order output.
func OrderHeaders() []string {
	return []string{"ACCOUNT", "ORDER ID", "ORDER CODE", "INSTRUMENT", "TYPE", "SIDE", "STATUS", "QUANTITY", "LIMIT PRICE"}
}

// OrderToRow converts an Order to a string slice for table/CSV output.
func OrderToRow(o *Order) []string {
	return []string{
		o.Account,
		o.OrderID.String(),
		o.OrderCode,
		o.Instrument,
		o.Type,
		o.Side,
		o.Status,
		o.Quantity.String(),
		nullDecimalString(o.LimitPrice),
	}
}

// *** PRIVATE ***

func nullDecimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
