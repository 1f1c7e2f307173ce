// Copyright 2026 Peter Edge
//
// All rights reserved.

package dxctlreport

import (
	"strings"
	"time"

	"github.com/bufdev/dxctl/internal/dxctl/dxctlrates"
	"github.com/shopspring/decimal"
)

// usdPlaces is the number of decimal places USD amounts are printed with.
const usdPlaces = 2

// OrderHeaders returns the column headers for order output.
func OrderHeaders() []string {
	return []string{"USER", "ACCOUNT", "SYMBOL", "CATEGORY", "SIDE", "ORDER ID", "TRADE TIME", "POSITION", "EFFECT", "QUANTITY", "PRICE", "STRATEGY", "BID PRICE", "VOLUME USD", "PNL USD", "MARKUP USD"}
}

// OrderToRow converts an Order to a string slice for table/CSV output.
func OrderToRow(o *Order) []string {
	return []string{
		o.UserID,
		o.AccountID,
		o.Symbol,
		o.Category,
		o.Side,
		o.OrderID,
		formatTime(o.TradeTime),
		o.PositionCode,
		o.PositionEffect,
		o.Quantity.String(),
		o.Price.String(),
		o.Strategy,
		o.BidPrice.String(),
		o.Volume.StringFixed(usdPlaces),
		o.PnL.StringFixed(usdPlaces),
		o.Markup.StringFixed(usdPlaces),
	}
}

// FinancialTransactionHeaders returns the column headers for financial transaction output.
func FinancialTransactionHeaders() []string {
	return []string{"USER", "ACCOUNT", "TYPE", "DATE", "TIME", "CURRENCY", "AMOUNT", "BID PRICE", "USD", "DESCRIPTION"}
}

// FinancialTransactionToRow converts a FinancialTransaction to a string slice for table/CSV output.
func FinancialTransactionToRow(t *FinancialTransaction) []string {
	return []string{
		t.UserID,
		t.AccountCode,
		t.ActivityType,
		t.TransactionDate.String(),
		formatTime(t.DateTime),
		t.QuoteCurrency,
		t.Amount.String(),
		t.BidPrice.String(),
		t.USD.StringFixed(usdPlaces),
		t.Description,
	}
}

// Headers returns the column headers for summary output.
func (s *TransactionSummary) Headers() []string {
	return append([]string{"PERIOD"}, s.ActivityTypes...)
}

// Rows returns one string slice per bucket for table/CSV output.
func (s *TransactionSummary) Rows() [][]string {
	rows := make([][]string, 0, len(s.Buckets))
	for _, bucket := range s.Buckets {
		row := make([]string, 0, len(s.ActivityTypes)+1)
		row = append(row, bucket.Label.String())
		for _, activityType := range s.ActivityTypes {
			row = append(row, bucket.USD[activityType].StringFixed(usdPlaces))
		}
		rows = append(rows, row)
	}
	return rows
}

// PositionHeaders returns the column headers for position output.
func PositionHeaders() []string {
	return []string{"USER", "SYMBOL", "QUANTITY", "COST", "OPEN PRICE", "POSITIONS", "AS OF"}
}

// PositionToRow converts a Position to a string slice for table/CSV output.
func PositionToRow(p *Position) []string {
	openPrice := ""
	if p.OpenPrice.Valid {
		openPrice = p.OpenPrice.Decimal.String()
	}
	return []string{
		p.UserID,
		p.Symbol,
		p.Quantity.String(),
		p.Cost.String(),
		openPrice,
		strings.Join(p.PositionCodes, " "),
		formatTime(p.AsOf),
	}
}

// BalanceHeaders returns the column headers for balance output.
func BalanceHeaders() []string {
	return []string{"USER", dxctlrates.USD}
}

// BalanceToRow converts a Balance to a string slice for table/CSV output.
func BalanceToRow(b *Balance) []string {
	return []string{b.UserID, b.USD.StringFixed(usdPlaces)}
}

// LoginHeaders returns the column headers for login output.
func LoginHeaders() []string {
	return []string{"USER", "ACCOUNT", "CREATED", "EXPIRES"}
}

// LoginToRow converts a Login to a string slice for table/CSV output.
func LoginToRow(l *Login) []string {
	return []string{l.UserID, l.AccountCode, l.CreatedDate.String(), formatTime(l.ExpireAt)}
}

// TotalUSD returns the sum of the USD amounts.
func TotalUSD(amounts ...decimal.Decimal) decimal.Decimal {
	return decimal.Sum(decimal.Zero, amounts...)
}

// *** PRIVATE ***

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateTime)
}
