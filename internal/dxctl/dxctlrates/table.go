// Copyright 2026 Peter Edge
//
// All rights reserved.

package dxctlrates

import "time"

// RateHeaders returns the column headers for rate output.
func RateHeaders() []string {
	return []string{"DATE", "SYMBOL", "CURRENCY", "USD PER UNIT", "TIME"}
}

// RateToRow converts a Rate to a string slice for table/CSV output.
func RateToRow(r Rate) []string {
	snapshotTime := ""
	if !r.Time.IsZero() {
		snapshotTime = r.Time.UTC().Format(time.DateTime)
	}
	return []string{r.Date.String(), r.Symbol, r.QuoteCurrency, r.BidPrice.String(), snapshotTime}
}
