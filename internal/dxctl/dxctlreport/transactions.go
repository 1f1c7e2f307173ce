// Copyright 2026 Peter Edge
//
// All rights reserved.

package dxctlreport

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/bufdev/dxctl/internal/dxctl/dxctlfilter"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlrates"
	"github.com/bufdev/dxctl/internal/pkg/sqlstore"
	"github.com/bufdev/dxctl/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// FinancialActivityTypes are the activity types of financial transactions.
var FinancialActivityTypes = []string{
	"DEPOSIT",
	"WITHDRAWAL",
	"ADJUSTMENT",
	"FINANCING",
}

const (
	// excludedDescriptionPattern matches demo, test, and hedge activity descriptions.
	excludedDescriptionPattern = "%(demo|Demo|test_|Test_|hedge|Hedge)%"
	// excludedActionCodePattern matches compensation action codes.
	excludedActionCodePattern = "%COMP%"
)

// FinancialTransaction is a single ledger activity.
type FinancialTransaction struct {
	// AccountCode is the account code.
	AccountCode string `json:"account_code"`
	// ActivityType is one of FinancialActivityTypes.
	ActivityType string `json:"activity_type"`
	// TransactionDate is the date of DateTime.
	TransactionDate xtime.Date `json:"transaction_time"`
	// DateTime is the activity creation time.
	DateTime time.Time `json:"date_time"`
	// UserID is the principal name.
	UserID string `json:"user_id"`
	// Description is the activity description, possibly empty.
	Description string `json:"description"`
	// QuoteCurrency is the currency of Amount.
	QuoteCurrency string `json:"quote_currency"`
	// Amount is the signed amount in QuoteCurrency.
	Amount decimal.Decimal `json:"amount"`
	// BidPrice is the USD rate of QuoteCurrency on the transaction date.
	BidPrice decimal.Decimal `json:"bid_price"`
	// USD is Amount in USD.
	USD decimal.Decimal `json:"usd"`
}

// TransactionSummary is the USD total of financial transactions per period and activity type.
type TransactionSummary struct {
	// Period is the aggregation period.
	Period dxctlfilter.Period `json:"-"`
	// ActivityTypes are the activity types present in any bucket, sorted.
	ActivityTypes []string `json:"activity_types"`
	// Buckets are the non-empty period buckets in ascending order.
	Buckets []*TransactionBucket `json:"buckets"`
}

// TransactionBucket is a single period bucket of a TransactionSummary.
type TransactionBucket struct {
	// Label is the date labelling the bucket.
	Label xtime.Date `json:"transaction_time"`
	// USD maps every activity type of the summary to its total, zero if absent.
	USD map[string]decimal.Decimal `json:"usd"`
}

// SummarizeTransactions buckets the transactions by period and activity type.
//
// Only buckets with at least one transaction are returned. Every bucket has
// a total for every activity type present in any bucket.
func SummarizeTransactions(period dxctlfilter.Period, transactions []*FinancialTransaction) *TransactionSummary {
	var activityTypes []string
	bucketsByLabel := make(map[xtime.Date]*TransactionBucket)
	for _, transaction := range transactions {
		if !slices.Contains(activityTypes, transaction.ActivityType) {
			activityTypes = append(activityTypes, transaction.ActivityType)
		}
		label := period.Label(transaction.TransactionDate)
		bucket, ok := bucketsByLabel[label]
		if !ok {
			bucket = &TransactionBucket{
				Label: label,
				USD:   make(map[string]decimal.Decimal),
			}
			bucketsByLabel[label] = bucket
		}
		bucket.USD[transaction.ActivityType] = bucket.USD[transaction.ActivityType].Add(transaction.USD)
	}
	slices.Sort(activityTypes)
	buckets := make([]*TransactionBucket, 0, len(bucketsByLabel))
	for _, bucket := range bucketsByLabel {
		for _, activityType := range activityTypes {
			if _, ok := bucket.USD[activityType]; !ok {
				bucket.USD[activityType] = decimal.Zero
			}
		}
		buckets = append(buckets, bucket)
	}
	slices.SortFunc(buckets, func(a *TransactionBucket, b *TransactionBucket) int {
		return a.Label.Compare(b.Label)
	})
	return &TransactionSummary{
		Period:        period,
		ActivityTypes: activityTypes,
		Buckets:       buckets,
	}
}

func (a *assembler) ListFinancialTransactions(ctx context.Context) ([]*FinancialTransaction, error) {
	userPredicate, userArgs := a.userPredicate()
	start, end := a.dateRange.Bounds()
	query := fmt.Sprintf(financialTransactionsQuery, a.tablePrefix(), userPredicate)
	args := []any{
		FinancialActivityTypes,
		excludedDescriptionPattern,
		excludedActionCodePattern,
		liveClearingCode,
		start,
		end,
	}
	args = append(args, userArgs...)
	rows, err := a.querier.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying financial transactions: %w", err)
	}
	rows = sqlstore.Distinct(rows)
	if len(rows) == 0 {
		return nil, &EmptyResultError{Report: "financial transactions"}
	}
	transactions := make([]*FinancialTransaction, 0, len(rows))
	dates := make(map[xtime.Date]struct{})
	for _, row := range rows {
		transaction, err := newFinancialTransaction(row)
		if err != nil {
			return nil, fmt.Errorf("financial transaction for account %q: %w", row.String("account_code"), err)
		}
		dates[transaction.TransactionDate] = struct{}{}
		transactions = append(transactions, transaction)
	}
	rateTable, err := a.rateTable(ctx, sortedDates(dates))
	if err != nil {
		return nil, err
	}
	for _, transaction := range transactions {
		rate, _ := rateTable.Lookup(transaction.TransactionDate, transaction.QuoteCurrency)
		transaction.BidPrice = rate
		transaction.USD = dxctlrates.ConvertToUSD(transaction.Amount, rate)
	}
	a.logger.Info("financial transactions assembled", "users", a.userFilter.String(), "range", a.dateRange.String(), "transactions", len(transactions))
	return transactions, nil
}

func (a *assembler) SummarizeFinancialTransactions(ctx context.Context) (*TransactionSummary, error) {
	transactions, err := a.ListFinancialTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return SummarizeTransactions(a.period, transactions), nil
}

// *** PRIVATE ***

const financialTransactionsQuery = `SELECT
	accounts.account_code AS account_code,
	activities.activity_type AS activity_type,
	activities.created_time AS date_time,
	principals.name AS user_id,
	activities.description AS description,
	instruments.symbol AS currency_symbol,
	activity_legs.quantity AS amount
FROM %[1]sactivity_legs AS activity_legs
LEFT JOIN %[1]sactivities AS activities
	ON activities.id = activity_legs.activity_id
LEFT JOIN %[1]saccounts AS accounts
	ON accounts.id = activities.account_id
LEFT JOIN %[1]sprincipals AS principals
	ON principals.id = accounts.owner_id
LEFT JOIN %[1]sinstruments AS instruments
	ON instruments.id = activity_legs.instrument_id
WHERE activities.activity_type IN ?
AND (activities.description NOT SIMILAR TO ? OR activities.description IS NULL)
AND activities.action_code NOT LIKE ?
AND accounts.clearing_code = ?
AND activities.created_time >= ?
AND activities.created_time < ?
AND %[2]s
ORDER BY activities.created_time DESC`

func newFinancialTransaction(row sqlstore.Row) (*FinancialTransaction, error) {
	dateTime, err := row.Time("date_time")
	if err != nil {
		return nil, err
	}
	amount, err := row.Decimal("amount")
	if err != nil {
		return nil, err
	}
	return &FinancialTransaction{
		AccountCode:     row.String("account_code"),
		ActivityType:    row.String("activity_type"),
		TransactionDate: xtime.TimeToDate(dateTime.UTC()),
		DateTime:        dateTime,
		UserID:          row.String("user_id"),
		Description:     row.String("description"),
		QuoteCurrency:   dxctlrates.QuoteCurrency(row.String("currency_symbol")),
		Amount:          amount,
	}, nil
}
