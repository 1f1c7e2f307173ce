// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package dxctlreport assembles trading reports from the platform database.
//
// An Assembler is scoped to a user filter and a date range fixed at
// construction. Each List operation issues its queries through a
// sqlstore.Querier, normalizes the rows, converts monetary amounts to USD
// with rates from a dxctlrates.Fetcher, and returns the report records.
package dxctlreport

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/bufdev/dxctl/internal/dxctl/dxctlfilter"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlrates"
	"github.com/bufdev/dxctl/internal/pkg/sqlstore"
	"github.com/bufdev/dxctl/internal/standard/xtime"
)

// DefaultSchema is the default schema prefix of the platform tables.
const DefaultSchema = "dxcore.dxcore"

// liveClearingCode is the clearing code of live (non-demo) accounts.
const liveClearingCode = "LIVE"

var (
	// DefaultExcludedAccountIDs are the account ids excluded from order reports.
	DefaultExcludedAccountIDs = []int64{111}
	// DefaultBalanceExcludedAccountIDs are the account ids excluded from balance reports.
	DefaultBalanceExcludedAccountIDs = []int64{121, 70500, 213023, 212931}
	// DefaultBalanceConvertCurrencies are the currencies counted in balance reports.
	DefaultBalanceConvertCurrencies = []string{"BTC", "ETH", "USDT"}
	// DefaultLoginsSince is the default principal creation cutoff for login reports.
	DefaultLoginsSince = xtime.Date{Year: 2023, Month: time.February, Day: 1}
)

// EmptyResultError is returned when a report query returns no rows where at least one is required.
type EmptyResultError struct {
	// Report is the name of the report.
	Report string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("%s report returned no rows", e.Report)
}

// Assembler assembles reports for a fixed user filter and date range.
type Assembler interface {
	// ListOrders returns every trade in the date range with volume, PnL, and markup in USD.
	//
	// Returns an *EmptyResultError if there are no trades.
	ListOrders(ctx context.Context) ([]*Order, error)
	// ListFinancialTransactions returns every deposit, withdrawal, adjustment,
	// and financing activity in the date range with the amount in USD.
	//
	// Returns an *EmptyResultError if there are no transactions.
	ListFinancialTransactions(ctx context.Context) ([]*FinancialTransaction, error)
	// SummarizeFinancialTransactions returns the USD totals of the financial
	// transactions per period bucket and activity type.
	//
	// Returns an *EmptyResultError if there are no transactions.
	SummarizeFinancialTransactions(ctx context.Context) (*TransactionSummary, error)
	// ListPositions returns the open positions aggregated per user and symbol.
	//
	// Returns an empty slice and logs a warning if there are no open positions.
	ListPositions(ctx context.Context) ([]*Position, error)
	// ListBalances returns the USD balance of each user.
	ListBalances(ctx context.Context) ([]*Balance, error)
	// ListLogins returns the sessions of accounts whose principal was created since the logins cutoff.
	ListLogins(ctx context.Context) ([]*Login, error)
}

// BalanceConfig configures the balance report.
type BalanceConfig struct {
	// ExcludedAccountIDs are account ids excluded from balances.
	ExcludedAccountIDs []int64
	// ConvertCurrencies are the currencies counted towards balances.
	// Balances in other currencies count as 0.
	ConvertCurrencies []string
}

// AssemblerOption is a functional option for configuring an Assembler.
type AssemblerOption func(*assembler)

// AssemblerWithPeriod sets the aggregation period for transaction summaries.
func AssemblerWithPeriod(period dxctlfilter.Period) AssemblerOption {
	return func(a *assembler) {
		a.period = period
	}
}

// AssemblerWithSchema sets the schema prefix of the platform tables.
//
// The empty string uses unqualified table names.
func AssemblerWithSchema(schema string) AssemblerOption {
	return func(a *assembler) {
		a.schema = schema
	}
}

// AssemblerWithExcludedAccountIDs sets the account ids excluded from order reports.
func AssemblerWithExcludedAccountIDs(accountIDs []int64) AssemblerOption {
	return func(a *assembler) {
		a.excludedAccountIDs = slices.Clone(accountIDs)
	}
}

// AssemblerWithBalanceConfig sets the balance report configuration.
func AssemblerWithBalanceConfig(balanceConfig BalanceConfig) AssemblerOption {
	return func(a *assembler) {
		a.balanceConfig = BalanceConfig{
			ExcludedAccountIDs: slices.Clone(balanceConfig.ExcludedAccountIDs),
			ConvertCurrencies:  slices.Clone(balanceConfig.ConvertCurrencies),
		}
	}
}

// AssemblerWithLoginsSince sets the principal creation cutoff for login reports.
func AssemblerWithLoginsSince(loginsSince xtime.Date) AssemblerOption {
	return func(a *assembler) {
		a.loginsSince = loginsSince
	}
}

// AssemblerWithQuotePairs sets the allow-list of quote pairs used for currency conversion.
func AssemblerWithQuotePairs(pairs []string) AssemblerOption {
	return func(a *assembler) {
		a.quotePairs = slices.Clone(pairs)
	}
}

// AssemblerWithFetcher sets the rate Fetcher.
//
// The default Fetcher reads rates through the same Querier.
func AssemblerWithFetcher(fetcher dxctlrates.Fetcher) AssemblerOption {
	return func(a *assembler) {
		a.fetcher = fetcher
	}
}

// AssemblerWithClock sets the function returning the current time.
func AssemblerWithClock(now func() time.Time) AssemblerOption {
	return func(a *assembler) {
		a.now = now
	}
}

// NewAssembler returns a new Assembler for the user filter and date range.
func NewAssembler(
	logger *slog.Logger,
	querier sqlstore.Querier,
	userFilter dxctlfilter.UserFilter,
	dateRange dxctlfilter.DateRange,
	options ...AssemblerOption,
) Assembler {
	a := &assembler{
		logger:             logger,
		querier:            querier,
		userFilter:         userFilter,
		dateRange:          dateRange,
		period:             dxctlfilter.DefaultPeriod,
		schema:             DefaultSchema,
		excludedAccountIDs: DefaultExcludedAccountIDs,
		balanceConfig: BalanceConfig{
			ExcludedAccountIDs: DefaultBalanceExcludedAccountIDs,
			ConvertCurrencies:  DefaultBalanceConvertCurrencies,
		},
		loginsSince: DefaultLoginsSince,
		now:         time.Now,
	}
	for _, option := range options {
		option(a)
	}
	if a.fetcher == nil {
		a.fetcher = dxctlrates.NewFetcher(
			logger,
			querier,
			dxctlrates.FetcherWithSchema(a.schema),
			dxctlrates.FetcherWithPairs(a.quotePairs),
		)
	}
	return a
}

// *** PRIVATE ***

type assembler struct {
	logger             *slog.Logger
	querier            sqlstore.Querier
	fetcher            dxctlrates.Fetcher
	userFilter         dxctlfilter.UserFilter
	dateRange          dxctlfilter.DateRange
	period             dxctlfilter.Period
	schema             string
	excludedAccountIDs []int64
	balanceConfig      BalanceConfig
	loginsSince        xtime.Date
	quotePairs         []string
	now                func() time.Time
}

// tablePrefix returns the prefix prepended to every table name.
func (a *assembler) tablePrefix() string {
	if a.schema == "" {
		return ""
	}
	return a.schema + "."
}

// userPredicate returns the user filter predicate on principal names.
func (a *assembler) userPredicate() (string, []any) {
	return a.userFilter.Predicate("principals.name")
}

// rateTable fetches the rates for every date in dates.
func (a *assembler) rateTable(ctx context.Context, dates []xtime.Date) (*dxctlrates.RateTable, error) {
	rates, err := a.fetcher.GetRatesForDates(ctx, dates)
	if err != nil {
		return nil, err
	}
	return dxctlrates.NewRateTable(rates), nil
}

// excludedAccountsCondition returns an "AND column NOT IN ?" condition, or
// nothing if no account ids are excluded.
func excludedAccountsCondition(column string, accountIDs []int64) (string, []any) {
	if len(accountIDs) == 0 {
		return "", nil
	}
	return " AND " + column + " NOT IN ?", []any{slices.Clone(accountIDs)}
}

// sortedDates returns the distinct dates in ascending order.
func sortedDates(dates map[xtime.Date]struct{}) []xtime.Date {
	result := make([]xtime.Date, 0, len(dates))
	for date := range dates {
		result = append(result, date)
	}
	slices.SortFunc(result, xtime.Date.Compare)
	return result
}
