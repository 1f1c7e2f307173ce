// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package dxctlrates fetches historical and latest quote rates used to
// convert monetary amounts to USD.
//
// All rates are normalized to USD per one unit of the quote currency. Pairs
// quoted with USD as the base currency (e.g., USD/JPY) are inverted, pairs
// quoted against USD (e.g., BTC/USD) are used as-is.
package dxctlrates

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bufdev/dxctl/internal/dxctl/dxctlfilter"
	"github.com/bufdev/dxctl/internal/pkg/sqlstore"
	"github.com/bufdev/dxctl/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

// USD is the common currency all amounts are converted to.
const USD = "USD"

// DefaultPairs is the default allow-list of quote pairs.
var DefaultPairs = []string{
	"BTC/USD",
	"ETH/USD",
	"EUR/USD",
	"GBP/USD",
	"USD/JPY",
	"USD/CNH",
	"USD/MXN",
}

// Rate is a single quote rate.
type Rate struct {
	// Date is the date the quote applies to.
	Date xtime.Date `json:"date"`
	// Symbol is the source pair (e.g., "USD/JPY").
	Symbol string `json:"symbol"`
	// QuoteCurrency is the non-USD currency of the pair (e.g., "JPY").
	QuoteCurrency string `json:"quote_currency"`
	// BidPrice is USD per one unit of QuoteCurrency.
	BidPrice decimal.Decimal `json:"bid_price"`
	// Time is the snapshot time, set for latest rates only.
	Time time.Time `json:"time,omitzero"`
}

// Fetcher fetches quote rates from the quotes history table.
type Fetcher interface {
	// GetRatesForDates returns one rate per (date, currency) for the given dates.
	//
	// Returns dxctlfilter.ErrEmptyDateRange without querying if dates is empty.
	GetRatesForDates(ctx context.Context, dates []xtime.Date) ([]Rate, error)
	// GetLatestRates returns the most recent rate for each of the given symbols.
	GetLatestRates(ctx context.Context, symbols []string) ([]Rate, error)
}

// FetcherOption is a functional option for configuring a Fetcher.
type FetcherOption func(*fetcher)

// FetcherWithPairs sets the allow-list of quote pairs.
func FetcherWithPairs(pairs []string) FetcherOption {
	return func(f *fetcher) {
		if len(pairs) > 0 {
			f.pairs = pairs
		}
	}
}

// FetcherWithSchema sets the schema prefix of the quotes history table.
func FetcherWithSchema(schema string) FetcherOption {
	return func(f *fetcher) {
		f.schema = schema
	}
}

// NewFetcher returns a new Fetcher.
func NewFetcher(logger *slog.Logger, querier sqlstore.Querier, options ...FetcherOption) Fetcher {
	f := &fetcher{
		logger:  logger,
		querier: querier,
		pairs:   DefaultPairs,
	}
	for _, option := range options {
		option(f)
	}
	return f
}

// QuoteCurrency returns the currency an instrument symbol is quoted in.
//
// The quote currency is the part after "/" (e.g., "BTC" for "ETH/BTC"). A
// symbol without "/" has any trailing "$" marker stripped (e.g., "USDT" for
// "USDT$"). An empty result defaults to USD, and USDT is treated as USD.
func QuoteCurrency(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	var currency string
	if _, after, ok := strings.Cut(symbol, "/"); ok {
		currency = after
	} else {
		currency = strings.TrimRight(symbol, "$")
	}
	switch currency {
	case "", "USDT":
		return USD
	default:
		return currency
	}
}

// PairForCurrency returns the quote pair that prices the currency against USD.
//
// Both orientations match (e.g., "USD/JPY" for "JPY"). Empty pairs selects
// DefaultPairs. The bool is false if no pair prices the currency.
func PairForCurrency(currency string, pairs []string) (string, bool) {
	if len(pairs) == 0 {
		pairs = DefaultPairs
	}
	for _, pair := range pairs {
		if pairCurrency, _ := normalizePair(pair); pairCurrency == currency {
			return pair, true
		}
	}
	return "", false
}

// ConvertToUSD converts the amount at the rate, rounded to 8 decimal places.
//
// A rate of 1 returns the amount unchanged.
func ConvertToUSD(amount decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	if rate.Equal(one) {
		return amount
	}
	return amount.Mul(rate).Round(usdPlaces)
}

// RateTable looks up rates by (date, currency).
type RateTable struct {
	rates map[rateKey]decimal.Decimal
}

// NewRateTable returns a RateTable over the rates.
//
// The first rate for each (date, currency) wins.
func NewRateTable(rates []Rate) *RateTable {
	table := &RateTable{
		rates: make(map[rateKey]decimal.Decimal, len(rates)),
	}
	for _, rate := range rates {
		key := rateKey{date: rate.Date, currency: rate.QuoteCurrency}
		if _, ok := table.rates[key]; !ok {
			table.rates[key] = rate.BidPrice
		}
	}
	return table
}

// Lookup returns the rate for the currency on the date.
//
// The bool is false if no rate is known, in which case the rate is 1.
func (t *RateTable) Lookup(date xtime.Date, currency string) (decimal.Decimal, bool) {
	if t != nil {
		if rate, ok := t.rates[rateKey{date: date, currency: currency}]; ok {
			return rate, true
		}
	}
	return decimal.NewFromInt(1), false
}

// Len returns the number of rates in the table.
func (t *RateTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rates)
}

// *** PRIVATE ***

var one = decimal.NewFromInt(1)

const (
	usdPlaces = 8
	// inversePlaces keeps inverted rates precise enough that ConvertToUSD
	// rounding absorbs the division error.
	inversePlaces = 32
)

type rateKey struct {
	date     xtime.Date
	currency string
}

type fetcher struct {
	logger  *slog.Logger
	querier sqlstore.Querier
	pairs   []string
	schema  string
}

func (f *fetcher) GetRatesForDates(ctx context.Context, dates []xtime.Date) ([]Rate, error) {
	if len(dates) == 0 {
		return nil, dxctlfilter.ErrEmptyDateRange
	}
	dateStrings := make([]string, 0, len(dates))
	for _, date := range dates {
		dateStrings = append(dateStrings, date.String())
	}
	query := fmt.Sprintf(`SELECT bid_time, event_symbol, bid_price
FROM %s
WHERE event_symbol IN ?
AND CAST(bid_time AS DATE) IN ?
ORDER BY bid_time`, f.table())
	rows, err := f.querier.Query(ctx, query, f.pairs, dateStrings)
	if err != nil {
		return nil, fmt.Errorf("querying rates: %w", err)
	}
	rates := make([]Rate, 0, len(rows))
	seen := make(map[rateKey]struct{}, len(rows))
	for _, row := range rows {
		bidTime, err := row.Time("bid_time")
		if err != nil {
			return nil, err
		}
		rate, ok, err := f.newRate(row, xtime.TimeToDate(bidTime.UTC()))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		key := rateKey{date: rate.Date, currency: rate.QuoteCurrency}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		rates = append(rates, rate)
	}
	f.logger.Debug("rates fetched", "dates", len(dates), "rates", len(rates))
	return rates, nil
}

func (f *fetcher) GetLatestRates(ctx context.Context, symbols []string) ([]Rate, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT event_symbol, snapshot_time, bid_price
FROM (
	SELECT event_symbol, snapshot_time, bid_price,
		ROW_NUMBER() OVER (PARTITION BY event_symbol ORDER BY snapshot_time DESC) AS row_num
	FROM %s
	WHERE event_symbol IN ?
) AS ranked
WHERE row_num = 1`, f.table())
	rows, err := f.querier.Query(ctx, query, symbols)
	if err != nil {
		return nil, fmt.Errorf("querying latest rates: %w", err)
	}
	rates := make([]Rate, 0, len(rows))
	for _, row := range rows {
		snapshotTime, err := row.Time("snapshot_time")
		if err != nil {
			return nil, err
		}
		rate, ok, err := f.newRate(row, xtime.TimeToDate(snapshotTime.UTC()))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rate.Time = snapshotTime
		rates = append(rates, rate)
	}
	for _, symbol := range symbols {
		if !containsSymbol(rates, symbol) {
			f.logger.Warn("no latest rate", "symbol", symbol)
		}
	}
	return rates, nil
}

// newRate builds a normalized Rate from a quote row.
//
// The bool is false if the row cannot be normalized and was skipped.
func (f *fetcher) newRate(row sqlstore.Row, date xtime.Date) (Rate, bool, error) {
	symbol := row.String("event_symbol")
	bidPrice, err := row.Decimal("bid_price")
	if err != nil {
		return Rate{}, false, err
	}
	quoteCurrency, inverted := normalizePair(symbol)
	if inverted {
		if bidPrice.IsZero() {
			f.logger.Warn("zero bid price for inverted pair", "symbol", symbol, "date", date.String())
			return Rate{}, false, nil
		}
		bidPrice = decimal.NewFromInt(1).DivRound(bidPrice, inversePlaces)
	}
	return Rate{
		Date:          date,
		Symbol:        symbol,
		QuoteCurrency: quoteCurrency,
		BidPrice:      bidPrice,
	}, true, nil
}

func (f *fetcher) table() string {
	if f.schema == "" {
		return "quotes_history"
	}
	return f.schema + ".quotes_history"
}

// normalizePair returns the non-USD currency of a pair and whether the
// pair price must be inverted to express USD per unit of that currency.
func normalizePair(symbol string) (string, bool) {
	if currency, ok := strings.CutPrefix(symbol, USD+"/"); ok {
		return currency, true
	}
	if currency, ok := strings.CutSuffix(symbol, "/"+USD); ok {
		return currency, false
	}
	return QuoteCurrency(symbol), false
}

func containsSymbol(rates []Rate, symbol string) bool {
	for _, rate := range rates {
		if rate.Symbol == symbol {
			return true
		}
	}
	return false
}
