// Copyright 2026 Peter Edge
//
// All rights reserved.

package dxctlrates

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bufdev/dxctl/internal/dxctl/dxctlfilter"
	"github.com/bufdev/dxctl/internal/pkg/sqlstore"
	"github.com/bufdev/dxctl/internal/standard/xtime"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestQuoteCurrency(t *testing.T) {
	t.Parallel()
	for symbol, want := range map[string]string{
		"ETH/BTC":  "BTC",
		"BTC/USD":  "USD",
		"BTC/USDT": "USD",
		"EUR/JPY":  "JPY",
		"USDT$":    "USD",
		"BTC$":     "BTC",
		"EUR":      "EUR",
		"":         "USD",
		"XAU/":     "USD",
	} {
		require.Equal(t, want, QuoteCurrency(symbol), symbol)
	}
}

func TestGetRatesForDatesInversion(t *testing.T) {
	t.Parallel()
	day := xtime.Date{Year: 2024, Month: time.January, Day: 2}
	querier := &fakeQuerier{
		rows: []sqlstore.Row{
			{"bid_time": time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), "event_symbol": "USD/JPY", "bid_price": "150"},
			{"bid_time": time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), "event_symbol": "EUR/USD", "bid_price": "1.1"},
			// A later snapshot on the same day is dropped.
			{"bid_time": time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), "event_symbol": "EUR/USD", "bid_price": "1.2"},
			{"bid_time": time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), "event_symbol": "USD/MXN", "bid_price": "0"},
		},
	}
	fetcher := NewFetcher(slog.New(slog.DiscardHandler), querier, FetcherWithSchema("dxcore.dxcore"))
	rates, err := fetcher.GetRatesForDates(context.Background(), []xtime.Date{day})
	require.NoError(t, err)
	require.Len(t, rates, 2)

	require.Equal(t, "JPY", rates[0].QuoteCurrency)
	require.True(t, rates[0].BidPrice.Mul(decimal.NewFromInt(150)).Round(10).Equal(decimal.NewFromInt(1)), rates[0].BidPrice.String())
	require.Equal(t, "EUR", rates[1].QuoteCurrency)
	require.True(t, rates[1].BidPrice.Equal(decimal.RequireFromString("1.1")))
	require.Equal(t, day, rates[1].Date)

	require.Len(t, querier.queries, 1)
	require.Contains(t, querier.queries[0].query, "FROM dxcore.dxcore.quotes_history")
	require.Equal(t, []any{DefaultPairs, []string{"2024-01-02"}}, querier.queries[0].args)
}

func TestGetRatesForDatesEmpty(t *testing.T) {
	t.Parallel()
	querier := &fakeQuerier{}
	_, err := NewFetcher(slog.New(slog.DiscardHandler), querier).GetRatesForDates(context.Background(), nil)
	require.ErrorIs(t, err, dxctlfilter.ErrEmptyDateRange)
	require.Empty(t, querier.queries)
}

func TestGetLatestRates(t *testing.T) {
	t.Parallel()
	snapshotTime := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	querier := &fakeQuerier{
		rows: []sqlstore.Row{
			{"event_symbol": "BTC/USD", "snapshot_time": snapshotTime, "bid_price": "64000.5"},
		},
	}
	fetcher := NewFetcher(slog.New(slog.DiscardHandler), querier, FetcherWithPairs([]string{"BTC/USD"}))
	rates, err := fetcher.GetLatestRates(context.Background(), []string{"BTC/USD", "ETH/USD"})
	require.NoError(t, err)
	require.Len(t, rates, 1)
	require.Equal(t, "BTC", rates[0].QuoteCurrency)
	require.Equal(t, snapshotTime, rates[0].Time)
	require.True(t, rates[0].BidPrice.Equal(decimal.RequireFromString("64000.5")))
	require.True(t, strings.Contains(querier.queries[0].query, "ROW_NUMBER() OVER (PARTITION BY event_symbol ORDER BY snapshot_time DESC)"))
	require.Equal(t, []any{[]string{"BTC/USD", "ETH/USD"}}, querier.queries[0].args)

	rates, err = fetcher.GetLatestRates(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, rates)
	require.Len(t, querier.queries, 1)
}

func TestRateTable(t *testing.T) {
	t.Parallel()
	day := xtime.Date{Year: 2024, Month: time.January, Day: 2}
	table := NewRateTable([]Rate{
		{Date: day, QuoteCurrency: "BTC", BidPrice: decimal.NewFromInt(50000)},
		{Date: day, QuoteCurrency: "BTC", BidPrice: decimal.NewFromInt(1)},
	})
	require.Equal(t, 1, table.Len())
	rate, ok := table.Lookup(day, "BTC")
	require.True(t, ok)
	require.True(t, rate.Equal(decimal.NewFromInt(50000)))
	// Unknown currencies and dates pass amounts through unchanged.
	rate, ok = table.Lookup(day, "USD")
	require.False(t, ok)
	require.True(t, rate.Equal(decimal.NewFromInt(1)))
	rate, ok = table.Lookup(day.AddDays(1), "BTC")
	require.False(t, ok)
	require.True(t, rate.Equal(decimal.NewFromInt(1)))
	var nilTable *RateTable
	rate, ok = nilTable.Lookup(day, "BTC")
	require.False(t, ok)
	require.True(t, rate.Equal(decimal.NewFromInt(1)))
}

func TestGetRatesForDatesUsesUTCDates(t *testing.T) {
	t.Parallel()
	tokyo := time.FixedZone("UTC+9", 9*60*60)
	querier := &fakeQuerier{
		rows: []sqlstore.Row{
			// 2024-01-01 18:00 UTC.
			{"bid_time": time.Date(2024, 1, 2, 3, 0, 0, 0, tokyo), "event_symbol": "BTC/USD", "bid_price": "42000"},
		},
	}
	rates, err := NewFetcher(slog.New(slog.DiscardHandler), querier).GetRatesForDates(
		context.Background(),
		[]xtime.Date{{Year: 2024, Month: time.January, Day: 1}},
	)
	require.NoError(t, err)
	require.Len(t, rates, 1)
	require.Equal(t, xtime.Date{Year: 2024, Month: time.January, Day: 1}, rates[0].Date)
}

func TestPairForCurrency(t *testing.T) {
	t.Parallel()
	pairs := []string{"BTC/USD", "USD/JPY"}
	for currency, want := range map[string]string{
		"BTC": "BTC/USD",
		"JPY": "USD/JPY",
		"EUR": "",
	} {
		pair, ok := PairForCurrency(currency, pairs)
		require.Equal(t, want != "", ok, currency)
		require.Equal(t, want, pair, currency)
	}
	pair, ok := PairForCurrency("MXN", nil)
	require.True(t, ok)
	require.Equal(t, "USD/MXN", pair)
}

func TestConvertToUSDInvertedRate(t *testing.T) {
	t.Parallel()
	querier := &fakeQuerier{
		rows: []sqlstore.Row{
			{"event_symbol": "USD/JPY", "snapshot_time": time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), "bid_price": "150"},
		},
	}
	rates, err := NewFetcher(slog.New(slog.DiscardHandler), querier).GetLatestRates(context.Background(), []string{"USD/JPY"})
	require.NoError(t, err)
	require.Len(t, rates, 1)
	usd := ConvertToUSD(decimal.NewFromInt(15000), rates[0].BidPrice)
	require.True(t, usd.Equal(decimal.NewFromInt(100)), usd.String())
}

func TestConvertToUSDAtOneIsUnchanged(t *testing.T) {
	t.Parallel()
	day := xtime.Date{Year: 2024, Month: time.January, Day: 2}
	rate, ok := NewRateTable(nil).Lookup(day, "XRP")
	require.False(t, ok)
	for _, value := range []string{"0", "-0.001", "12.3456789012345", "1e-12"} {
		amount := decimal.RequireFromString(value)
		converted := ConvertToUSD(ConvertToUSD(amount, rate), rate)
		require.True(t, converted.Equal(amount), "want %s, got %s", amount, converted)
	}
}

type fakeQuery struct {
	query string
	args  []any
}

type fakeQuerier struct {
	rows    []sqlstore.Row
	queries []fakeQuery
}

func (q *fakeQuerier) Query(_ context.Context, query string, args ...any) ([]sqlstore.Row, error) {
	q.queries = append(q.queries, fakeQuery{query: query, args: args})
	return q.rows, nil
}
