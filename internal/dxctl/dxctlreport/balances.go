// Copyright 2026 Peter Edge
//
// All rights reserved.

package dxctlreport

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bufdev/dxctl/internal/dxctl/dxctlrates"
	"github.com/shopspring/decimal"
)

// Balance is the USD balance of a user.
type Balance struct {
	// UserID is the principal name.
	UserID string `json:"user_id"`
	// USD is the total balance in USD.
	USD decimal.Decimal `json:"usd"`
}

func (a *assembler) ListBalances(ctx context.Context) ([]*Balance, error) {
	accountsCondition, accountsArgs := excludedAccountsCondition("positions.account_id", a.balanceConfig.ExcludedAccountIDs)
	userPredicate, userArgs := a.userPredicate()
	query := fmt.Sprintf(balancesQuery, a.tablePrefix(), accountsCondition, userPredicate)
	args := make([]any, 0, len(accountsArgs)+len(userArgs)+1)
	args = append(args, liveClearingCode)
	args = append(args, accountsArgs...)
	args = append(args, userArgs...)
	rows, err := a.querier.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying balances: %w", err)
	}
	rates, err := a.latestUSDRates(ctx)
	if err != nil {
		return nil, err
	}
	var userIDs []string
	totals := make(map[string]decimal.Decimal)
	for _, row := range rows {
		balance, err := row.Decimal("balance")
		if err != nil {
			return nil, fmt.Errorf("balance for user %q: %w", row.String("user_id"), err)
		}
		userID := row.String("user_id")
		if _, ok := totals[userID]; !ok {
			userIDs = append(userIDs, userID)
			totals[userID] = decimal.Zero
		}
		// Currencies that are not converted count as 0.
		if rate, ok := rates[strings.TrimRight(row.String("symbol"), "$")]; ok {
			totals[userID] = totals[userID].Add(dxctlrates.ConvertToUSD(balance, rate))
		}
	}
	slices.Sort(userIDs)
	balances := make([]*Balance, 0, len(userIDs))
	for _, userID := range userIDs {
		balances = append(balances, &Balance{
			UserID: userID,
			USD:    totals[userID],
		})
	}
	a.logger.Info("balances assembled", "users", a.userFilter.String(), "balances", len(balances))
	return balances, nil
}

// *** PRIVATE ***

const balancesQuery = `SELECT
	instruments.symbol AS symbol,
	principals.name AS user_id,
	accounts.account_code AS account_code,
	SUM(positions.quantity) AS balance
FROM %[1]spositions AS positions
INNER JOIN %[1]saccounts AS accounts
	ON positions.account_id = accounts.id
INNER JOIN %[1]sprincipals AS principals
	ON accounts.owner_id = principals.id
INNER JOIN %[1]sinstruments AS instruments
	ON positions.instrument_id = instruments.id
WHERE positions.code IS NULL
AND positions.quantity > 0
AND accounts.clearing_code = ?%[2]s
AND %[3]s
GROUP BY accounts.account_code, principals.name, instruments.symbol`

// latestUSDRates returns the latest USD rate of each convert currency.
//
// USD and USDT convert at 1. A currency without a latest rate converts at 1
// and is logged.
func (a *assembler) latestUSDRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal, len(a.balanceConfig.ConvertCurrencies))
	var symbols []string
	for _, currency := range a.balanceConfig.ConvertCurrencies {
		if dxctlrates.QuoteCurrency(currency) == dxctlrates.USD {
			rates[currency] = decimal.NewFromInt(1)
			continue
		}
		symbol, ok := dxctlrates.PairForCurrency(currency, a.quotePairs)
		if !ok {
			symbol = currency + "/" + dxctlrates.USD
		}
		symbols = append(symbols, symbol)
	}
	latestRates, err := a.fetcher.GetLatestRates(ctx, symbols)
	if err != nil {
		return nil, err
	}
	for _, rate := range latestRates {
		rates[rate.QuoteCurrency] = rate.BidPrice
	}
	for _, currency := range a.balanceConfig.ConvertCurrencies {
		if _, ok := rates[currency]; !ok {
			a.logger.Warn("no latest rate, converting at 1", "currency", currency)
			rates[currency] = decimal.NewFromInt(1)
		}
	}
	return rates, nil
}
