// Copyright 2026 Peter Edge
//
// All rights reserved.

package dxctlreport

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/bufdev/dxctl/internal/pkg/sqlstore"
	"github.com/shopspring/decimal"
)

// Position is the open position of a user in a symbol.
type Position struct {
	// UserID is the principal name.
	UserID string `json:"user_id"`
	// Symbol is the instrument symbol.
	Symbol string `json:"order_symbol"`
	// Quantity is the summed open quantity.
	Quantity decimal.Decimal `json:"quantity"`
	// Cost is the summed open cost.
	Cost decimal.Decimal `json:"cost"`
	// PositionCodes are the distinct position codes, sorted.
	PositionCodes []string `json:"position_code"`
	// OpenPrice is Cost / Quantity, invalid if Quantity is zero.
	OpenPrice decimal.NullDecimal `json:"open_price"`
	// AsOf is the time the report was assembled.
	AsOf time.Time `json:"date"`
}

// AggregatePositions sums position rows per (user, symbol).
//
// Each row must have user_id, order_symbol, quantity, cost, and
// position_code columns. The result is sorted by user and symbol.
func AggregatePositions(rows []sqlstore.Row, asOf time.Time) ([]*Position, error) {
	type positionKey struct {
		userID string
		symbol string
	}
	positionsByKey := make(map[positionKey]*Position)
	for _, row := range rows {
		quantity, err := row.Decimal("quantity")
		if err != nil {
			return nil, err
		}
		cost, err := row.Decimal("cost")
		if err != nil {
			return nil, err
		}
		key := positionKey{userID: row.String("user_id"), symbol: row.String("order_symbol")}
		position, ok := positionsByKey[key]
		if !ok {
			position = &Position{
				UserID: key.userID,
				Symbol: key.symbol,
				AsOf:   asOf,
			}
			positionsByKey[key] = position
		}
		position.Quantity = position.Quantity.Add(quantity)
		position.Cost = position.Cost.Add(cost)
		if code := row.String("position_code"); code != "" && !slices.Contains(position.PositionCodes, code) {
			position.PositionCodes = append(position.PositionCodes, code)
		}
	}
	positions := make([]*Position, 0, len(positionsByKey))
	for _, position := range positionsByKey {
		slices.Sort(position.PositionCodes)
		if !position.Quantity.IsZero() {
			position.OpenPrice = decimal.NewNullDecimal(position.Cost.Div(position.Quantity))
		}
		positions = append(positions, position)
	}
	slices.SortFunc(positions, func(a *Position, b *Position) int {
		return cmp.Or(cmp.Compare(a.UserID, b.UserID), cmp.Compare(a.Symbol, b.Symbol))
	})
	return positions, nil
}

func (a *assembler) ListPositions(ctx context.Context) ([]*Position, error) {
	userPredicate, userArgs := a.userPredicate()
	query := fmt.Sprintf(positionsQuery, a.tablePrefix(), userPredicate)
	rows, err := a.querier.Query(ctx, query, userArgs...)
	if err != nil {
		return nil, fmt.Errorf("querying positions: %w", err)
	}
	// Positions repeat once per order leg sharing the position code.
	rows = sqlstore.Distinct(rows)
	if len(rows) == 0 {
		a.logger.Warn("no open positions", "users", a.userFilter.String())
		return []*Position{}, nil
	}
	positions, err := AggregatePositions(rows, a.now())
	if err != nil {
		return nil, err
	}
	for _, position := range positions {
		if !position.OpenPrice.Valid {
			a.logger.Warn("position nets to zero quantity, open price undefined", "user_id", position.UserID, "symbol", position.Symbol)
		}
	}
	a.logger.Info("positions assembled", "users", a.userFilter.String(), "positions", len(positions))
	return positions, nil
}

// *** PRIVATE ***

const positionsQuery = `SELECT
	principals.name AS user_id,
	accounts.account_code AS account_code,
	instruments.symbol AS order_symbol,
	positions.quantity AS quantity,
	positions.cost AS cost,
	positions.code AS position_code,
	positions.opening_time AS opening_time,
	instruments.instrument_type AS instrument_type
FROM %[1]spositions AS positions
INNER JOIN %[1]sinstruments AS instruments
	ON positions.instrument_id = instruments.id
INNER JOIN %[1]saccounts AS accounts
	ON accounts.id = positions.account_id
INNER JOIN %[1]sorder_legs AS order_legs
	ON order_legs.position_code = positions.code
INNER JOIN %[1]sorders AS orders
	ON orders.id = order_legs.order_id
LEFT JOIN %[1]sprincipals AS principals
	ON principals.id = accounts.owner_id
WHERE positions.code IS NOT NULL
AND positions.quantity <> 0
AND %[2]s
ORDER BY orders.transaction_time DESC`
