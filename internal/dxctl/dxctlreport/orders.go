// Copyright 2026 Peter Edge
//
// All rights reserved.

package dxctlreport

import (
	"context"
	"fmt"
	"time"

	"github.com/bufdev/dxctl/internal/dxctl/dxctlrates"
	"github.com/bufdev/dxctl/internal/pkg/sqlstore"
	"github.com/bufdev/dxctl/internal/standard/xtime"
	"github.com/shopspring/decimal"
)

const (
	// StrategyFXSTP is the straight-through processing execution strategy.
	// Only FX_STP trades carry a markup.
	StrategyFXSTP = "FX_STP"
	// StrategyBBook is the default execution strategy.
	StrategyBBook = "B_BOOK"
	// StrategyManual is the manual execution strategy, displayed as FX_STP.
	StrategyManual = "MANUAL"
)

// markupPlaces is the number of decimal places markup is rounded to.
const markupPlaces = 5

// categoryLabels maps instrument categories to their report labels.
var categoryLabels = map[string]string{
	"Forex Majors": "Forex",
	"Forex Minors": "Forex",
	"Forex Metals": "Forex",
	"Indices":      "Equities",
}

// Order is a single trade leg.
type Order struct {
	// UserID is the principal name.
	UserID string `json:"user_id"`
	// AccountID is the account code.
	AccountID string `json:"account_id"`
	// Symbol is the instrument symbol (e.g., "ETH/BTC").
	Symbol string `json:"order_symbol"`
	// Category is the relabeled instrument category.
	Category string `json:"category"`
	// Side is the order side.
	Side string `json:"order_side"`
	// OrderID is the order id.
	OrderID string `json:"order_id"`
	// CreatedTime is the order creation time.
	CreatedTime time.Time `json:"created_time"`
	// TradeTime is the trade activity time.
	TradeTime time.Time `json:"trade_time"`
	// TransactionDate is the date of TradeTime.
	TransactionDate xtime.Date `json:"transaction_time"`
	// PositionCode is the position the trade belongs to.
	PositionCode string `json:"position_code"`
	// PositionEffect is the position effect of the trade (e.g., "OPENING").
	PositionEffect string `json:"position_effect"`
	// Quantity is the absolute traded quantity.
	Quantity decimal.Decimal `json:"quantity"`
	// Price is the order leg price in the quote currency.
	Price decimal.Decimal `json:"price"`
	// Strategy is the display label of the resolved execution strategy.
	Strategy string `json:"order_strategy"`
	// Parameters are the raw order parameters.
	Parameters string `json:"parameters"`
	// BidPrice is the USD rate of the quote currency on the transaction date.
	BidPrice decimal.Decimal `json:"bid_price"`
	// Volume is the traded notional in USD.
	Volume decimal.Decimal `json:"volume"`
	// PnL is the settled profit and loss in USD.
	PnL decimal.Decimal `json:"pnl"`
	// Markup is the FX_STP markup in USD.
	Markup decimal.Decimal `json:"markup"`
}

// ResolveStrategy returns the execution strategy of an order.
//
// The order-level strategy wins, then the strategy of the order that opened
// the position, then B_BOOK.
func ResolveStrategy(orderStrategy string, openingStrategy string) string {
	switch {
	case orderStrategy != "":
		return orderStrategy
	case openingStrategy != "":
		return openingStrategy
	default:
		return StrategyBBook
	}
}

// Markup returns the markup of a trade in the quote currency.
//
// The markup is |legPrice - hedgePrice| x filledQuantity rounded to five
// places for FX_STP trades with both prices known, and 0 otherwise.
func Markup(strategy string, legPrice decimal.NullDecimal, hedgePrice decimal.NullDecimal, filledQuantity decimal.Decimal) decimal.Decimal {
	if strategy != StrategyFXSTP || !legPrice.Valid || !hedgePrice.Valid {
		return decimal.Zero
	}
	return legPrice.Decimal.Sub(hedgePrice.Decimal).Mul(filledQuantity).Abs().Round(markupPlaces)
}

// RelabelCategory returns the report label of an instrument category.
//
// Forex sub-categories collapse to "Forex" and "Indices" becomes "Equities".
// Other categories are unchanged.
func RelabelCategory(category string) string {
	if label, ok := categoryLabels[category]; ok {
		return label
	}
	return category
}

// RelabelStrategy returns the display label of an execution strategy.
func RelabelStrategy(strategy string) string {
	if strategy == StrategyManual {
		return StrategyFXSTP
	}
	return strategy
}

func (a *assembler) ListOrders(ctx context.Context) ([]*Order, error) {
	accountsCondition, accountsArgs := excludedAccountsCondition("accounts.id", a.excludedAccountIDs)
	userPredicate, userArgs := a.userPredicate()
	start, end := a.dateRange.Bounds()
	query := fmt.Sprintf(ordersQuery, a.tablePrefix(), accountsCondition, userPredicate)
	args := make([]any, 0, len(accountsArgs)+len(userArgs)+3)
	args = append(args, liveClearingCode)
	args = append(args, accountsArgs...)
	args = append(args, start, end)
	args = append(args, userArgs...)
	rows, err := a.querier.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	// Exact duplicates come from the hedge and opening order joins.
	rows = sqlstore.Distinct(rows)
	if len(rows) == 0 {
		return nil, &EmptyResultError{Report: "orders"}
	}
	orders := make([]*Order, 0, len(rows))
	dates := make(map[xtime.Date]struct{})
	for _, row := range rows {
		order, err := newOrder(row)
		if err != nil {
			return nil, fmt.Errorf("order %q: %w", row.String("order_id"), err)
		}
		dates[order.TransactionDate] = struct{}{}
		orders = append(orders, order)
	}
	rateTable, err := a.rateTable(ctx, sortedDates(dates))
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		rate, ok := rateTable.Lookup(order.TransactionDate, dxctlrates.QuoteCurrency(order.Symbol))
		if !ok {
			a.logger.Debug("no rate for order, using 1", "order_id", order.OrderID, "symbol", order.Symbol, "date", order.TransactionDate.String())
		}
		order.BidPrice = rate
		order.Volume = dxctlrates.ConvertToUSD(order.Quantity.Mul(order.Price), rate)
		order.PnL = dxctlrates.ConvertToUSD(order.PnL, rate)
		order.Markup = dxctlrates.ConvertToUSD(order.Markup, rate)
	}
	a.logger.Info("orders assembled", "users", a.userFilter.String(), "range", a.dateRange.String(), "orders", len(orders))
	return orders, nil
}

// *** PRIVATE ***

const ordersQuery = `SELECT
	principals.name AS user_id,
	accounts.account_code AS account_id,
	order_instrument.symbol AS order_symbol,
	order_instrument.additional_fields::json->0->>'val' AS category,
	orders.order_side AS order_side,
	activities.order_id AS order_id,
	orders.created_time AS created_time,
	activities.transaction_time AS trade_time,
	COALESCE(order_legs.position_code, activity_legs.position_code, activities.linked_position_code, '') AS position_code,
	COALESCE(order_legs.position_effect, '') AS position_effect,
	ABS(activity_legs.quantity) AS quantity,
	order_legs.price AS price,
	activity_legs.price AS leg_price,
	hedge.price AS hedge_price,
	orders.filled_quantity AS filled_quantity,
	COALESCE(orders.extensions::json->0->'val'->>'PL_SETTLED_IN_TRADE_CURRENCY', '0') AS pnl_1,
	COALESCE(orders.extensions::json->1->'val'->>'PL_SETTLED_IN_TRADE_CURRENCY', '0') AS pnl_2,
	COALESCE(orders.extensions::json->2->'val'->>'PL_SETTLED_IN_TRADE_CURRENCY', '0') AS pnl_3,
	COALESCE(orders.extensions::json->3->'val'->>'PL_SETTLED_IN_TRADE_CURRENCY', '0') AS pnl_4,
	orders.parameters::json->>'ORDER_EXEC_STRATEGY_NAME' AS order_strategy,
	opening_order.parameters::json->>'ORDER_EXEC_STRATEGY_NAME' AS opening_strategy,
	orders.parameters AS parameters
FROM %[1]sactivities AS activities
INNER JOIN %[1]saccounts AS accounts
	ON activities.account_id = accounts.id AND accounts.clearing_code = ?%[2]s
INNER JOIN %[1]sprincipals AS principals
	ON accounts.owner_id = principals.id
INNER JOIN %[1]sactivity_legs AS activity_legs
	ON activities.id = activity_legs.activity_id
INNER JOIN %[1]sinstruments AS order_instrument
	ON activity_legs.instrument_id = order_instrument.id
INNER JOIN %[1]sorders AS orders
	ON activities.order_id = orders.id AND (orders.status IS NULL OR orders.status = 'COMPLETED')
INNER JOIN %[1]sorder_legs AS order_legs
	ON orders.id = order_legs.order_id AND activity_legs.leg_type = 'POS_ADJUST'
LEFT JOIN %[1]sorders AS opening_order
	ON order_legs.position_code = opening_order.order_chain_id::text AND opening_order.status = 'COMPLETED'
LEFT JOIN (
	SELECT hedged.id, COALESCE(
		hedged.extensions::json->0->'val'->>'hedgingOrderId',
		hedged.extensions::json->1->'val'->>'hedgingOrderId',
		hedged.extensions::json->2->'val'->>'hedgingOrderId',
		hedged.extensions::json->3->'val'->>'hedgingOrderId',
		'0')::decimal AS hedge_id
	FROM %[1]sorders AS hedged
) AS hedge_order
	ON orders.id = hedge_order.id
LEFT JOIN %[1]sorder_legs AS hedge
	ON hedge.order_id = hedge_order.hedge_id
WHERE activities.activity_type = 'TRADE'
AND activities.transaction_time >= ?
AND activities.transaction_time < ?
AND %[3]s
ORDER BY activities.transaction_time ASC`

// newOrder builds an Order from a row with PnL and markup still in the quote currency.
func newOrder(row sqlstore.Row) (*Order, error) {
	createdTime, err := row.Time("created_time")
	if err != nil {
		return nil, err
	}
	tradeTime, err := row.Time("trade_time")
	if err != nil {
		return nil, err
	}
	quantity, err := row.Decimal("quantity")
	if err != nil {
		return nil, err
	}
	price, err := row.Decimal("price")
	if err != nil {
		return nil, err
	}
	legPrice, err := row.NullDecimal("leg_price")
	if err != nil {
		return nil, err
	}
	hedgePrice, err := row.NullDecimal("hedge_price")
	if err != nil {
		return nil, err
	}
	filledQuantity, err := row.Decimal("filled_quantity")
	if err != nil {
		return nil, err
	}
	pnl := decimal.Zero
	for _, column := range []string{"pnl_1", "pnl_2", "pnl_3", "pnl_4"} {
		component, err := row.Decimal(column)
		if err != nil {
			return nil, err
		}
		pnl = pnl.Add(component)
	}
	strategy := ResolveStrategy(row.String("order_strategy"), row.String("opening_strategy"))
	return &Order{
		UserID:          row.String("user_id"),
		AccountID:       row.String("account_id"),
		Symbol:          row.String("order_symbol"),
		Category:        RelabelCategory(row.String("category")),
		Side:            row.String("order_side"),
		OrderID:         row.String("order_id"),
		CreatedTime:     createdTime,
		TradeTime:       tradeTime,
		TransactionDate: xtime.TimeToDate(tradeTime.UTC()),
		PositionCode:    row.String("position_code"),
		PositionEffect:  row.String("position_effect"),
		Quantity:        quantity,
		Price:           price,
		Strategy:        RelabelStrategy(strategy),
		Parameters:      row.String("parameters"),
		PnL:             pnl,
		// Markup is resolved before the strategy is relabeled for display.
		Markup: Markup(strategy, legPrice, hedgePrice, filledQuantity),
	}, nil
}
