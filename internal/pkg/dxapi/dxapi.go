// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package dxapi provides a client for the DXtrade account management and
// trading REST APIs.
//
// Account management endpoints under /dxweb/rest/api/register use Basic
// authentication. Trading endpoints under /dxsca-web use a session token
// obtained from Login and sent as "Authorization: DXAPI <token>".
//
// Read operations return (value, ok, error). ok is false when the response
// is valid but does not contain the expected data, which is logged.
package dxapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bufdev/dxctl/internal/pkg/backoff"
	"github.com/bufdev/dxctl/internal/pkg/restclient"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// DefaultClearingCode is the clearing code of live accounts.
	DefaultClearingCode = "LIVE"
	// DefaultDomain is the default login domain.
	DefaultDomain = "default"
	// DefaultAdjustmentCurrency is the default currency of balance adjustments.
	DefaultAdjustmentCurrency = "USDT"
)

// Account is a trading account of a user.
type Account struct {
	// UserID is the user the account belongs to.
	UserID string `json:"user_id"`
	// AccountCode is the account code.
	AccountCode string `json:"account_code"`
	// ClearingCode is the clearing code (e.g., "LIVE").
	ClearingCode string `json:"clearing_code"`
	// Currency is the account currency.
	Currency string `json:"currency"`
	// Status is the account status.
	Status string `json:"status"`
	// Categories maps each account category to its values joined by spaces.
	Categories map[string]string `json:"categories"`
}

// Metrics are the headline metrics of an account.
type Metrics struct {
	// Account is the account code.
	Account string `json:"account"`
	// Equity is the account equity.
	Equity decimal.Decimal `json:"equity"`
	// Balance is the account balance.
	Balance decimal.Decimal `json:"balance"`
	// OpenPL is the unrealized profit and loss.
	OpenPL decimal.Decimal `json:"openPL"`
	// TotalPL is the total profit and loss.
	TotalPL decimal.Decimal `json:"totalPL"`
}

// Position is an open position of an account.
type Position struct {
	// Account is the account code.
	Account string `json:"account"`
	// PositionCode is the position code.
	PositionCode string `json:"positionCode"`
	// Symbol is the instrument symbol.
	Symbol string `json:"symbol"`
	// Quantity is the position quantity.
	Quantity decimal.Decimal `json:"quantity"`
	// Side is the position side.
	Side string `json:"side"`
	// OpenTime is the position open time as returned by the API.
	OpenTime string `json:"openTime"`
	// OpenPrice is the position open price.
	OpenPrice decimal.NullDecimal `json:"openPrice"`
}

// Order is a working order of an account.
type Order struct {
	// Account is the account code.
	Account string `json:"account"`
	// OrderID is the numeric order id.
	OrderID json.Number `json:"orderId"`
	// OrderCode is the order code passed to DeleteOrder.
	OrderCode string `json:"orderCode"`
	// Instrument is the instrument symbol.
	Instrument string `json:"instrument"`
	// Type is the order type (e.g., "LIMIT").
	Type string `json:"type"`
	// Side is the order side.
	Side string `json:"side"`
	// Status is the order status.
	Status string `json:"status"`
	// Quantity is the order quantity.
	Quantity decimal.Decimal `json:"quantity"`
	// LimitPrice is the limit price, if any.
	LimitPrice decimal.NullDecimal `json:"limitPrice"`
}

// Adjustment is a balance adjustment.
type Adjustment struct {
	// Account is the account code.
	Account string
	// Amount is the signed adjustment amount.
	Amount decimal.Decimal
	// Currency is the adjustment currency. Empty defaults to USDT.
	Currency string
	// Description is the adjustment description.
	Description string
}

// Client is a DXtrade API client.
type Client interface {
	// Login exchanges credentials for a session token.
	Login(ctx context.Context, username string, domain string, password string) (string, error)
	// GetUserAccounts returns the accounts of a user with the client clearing code.
	GetUserAccounts(ctx context.Context, userID string) ([]*Account, bool, error)
	// GetMetrics returns the metrics of an account.
	GetMetrics(ctx context.Context, token string, account string) (*Metrics, bool, error)
	// GetPositions returns the open positions of an account.
	GetPositions(ctx context.Context, token string, account string) ([]*Position, bool, error)
	// GetOrders returns the working orders of an account.
	GetOrders(ctx context.Context, token string, account string) ([]*Order, bool, error)
	// ChangeCategory sets the value of an account category.
	ChangeCategory(ctx context.Context, account string, category string, value string) error
	// MakeAdjustment adjusts the balance of an account and returns the adjustment id.
	MakeAdjustment(ctx context.Context, adjustment Adjustment) (string, error)
	// DeleteOrder cancels a working order.
	DeleteOrder(ctx context.Context, token string, account string, orderCode string) error
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*clientOptions)

// ClientWithHTTPClient sets the HTTP client to use for requests.
func ClientWithHTTPClient(httpClient *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.restOptions = append(o.restOptions, restclient.ClientWithHTTPClient(httpClient))
	}
}

// ClientWithRateLimit paces requests to at most requestsPerSecond.
func ClientWithRateLimit(requestsPerSecond float64) ClientOption {
	return func(o *clientOptions) {
		o.restOptions = append(o.restOptions, restclient.ClientWithRateLimit(requestsPerSecond))
	}
}

// ClientWithMaxAttempts retries idempotent requests up to maxAttempts times
// on transport errors, 429, and 5xx responses.
func ClientWithMaxAttempts(maxAttempts int) ClientOption {
	return func(o *clientOptions) {
		o.restOptions = append(o.restOptions, restclient.ClientWithRetry(backoff.Policy{MaxAttempts: maxAttempts}))
	}
}

// ClientWithObserver sets an Observer notified after each request.
func ClientWithObserver(observer restclient.Observer) ClientOption {
	return func(o *clientOptions) {
		o.restOptions = append(o.restOptions, restclient.ClientWithObserver(observer))
	}
}

// ClientWithClearingCode sets the clearing code accounts are filtered by.
func ClientWithClearingCode(clearingCode string) ClientOption {
	return func(o *clientOptions) {
		o.clearingCode = clearingCode
	}
}

// NewClient returns a new Client.
//
// login and password are the Basic credentials for account management endpoints.
func NewClient(logger *slog.Logger, baseURL string, login string, password string, options ...ClientOption) Client {
	clientOptions := &clientOptions{
		clearingCode: DefaultClearingCode,
	}
	for _, option := range options {
		option(clientOptions)
	}
	return &client{
		logger:       logger,
		restClient:   restclient.NewClient("dxapi", baseURL, clientOptions.restOptions...),
		login:        login,
		password:     password,
		clearingCode: clientOptions.clearingCode,
	}
}

// *** PRIVATE ***

type clientOptions struct {
	restOptions  []restclient.ClientOption
	clearingCode string
}

type client struct {
	logger       *slog.Logger
	restClient   restclient.Client
	login        string
	password     string
	clearingCode string
}

func (c *client) Login(ctx context.Context, username string, domain string, password string) (string, error) {
	if domain == "" {
		domain = DefaultDomain
	}
	response, err := c.restClient.Do(ctx, restclient.Request{
		Method: http.MethodPost,
		Path:   "/dxsca-web/login",
		JSON: loginRequest{
			Username: username,
			Domain:   domain,
			Password: password,
		},
	})
	if err != nil {
		c.logger.Error("login failed", "username", username, "error", err)
		return "", err
	}
	var loginResp loginResponse
	if err := response.DecodeJSON(&loginResp); err != nil {
		return "", err
	}
	if loginResp.SessionToken == "" {
		return "", errors.New("login response has no session token")
	}
	c.logger.Info("logged in", "username", username)
	return loginResp.SessionToken, nil
}

func (c *client) GetUserAccounts(ctx context.Context, userID string) ([]*Account, bool, error) {
	response, err := c.restClient.Do(ctx, restclient.Request{
		Method: http.MethodGet,
		Path:   "/dxweb/rest/api/register/client/default/" + url.PathEscape(userID),
		Header: c.basicAuthHeader(),
	})
	if err != nil {
		c.logger.Error("get user accounts failed", "user_id", userID, "error", err)
		return nil, false, err
	}
	c.logger.Info("get user accounts succeeded", "user_id", userID, "status", response.StatusCode)
	var clientResp clientResponse
	if err := response.DecodeJSON(&clientResp); err != nil {
		return nil, false, err
	}
	if clientResp.Accounts == nil {
		c.logger.Warn("user has no accounts", "user_id", userID)
		return nil, false, nil
	}
	var accounts []*Account
	for _, externalAccount := range *clientResp.Accounts {
		if externalAccount.ClearingCode != c.clearingCode {
			continue
		}
		accounts = append(accounts, &Account{
			UserID:       userID,
			AccountCode:  externalAccount.AccountCode,
			ClearingCode: externalAccount.ClearingCode,
			Currency:     externalAccount.Currency,
			Status:       externalAccount.Status,
			Categories:   pivotCategories(externalAccount.Categories),
		})
	}
	return accounts, true, nil
}

func (c *client) GetMetrics(ctx context.Context, token string, account string) (*Metrics, bool, error) {
	response, err := c.restClient.Do(ctx, restclient.Request{
		Method: http.MethodGet,
		Path:   c.accountPath(account) + "/metrics",
		Query:  url.Values{"include-positions": []string{"false"}},
		Header: sessionHeader(token),
	})
	if err != nil {
		c.logger.Error("get metrics failed", "account", account, "error", err)
		return nil, false, err
	}
	c.logger.Info("get metrics succeeded", "account", account, "status", response.StatusCode)
	var metricsResp metricsResponse
	if err := response.DecodeJSON(&metricsResp); err != nil {
		return nil, false, err
	}
	if len(metricsResp.Metrics) == 0 {
		c.logger.Warn("account has no metrics", "account", account)
		return nil, false, nil
	}
	return metricsResp.Metrics[0], true, nil
}

func (c *client) GetPositions(ctx context.Context, token string, account string) ([]*Position, bool, error) {
	response, err := c.restClient.Do(ctx, restclient.Request{
		Method: http.MethodGet,
		Path:   c.accountPath(account) + "/positions",
		Header: sessionHeader(token),
	})
	if err != nil {
		c.logger.Error("get positions failed", "account", account, "error", err)
		return nil, false, err
	}
	c.logger.Info("get positions succeeded", "account", account, "status", response.StatusCode)
	var positionsResp positionsResponse
	if err := response.DecodeJSON(&positionsResp); err != nil {
		return nil, false, err
	}
	if len(positionsResp.Positions) == 0 {
		c.logger.Info("account has no positions", "account", account)
		return nil, false, nil
	}
	return positionsResp.Positions, true, nil
}

func (c *client) GetOrders(ctx context.Context, token string, account string) ([]*Order, bool, error) {
	response, err := c.restClient.Do(ctx, restclient.Request{
		Method: http.MethodGet,
		Path:   c.accountPath(account) + "/orders",
		Header: sessionHeader(token),
	})
	if err != nil {
		c.logger.Error("get orders failed", "account", account, "error", err)
		return nil, false, err
	}
	c.logger.Info("get orders succeeded", "account", account, "status", response.StatusCode)
	var ordersResp ordersResponse
	if err := response.DecodeJSON(&ordersResp); err != nil {
		return nil, false, err
	}
	if len(ordersResp.Orders) == 0 {
		c.logger.Info("account has no orders", "account", account)
		return nil, false, nil
	}
	return ordersResp.Orders, true, nil
}

func (c *client) ChangeCategory(ctx context.Context, account string, category string, value string) error {
	_, err := c.restClient.Do(ctx, restclient.Request{
		Method: http.MethodPut,
		Path:   c.registerAccountPath(account) + "/category/" + url.PathEscape(category),
		Header: c.basicAuthHeader(),
		JSON:   categoryRequest{Value: value},
	})
	if err != nil {
		c.logger.Error("change category failed", "account", account, "category", category, "error", err)
		return err
	}
	c.logger.Info("category changed", "account", account, "category", category, "value", value)
	return nil
}

func (c *client) MakeAdjustment(ctx context.Context, adjustment Adjustment) (string, error) {
	currency := adjustment.Currency
	if currency == "" {
		currency = DefaultAdjustmentCurrency
	}
	adjustmentID := uuid.NewString()
	_, err := c.restClient.Do(ctx, restclient.Request{
		Method: http.MethodPut,
		Path:   c.registerAccountPath(adjustment.Account) + "/adjustment/" + adjustmentID,
		Header: c.basicAuthHeader(),
		JSON: adjustmentRequest{
			Currency:    currency,
			Amount:      json.Number(adjustment.Amount.String()),
			Description: adjustment.Description,
		},
	})
	if err != nil {
		c.logger.Error("adjustment failed", "account", adjustment.Account, "amount", adjustment.Amount.String(), "error", err)
		return "", err
	}
	c.logger.Info("adjustment completed", "account", adjustment.Account, "amount", adjustment.Amount.String(), "currency", currency, "adjustment_id", adjustmentID)
	return adjustmentID, nil
}

func (c *client) DeleteOrder(ctx context.Context, token string, account string, orderCode string) error {
	_, err := c.restClient.Do(ctx, restclient.Request{
		Method: http.MethodDelete,
		Path:   c.accountPath(account) + "/orders/" + escapeSegment(orderCode),
		Header: sessionHeader(token),
	})
	if err != nil {
		c.logger.Error("delete order failed", "account", account, "order_code", orderCode, "error", err)
		return err
	}
	c.logger.Info("order deleted", "account", account, "order_code", orderCode)
	return nil
}

func (c *client) basicAuthHeader() http.Header {
	request := &http.Request{Header: http.Header{}}
	request.SetBasicAuth(c.login, c.password)
	return request.Header
}

// accountPath returns the trading API path of an account.
//
// The account is addressed as "<clearing code>:<account>" with the colon escaped.
func (c *client) accountPath(account string) string {
	return "/dxsca-web/accounts/" + escapeSegment(c.clearingCode+":"+account)
}

func (c *client) registerAccountPath(account string) string {
	return "/dxweb/rest/api/register/account/" + url.PathEscape(c.clearingCode) + "/" + url.PathEscape(account)
}

// escapeSegment escapes a path segment, including colons.
func escapeSegment(segment string) string {
	return strings.ReplaceAll(url.PathEscape(segment), ":", "%3A")
}

func sessionHeader(token string) http.Header {
	return http.Header{"Authorization": []string{"DXAPI " + token}}
}

// pivotCategories maps each category to its values joined by spaces.
func pivotCategories(categories []externalCategory) map[string]string {
	result := make(map[string]string, len(categories))
	for _, category := range categories {
		if existing, ok := result[category.Category]; ok {
			result[category.Category] = strings.Join([]string{existing, category.Value}, " ")
			continue
		}
		result[category.Category] = category.Value
	}
	return result
}

type loginRequest struct {
	Username string `json:"username"`
	Domain   string `json:"domain"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionToken string `json:"sessionToken"`
}

type clientResponse struct {
	// Accounts is nil if the key is absent.
	Accounts *[]externalAccount `json:"accounts"`
}

type externalAccount struct {
	AccountCode  string             `json:"accountCode"`
	ClearingCode string             `json:"clearingCode"`
	Currency     string             `json:"currency"`
	Status       string             `json:"status"`
	Categories   []externalCategory `json:"categories"`
}

type externalCategory struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

type metricsResponse struct {
	Metrics []*Metrics `json:"metrics"`
}

type positionsResponse struct {
	Positions []*Position `json:"positions"`
}

type ordersResponse struct {
	Orders []*Order `json:"orders"`
}

type categoryRequest struct {
	Value string `json:"value"`
}

type adjustmentRequest struct {
	Currency    string      `json:"currency"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
}
