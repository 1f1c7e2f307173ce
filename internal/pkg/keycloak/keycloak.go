// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package keycloak provides a client for looking up user identity records in
// Keycloak.
package keycloak

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bufdev/dxctl/internal/pkg/restclient"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// DefaultTokenRealm is the realm tokens are requested from.
	DefaultTokenRealm = "master"
	// DefaultRealm is the realm users are looked up in.
	DefaultRealm = "general"
	// DefaultClientID is the OpenID client id.
	DefaultClientID = "support-api"

	// UsernameField is the field holding the username of a User.
	UsernameField = "username"

	attributesField = "attributes"
)

// LookupMode controls how results of multiple username lookups are combined.
type LookupMode int

const (
	// LookupModeAccumulate returns the records of every looked-up username.
	LookupModeAccumulate LookupMode = iota + 1
	// LookupModeOverwrite returns only the records of the last looked-up username.
	LookupModeOverwrite
)

// String implements fmt.Stringer.
func (m LookupMode) String() string {
	switch m {
	case LookupModeAccumulate:
		return "accumulate"
	case LookupModeOverwrite:
		return "overwrite"
	default:
		return strconv.Itoa(int(m))
	}
}

// ParseLookupMode parses a LookupMode. The empty string is LookupModeAccumulate.
func ParseLookupMode(s string) (LookupMode, error) {
	switch strings.ToLower(s) {
	case "", "accumulate":
		return LookupModeAccumulate, nil
	case "overwrite":
		return LookupModeOverwrite, nil
	default:
		return 0, fmt.Errorf("unknown lookup mode %q, expected accumulate or overwrite", s)
	}
}

// Credentials are the password-grant credentials.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// Token is an access token.
type Token struct {
	// AccessToken is the bearer token.
	AccessToken string
	// ExpiresAt is the expiry from the token "exp" claim, zero if unknown.
	ExpiresAt time.Time
}

// User is a flattened identity record.
//
// Nested attributes are lifted to top-level fields. Attribute values that are
// lists are joined with ",".
type User struct {
	Fields map[string]string
}

// Username returns the username of the User.
func (u *User) Username() string {
	return u.Fields[UsernameField]
}

// Columns returns the union of the field names of the users, "username" first
// and the rest sorted.
func Columns(users []*User) []string {
	seen := make(map[string]struct{})
	var columns []string
	for _, user := range users {
		for field := range user.Fields {
			if field == UsernameField {
				continue
			}
			if _, ok := seen[field]; ok {
				continue
			}
			seen[field] = struct{}{}
			columns = append(columns, field)
		}
	}
	slices.Sort(columns)
	return append([]string{UsernameField}, columns...)
}

// Row returns the values of the given columns, empty for absent fields.
func (u *User) Row(columns []string) []string {
	row := make([]string, len(columns))
	for i, column := range columns {
		row[i] = u.Fields[column]
	}
	return row
}

// Client is a Keycloak client.
type Client interface {
	// Token performs a password-grant token exchange.
	Token(ctx context.Context) (*Token, error)
	// LookupUsers looks up the identity records of the usernames.
	//
	// Records are combined according to the client LookupMode.
	LookupUsers(ctx context.Context, token string, usernames []string) ([]*User, error)
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*clientOptions)

// ClientWithHTTPClient sets the HTTP client to use for requests.
func ClientWithHTTPClient(httpClient *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = httpClient
	}
}

// ClientWithInsecureSkipVerify disables TLS certificate verification.
func ClientWithInsecureSkipVerify() ClientOption {
	return func(o *clientOptions) {
		o.insecureSkipVerify = true
	}
}

// ClientWithTokenRealm sets the realm tokens are requested from.
func ClientWithTokenRealm(tokenRealm string) ClientOption {
	return func(o *clientOptions) {
		o.tokenRealm = tokenRealm
	}
}

// ClientWithRealm sets the realm users are looked up in.
func ClientWithRealm(realm string) ClientOption {
	return func(o *clientOptions) {
		o.realm = realm
	}
}

// ClientWithLookupMode sets the LookupMode.
func ClientWithLookupMode(lookupMode LookupMode) ClientOption {
	return func(o *clientOptions) {
		o.lookupMode = lookupMode
	}
}

// ClientWithObserver sets an Observer notified after each request.
func ClientWithObserver(observer restclient.Observer) ClientOption {
	return func(o *clientOptions) {
		o.observer = observer
	}
}

// NewClient returns a new Client.
func NewClient(logger *slog.Logger, baseURL string, credentials Credentials, options ...ClientOption) Client {
	clientOptions := &clientOptions{
		tokenRealm: DefaultTokenRealm,
		realm:      DefaultRealm,
		lookupMode: LookupModeAccumulate,
	}
	for _, option := range options {
		option(clientOptions)
	}
	if credentials.ClientID == "" {
		credentials.ClientID = DefaultClientID
	}
	httpClient := clientOptions.httpClient
	if clientOptions.insecureSkipVerify {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		httpClient = &http.Client{Transport: transport}
	}
	var restOptions []restclient.ClientOption
	if httpClient != nil {
		restOptions = append(restOptions, restclient.ClientWithHTTPClient(httpClient))
	}
	if clientOptions.observer != nil {
		restOptions = append(restOptions, restclient.ClientWithObserver(clientOptions.observer))
	}
	return &client{
		logger:      logger,
		restClient:  restclient.NewClient("keycloak", baseURL, restOptions...),
		credentials: credentials,
		tokenRealm:  clientOptions.tokenRealm,
		realm:       clientOptions.realm,
		lookupMode:  clientOptions.lookupMode,
	}
}

// *** PRIVATE ***

type clientOptions struct {
	httpClient         *http.Client
	insecureSkipVerify bool
	tokenRealm         string
	realm              string
	lookupMode         LookupMode
	observer           restclient.Observer
}

type client struct {
	logger      *slog.Logger
	restClient  restclient.Client
	credentials Credentials
	tokenRealm  string
	realm       string
	lookupMode  LookupMode
}

func (c *client) Token(ctx context.Context) (*Token, error) {
	response, err := c.restClient.Do(ctx, restclient.Request{
		Method: http.MethodPost,
		Path:   "/auth/realms/" + url.PathEscape(c.tokenRealm) + "/protocol/openid-connect/token",
		Form: url.Values{
			"grant_type":    []string{"password"},
			"username":      []string{c.credentials.Username},
			"password":      []string{c.credentials.Password},
			"client_id":     []string{c.credentials.ClientID},
			"client_secret": []string{c.credentials.ClientSecret},
			"scope":         []string{"openid"},
		},
	})
	if err != nil {
		c.logger.Error("token exchange failed", "realm", c.tokenRealm, "error", err)
		return nil, err
	}
	var tokenResp tokenResponse
	if err := response.DecodeJSON(&tokenResp); err != nil {
		return nil, err
	}
	if tokenResp.AccessToken == "" {
		return nil, errors.New("token response has no access token")
	}
	token := &Token{
		AccessToken: tokenResp.AccessToken,
	}
	expiresAt, err := tokenExpiry(tokenResp.AccessToken)
	if err != nil {
		c.logger.Warn("could not read token expiry", "error", err)
	} else {
		token.ExpiresAt = expiresAt
	}
	c.logger.Info("token obtained", "realm", c.tokenRealm, "expires_at", token.ExpiresAt)
	return token, nil
}

func (c *client) LookupUsers(ctx context.Context, token string, usernames []string) ([]*User, error) {
	var users []*User
	for _, username := range usernames {
		response, err := c.restClient.Do(ctx, restclient.Request{
			Method: http.MethodGet,
			Path:   "/auth/admin/realms/" + url.PathEscape(c.realm) + "/users",
			Query:  url.Values{"username": []string{username}},
			Header: http.Header{"Authorization": []string{"bearer " + token}},
		})
		if err != nil {
			c.logger.Error("user lookup failed", "username", username, "error", err)
			return nil, err
		}
		lookedUp, err := parseUsers(response.Body)
		if err != nil {
			return nil, fmt.Errorf("user lookup for %q: %w", username, err)
		}
		if len(lookedUp) == 0 {
			c.logger.Warn("no identity records", "username", username)
		}
		switch c.lookupMode {
		case LookupModeOverwrite:
			users = lookedUp
		default:
			users = append(users, lookedUp...)
		}
	}
	c.logger.Info("users looked up", "usernames", len(usernames), "records", len(users), "mode", c.lookupMode.String())
	return users, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// tokenExpiry reads the "exp" claim without verifying the signature.
func tokenExpiry(accessToken string) (time.Time, error) {
	token, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, err
	}
	expirationTime, err := token.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if expirationTime == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return expirationTime.Time, nil
}

// parseUsers parses a JSON array of user representations.
func parseUsers(data []byte) ([]*User, error) {
	listValue := &structpb.ListValue{}
	if err := protojson.Unmarshal(data, listValue); err != nil {
		return nil, fmt.Errorf("parsing users: %w", err)
	}
	users := make([]*User, 0, len(listValue.GetValues()))
	for _, value := range listValue.GetValues() {
		structValue := value.GetStructValue()
		if structValue == nil {
			return nil, fmt.Errorf("user record is not an object: %v", value.AsInterface())
		}
		user, err := flattenUser(structValue)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// flattenUser lifts attributes to top-level fields. Attributes win over
// top-level fields of the same name.
func flattenUser(structValue *structpb.Struct) (*User, error) {
	fields := make(map[string]string, len(structValue.GetFields()))
	for name, value := range structValue.GetFields() {
		if name == attributesField {
			continue
		}
		s, err := valueToString(value)
		if err != nil {
			return nil, err
		}
		fields[name] = s
	}
	for name, value := range structValue.GetFields()[attributesField].GetStructValue().GetFields() {
		s, err := valueToString(value)
		if err != nil {
			return nil, err
		}
		fields[name] = s
	}
	return &User{Fields: fields}, nil
}

func valueToString(value *structpb.Value) (string, error) {
	switch kind := value.GetKind().(type) {
	case *structpb.Value_NullValue, nil:
		return "", nil
	case *structpb.Value_StringValue:
		return kind.StringValue, nil
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(kind.NumberValue, 'f', -1, 64), nil
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(kind.BoolValue), nil
	case *structpb.Value_ListValue:
		elements := make([]string, 0, len(kind.ListValue.GetValues()))
		for _, element := range kind.ListValue.GetValues() {
			s, err := valueToString(element)
			if err != nil {
				return "", err
			}
			elements = append(elements, s)
		}
		return strings.Join(elements, ","), nil
	case *structpb.Value_StructValue:
		data, err := json.Marshal(kind.StructValue.AsMap())
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown value kind %T", kind)
	}
}
