// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package dxctlconfig provides configuration parsing and validation for dxctl.
//
// Configuration is stored at <dir>/dxctl.yaml, where <dir> is the --dir flag.
// ${NAME} references in the file are expanded from the process environment,
// falling back to <dir>/.env, before the YAML is parsed.
package dxctlconfig

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/bufdev/dxctl/internal/dxctl/dxctlfilter"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlpath"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlrates"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlreport"
	"github.com/bufdev/dxctl/internal/pkg/dxapi"
	"github.com/bufdev/dxctl/internal/pkg/keycloak"
	"github.com/bufdev/dxctl/internal/pkg/sqlstore"
	"github.com/bufdev/dxctl/internal/standard/xos"
	"github.com/bufdev/dxctl/internal/standard/xtime"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultMaxAttempts is the default number of attempts of idempotent account
// API requests. A single attempt never retries.
const DefaultMaxAttempts = 1

// configTemplate is the default configuration file template with comments.
// yaml.v3 does not preserve comments, so we hardcode the template string.
const configTemplate = `# The configuration file version.
#
# Required. The only current valid version is v1.
version: v1
# Named database targets.
#
# Required. At least one target. kind is one of postgres, mysql, sqlite.
# Secrets should be ${VAR} references, set in the environment or in .env
# next to this file.
databases:
  dxcore:
    kind: postgres
    host: dxcore.internal
    port: 5432
    name: dxcore
    user: "${DXCORE_USER}"
    password: "${DXCORE_PASSWORD}"
    sslmode: require
# The database target reports are read from.
#
# Optional if there is exactly one database target.
report_database: dxcore
# The schema prefix of the platform tables.
#
# Optional. Defaults to dxcore.dxcore. Set to "" for unqualified table names.
# schema: dxcore.dxcore
# The DXtrade account API.
#
# Optional. Required by the account commands.
# account_api:
#   base_url: https://dxtrade.example.com
#   # Basic credentials for the account management endpoints.
#   login: "${DX_LOGIN}"
#   password: "${DX_PASSWORD}"
#   # Session credentials for the trading endpoints.
#   session_login: "${DX_SESSION_LOGIN}"
#   session_password: "${DX_SESSION_PASSWORD}"
#   domain: default
#   clearing_code: LIVE
#   # Client-side request pacing. 0 disables pacing.
#   requests_per_second: 5
#   # Attempts of idempotent requests failing with 429 or 5xx. 1 never retries.
#   max_attempts: 1
# The Keycloak identity API.
#
# Optional. Required by the identity commands.
# identity_api:
#   base_url: https://auth.example.com
#   token_realm: master
#   realm: general
#   client_id: support-api
#   client_secret: "${KEYCLOAK_CLIENT_SECRET}"
#   username: "${KEYCLOAK_USERNAME}"
#   password: "${KEYCLOAK_PASSWORD}"
#   insecure_skip_verify: false
#   # accumulate returns records for every username, overwrite only the last.
#   lookup_mode: accumulate
# Report defaults. Flags override these.
#
# Optional.
# reports:
#   # A single user id or a list of user ids. Omit for all users.
#   users: ["U1001", "U1002"]
#   date_from: 2024-01-01
#   # D, W, or W-MON through W-SUN.
#   period: W-MON
#   logins_since: 2023-02-01
#   excluded_account_ids: [111]
#   quote_pairs: [BTC/USD, ETH/USD, EUR/USD, GBP/USD, USD/JPY, USD/CNH, USD/MXN]
#   balances:
#     excluded_account_ids: [121, 70500, 213023, 212931]
#     convert_currencies: [BTC, ETH, USDT]
`

// schemaRegexp matches a table schema prefix of one or two SQL identifiers.
var schemaRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ExternalConfig is the YAML-serializable configuration file structure.
type ExternalConfig struct {
	// Version is the configuration file version (must be "v1").
	Version string `yaml:"version"`
	// Databases maps target names to database targets.
	Databases map[string]ExternalDatabaseConfig `yaml:"databases"`
	// ReportDatabase is the name of the target reports are read from.
	ReportDatabase string `yaml:"report_database"`
	// Schema is the schema prefix of the platform tables. Nil uses the default.
	Schema *string `yaml:"schema"`
	// AccountAPI holds the DXtrade account API configuration.
	AccountAPI ExternalAccountAPIConfig `yaml:"account_api"`
	// IdentityAPI holds the Keycloak configuration.
	IdentityAPI ExternalIdentityAPIConfig `yaml:"identity_api"`
	// Reports holds the report defaults.
	Reports ExternalReportsConfig `yaml:"reports"`
}

// ExternalDatabaseConfig is a database target.
type ExternalDatabaseConfig struct {
	Kind     string `yaml:"kind"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// ExternalAccountAPIConfig holds the DXtrade account API configuration.
type ExternalAccountAPIConfig struct {
	BaseURL           string  `yaml:"base_url"`
	Login             string  `yaml:"login"`
	Password          string  `yaml:"password"`
	SessionLogin      string  `yaml:"session_login"`
	SessionPassword   string  `yaml:"session_password"`
	Domain            string  `yaml:"domain"`
	ClearingCode      string  `yaml:"clearing_code"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxAttempts       int     `yaml:"max_attempts"`
}

// ExternalIdentityAPIConfig holds the Keycloak configuration.
type ExternalIdentityAPIConfig struct {
	BaseURL            string `yaml:"base_url"`
	TokenRealm         string `yaml:"token_realm"`
	Realm              string `yaml:"realm"`
	ClientID           string `yaml:"client_id"`
	ClientSecret       string `yaml:"client_secret"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	LookupMode         string `yaml:"lookup_mode"`
}

// ExternalReportsConfig holds the report defaults.
type ExternalReportsConfig struct {
	// Users is a single user id or a list of user ids.
	Users              any                    `yaml:"users"`
	DateFrom           string                 `yaml:"date_from"`
	Period             string                 `yaml:"period"`
	LoginsSince        string                 `yaml:"logins_since"`
	ExcludedAccountIDs []int64                `yaml:"excluded_account_ids"`
	QuotePairs         []string               `yaml:"quote_pairs"`
	Balances           ExternalBalancesConfig `yaml:"balances"`
}

// ExternalBalancesConfig holds the balance report configuration.
type ExternalBalancesConfig struct {
	ExcludedAccountIDs []int64  `yaml:"excluded_account_ids"`
	ConvertCurrencies  []string `yaml:"convert_currencies"`
}

// Config is the validated runtime configuration derived from the config file.
type Config struct {
	// Databases maps target names to targets.
	Databases map[string]sqlstore.Target
	// ReportDatabase is the name of the target reports are read from.
	ReportDatabase string
	// Schema is the schema prefix of the platform tables, possibly empty.
	Schema string
	// AccountAPI is nil if the account API is not configured.
	AccountAPI *AccountAPIConfig
	// IdentityAPI is nil if the identity API is not configured.
	IdentityAPI *IdentityAPIConfig
	// Reports holds the report defaults.
	Reports ReportsConfig
}

// ReportTarget returns the target reports are read from.
func (c *Config) ReportTarget() sqlstore.Target {
	return c.Databases[c.ReportDatabase]
}

// AccountAPIConfig holds the validated DXtrade account API configuration.
type AccountAPIConfig struct {
	BaseURL           string
	Login             string
	Password          string
	SessionLogin      string
	SessionPassword   string
	Domain            string
	ClearingCode      string
	RequestsPerSecond float64
	MaxAttempts       int
}

// IdentityAPIConfig holds the validated Keycloak configuration.
type IdentityAPIConfig struct {
	BaseURL            string
	TokenRealm         string
	Realm              string
	Credentials        keycloak.Credentials
	InsecureSkipVerify bool
	LookupMode         keycloak.LookupMode
}

// ReportsConfig holds the validated report defaults.
type ReportsConfig struct {
	// UserFilter is the default user filter.
	UserFilter dxctlfilter.UserFilter
	// DateFrom is the default start date, zero if not set.
	DateFrom xtime.Date
	// Period is the transaction summary period.
	Period dxctlfilter.Period
	// LoginsSince is the principal creation cutoff for login reports.
	LoginsSince xtime.Date
	// ExcludedAccountIDs are the account ids excluded from order reports.
	ExcludedAccountIDs []int64
	// QuotePairs is the allow-list of quote pairs.
	QuotePairs []string
	// BalanceConfig is the balance report configuration.
	BalanceConfig dxctlreport.BalanceConfig
}

// NewConfig validates an ExternalConfig and returns a runtime Config.
func NewConfig(externalConfig ExternalConfig) (*Config, error) {
	if externalConfig.Version != "v1" {
		return nil, fmt.Errorf("unsupported config version %q, must be v1", externalConfig.Version)
	}
	databases, err := newDatabases(externalConfig.Databases)
	if err != nil {
		return nil, err
	}
	reportDatabase := externalConfig.ReportDatabase
	if reportDatabase == "" {
		if len(databases) != 1 {
			return nil, errors.New("report_database is required when more than one database is configured")
		}
		for name := range databases {
			reportDatabase = name
		}
	}
	if _, ok := databases[reportDatabase]; !ok {
		return nil, fmt.Errorf("report_database %q is not a configured database", reportDatabase)
	}
	schema := dxctlreport.DefaultSchema
	if externalConfig.Schema != nil {
		schema = *externalConfig.Schema
		if schema != "" && !schemaRegexp.MatchString(schema) {
			return nil, fmt.Errorf("invalid schema %q, must be one or two SQL identifiers separated by a dot", schema)
		}
	}
	accountAPIConfig, err := newAccountAPIConfig(externalConfig.AccountAPI)
	if err != nil {
		return nil, err
	}
	identityAPIConfig, err := newIdentityAPIConfig(externalConfig.IdentityAPI)
	if err != nil {
		return nil, err
	}
	reportsConfig, err := newReportsConfig(externalConfig.Reports)
	if err != nil {
		return nil, err
	}
	return &Config{
		Databases:      databases,
		ReportDatabase: reportDatabase,
		Schema:         schema,
		AccountAPI:     accountAPIConfig,
		IdentityAPI:    identityAPIConfig,
		Reports:        reportsConfig,
	}, nil
}

// ReadConfig reads and validates the configuration file from the given base directory.
//
// Returns a clear error message directing users to run "dxctl config init" if the file is missing.
func ReadConfig(dirPath string) (*Config, error) {
	filePath := dxctlpath.ConfigFilePath(dirPath)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found at %s, run \"dxctl config init\" to create one", filePath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	envFileValues, err := readEnvFile(dxctlpath.EnvFilePath(dirPath))
	if err != nil {
		return nil, err
	}
	expanded, err := expandEnv(data, xos.LookupEnvWithFallback(envFileValues))
	if err != nil {
		return nil, fmt.Errorf("expanding config file %s: %w", filePath, err)
	}
	var externalConfig ExternalConfig
	if err := unmarshalYAMLStrict(expanded, &externalConfig); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
	}
	config, err := NewConfig(externalConfig)
	if err != nil {
		return nil, fmt.Errorf("validating config file %s: %w", filePath, err)
	}
	return config, nil
}

// InitConfig creates a new configuration file with a documented template.
//
// Creates the base directory if it does not exist.
// Returns the path to the created file, or an error if the file already exists.
func InitConfig(dirPath string) (string, error) {
	filePath := dxctlpath.ConfigFilePath(dirPath)
	if _, err := os.Stat(filePath); err == nil {
		return "", fmt.Errorf("configuration file already exists: %s", filePath)
	}
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(filePath, []byte(configTemplate), 0o600); err != nil {
		return "", err
	}
	return filePath, nil
}

// ValidateConfig reads and validates the configuration file from the given base directory.
func ValidateConfig(dirPath string) error {
	_, err := ReadConfig(dirPath)
	return err
}

// *** PRIVATE ***

func newDatabases(externalDatabases map[string]ExternalDatabaseConfig) (map[string]sqlstore.Target, error) {
	if len(externalDatabases) == 0 {
		return nil, errors.New("at least one database is required")
	}
	names := make([]string, 0, len(externalDatabases))
	for name := range externalDatabases {
		names = append(names, name)
	}
	slices.Sort(names)
	databases := make(map[string]sqlstore.Target, len(externalDatabases))
	for _, name := range names {
		externalDatabase := externalDatabases[name]
		if name == "" {
			return nil, errors.New("database name is required")
		}
		kind, err := sqlstore.ParseKind(externalDatabase.Kind)
		if err != nil {
			return nil, fmt.Errorf("databases.%s: %w", name, err)
		}
		if externalDatabase.Name == "" {
			return nil, fmt.Errorf("databases.%s.name is required", name)
		}
		if kind != sqlstore.KindSQLite && externalDatabase.Host == "" {
			return nil, fmt.Errorf("databases.%s.host is required", name)
		}
		if externalDatabase.Port < 0 || externalDatabase.Port > 65535 {
			return nil, fmt.Errorf("databases.%s.port %d is out of range", name, externalDatabase.Port)
		}
		databases[name] = sqlstore.Target{
			Name:     name,
			Kind:     kind,
			Host:     externalDatabase.Host,
			Port:     externalDatabase.Port,
			Database: externalDatabase.Name,
			User:     externalDatabase.User,
			Password: externalDatabase.Password,
			SSLMode:  externalDatabase.SSLMode,
		}
	}
	return databases, nil
}

func newAccountAPIConfig(external ExternalAccountAPIConfig) (*AccountAPIConfig, error) {
	if external == (ExternalAccountAPIConfig{}) {
		return nil, nil
	}
	if err := validateBaseURL("account_api.base_url", external.BaseURL); err != nil {
		return nil, err
	}
	if external.Login == "" {
		return nil, errors.New("account_api.login is required")
	}
	if external.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("account_api.requests_per_second must not be negative, got %v", external.RequestsPerSecond)
	}
	if external.MaxAttempts < 0 {
		return nil, fmt.Errorf("account_api.max_attempts must not be negative, got %d", external.MaxAttempts)
	}
	maxAttempts := external.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}
	domain := external.Domain
	if domain == "" {
		domain = dxapi.DefaultDomain
	}
	clearingCode := external.ClearingCode
	if clearingCode == "" {
		clearingCode = dxapi.DefaultClearingCode
	}
	return &AccountAPIConfig{
		BaseURL:           external.BaseURL,
		Login:             external.Login,
		Password:          external.Password,
		SessionLogin:      external.SessionLogin,
		SessionPassword:   external.SessionPassword,
		Domain:            domain,
		ClearingCode:      clearingCode,
		RequestsPerSecond: external.RequestsPerSecond,
		MaxAttempts:       maxAttempts,
	}, nil
}

func newIdentityAPIConfig(external ExternalIdentityAPIConfig) (*IdentityAPIConfig, error) {
	if external == (ExternalIdentityAPIConfig{}) {
		return nil, nil
	}
	if err := validateBaseURL("identity_api.base_url", external.BaseURL); err != nil {
		return nil, err
	}
	if external.Username == "" {
		return nil, errors.New("identity_api.username is required")
	}
	lookupMode, err := keycloak.ParseLookupMode(external.LookupMode)
	if err != nil {
		return nil, fmt.Errorf("identity_api.lookup_mode: %w", err)
	}
	tokenRealm := external.TokenRealm
	if tokenRealm == "" {
		tokenRealm = keycloak.DefaultTokenRealm
	}
	realm := external.Realm
	if realm == "" {
		realm = keycloak.DefaultRealm
	}
	clientID := external.ClientID
	if clientID == "" {
		clientID = keycloak.DefaultClientID
	}
	return &IdentityAPIConfig{
		BaseURL:    external.BaseURL,
		TokenRealm: tokenRealm,
		Realm:      realm,
		Credentials: keycloak.Credentials{
			ClientID:     clientID,
			ClientSecret: external.ClientSecret,
			Username:     external.Username,
			Password:     external.Password,
		},
		InsecureSkipVerify: external.InsecureSkipVerify,
		LookupMode:         lookupMode,
	}, nil
}

func newReportsConfig(external ExternalReportsConfig) (ReportsConfig, error) {
	userFilter, err := dxctlfilter.FilterFromValue(external.Users)
	if err != nil {
		return ReportsConfig{}, fmt.Errorf("reports.users: %w", err)
	}
	var dateFrom xtime.Date
	if external.DateFrom != "" {
		dateFrom, err = xtime.ParseDate(external.DateFrom)
		if err != nil {
			return ReportsConfig{}, fmt.Errorf("reports.date_from: %w", err)
		}
	}
	period, err := dxctlfilter.ParsePeriod(external.Period)
	if err != nil {
		return ReportsConfig{}, fmt.Errorf("reports.period: %w", err)
	}
	loginsSince := dxctlreport.DefaultLoginsSince
	if external.LoginsSince != "" {
		loginsSince, err = xtime.ParseDate(external.LoginsSince)
		if err != nil {
			return ReportsConfig{}, fmt.Errorf("reports.logins_since: %w", err)
		}
	}
	excludedAccountIDs := dxctlreport.DefaultExcludedAccountIDs
	if external.ExcludedAccountIDs != nil {
		excludedAccountIDs = external.ExcludedAccountIDs
	}
	quotePairs := dxctlrates.DefaultPairs
	if len(external.QuotePairs) > 0 {
		for _, quotePair := range external.QuotePairs {
			base, quote, ok := strings.Cut(quotePair, "/")
			if !ok || base == "" || quote == "" {
				return ReportsConfig{}, fmt.Errorf("reports.quote_pairs: invalid pair %q, expected BASE/QUOTE", quotePair)
			}
		}
		quotePairs = external.QuotePairs
	}
	balanceConfig := dxctlreport.BalanceConfig{
		ExcludedAccountIDs: dxctlreport.DefaultBalanceExcludedAccountIDs,
		ConvertCurrencies:  dxctlreport.DefaultBalanceConvertCurrencies,
	}
	if external.Balances.ExcludedAccountIDs != nil {
		balanceConfig.ExcludedAccountIDs = external.Balances.ExcludedAccountIDs
	}
	if external.Balances.ConvertCurrencies != nil {
		if slices.Contains(external.Balances.ConvertCurrencies, "") {
			return ReportsConfig{}, errors.New("reports.balances.convert_currencies must not contain empty currencies")
		}
		balanceConfig.ConvertCurrencies = external.Balances.ConvertCurrencies
	}
	return ReportsConfig{
		UserFilter:         userFilter,
		DateFrom:           dateFrom,
		Period:             period,
		LoginsSince:        loginsSince,
		ExcludedAccountIDs: excludedAccountIDs,
		QuotePairs:         quotePairs,
		BalanceConfig:      balanceConfig,
	}, nil
}

func validateBaseURL(field string, baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("%s is required", field)
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL, got %q", field, baseURL)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s has no host: %q", field, baseURL)
	}
	return nil
}

// expandEnv expands ${NAME} references in the scalar values of the YAML data.
//
// Expansion happens after parsing, so expanded values are never reinterpreted as YAML.
func expandEnv(data []byte, lookup func(string) (string, bool)) ([]byte, error) {
	var document yaml.Node
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("could not unmarshal as YAML: %w", err)
	}
	if document.Kind == 0 {
		return data, nil
	}
	var missing []string
	if err := expandEnvNode(&document, lookup, &missing); err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, &xos.MissingEnvError{Names: missing}
	}
	return yaml.Marshal(&document)
}

func expandEnvNode(node *yaml.Node, lookup func(string) (string, bool), missing *[]string) error {
	switch node.Kind {
	case yaml.MappingNode:
		// Keys are never expanded.
		for i := 1; i < len(node.Content); i += 2 {
			if err := expandEnvNode(node.Content[i], lookup, missing); err != nil {
				return err
			}
		}
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range node.Content {
			if err := expandEnvNode(child, lookup, missing); err != nil {
				return err
			}
		}
	case yaml.ScalarNode:
		expanded, err := xos.ExpandEnv(node.Value, lookup)
		if err != nil {
			var missingEnvError *xos.MissingEnvError
			if !errors.As(err, &missingEnvError) {
				return err
			}
			for _, name := range missingEnvError.Names {
				if !slices.Contains(*missing, name) {
					*missing = append(*missing, name)
				}
			}
			return nil
		}
		if expanded == node.Value {
			return nil
		}
		node.Value = expanded
		if node.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) == 0 {
			// Plain scalars resolve their type from the expanded value.
			node.Tag = ""
		}
	}
	return nil
}

// readEnvFile reads the dotenv file at path. A missing file is empty.
func readEnvFile(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return values, nil
}

// unmarshalYAMLStrict unmarshals the data as YAML with strict field checking.
// If the data length is 0, this is a no-op.
func unmarshalYAMLStrict(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	yamlDecoder := yaml.NewDecoder(bytes.NewReader(data))
	// Reject unknown fields.
	yamlDecoder.KnownFields(true)
	if err := yamlDecoder.Decode(v); err != nil {
		return fmt.Errorf("could not unmarshal as YAML: %w", err)
	}
	return nil
}
