// Copyright 2026 Peter Edge
//
// All rights reserved.

package dxctlconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bufdev/dxctl/internal/dxctl/dxctlfilter"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlpath"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlrates"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlreport"
	"github.com/bufdev/dxctl/internal/pkg/keycloak"
	"github.com/bufdev/dxctl/internal/pkg/sqlstore"
	"github.com/bufdev/dxctl/internal/standard/xos"
	"github.com/bufdev/dxctl/internal/standard/xtime"
	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	t.Parallel()
	dirPath := t.TempDir()
	writeFile(t, dxctlpath.ConfigFilePath(dirPath), `version: v1
databases:
  dxcore:
    kind: postgresql
    host: dxcore.internal
    name: dxcore
    user: "${DXCTL_TEST_DB_USER}"
    password: "${DXCTL_TEST_DB_PASSWORD}"
    sslmode: require
  cex:
    kind: mysql
    host: cex.internal
    port: 3307
    name: cex
report_database: dxcore
schema: platform
account_api:
  base_url: https://dxtrade.example.com
  login: admin
  password: "${DXCTL_TEST_DX_PASSWORD}"
  requests_per_second: 2.5
identity_api:
  base_url: https://auth.example.com
  username: support
  lookup_mode: overwrite
reports:
  users: [U1, U2, U1]
  date_from: 2024-01-01
  period: W-SUN
  excluded_account_ids: []
  balances:
    convert_currencies: [BTC]
`)
	writeFile(t, dxctlpath.EnvFilePath(dirPath), `DXCTL_TEST_DB_USER=report
DXCTL_TEST_DB_PASSWORD="p@ss word"
DXCTL_TEST_DX_PASSWORD=dxsecret
`)
	config, err := ReadConfig(dirPath)
	require.NoError(t, err)
	require.Equal(
		t,
		sqlstore.Target{
			Name:     "dxcore",
			Kind:     sqlstore.KindPostgres,
			Host:     "dxcore.internal",
			Database: "dxcore",
			User:     "report",
			Password: "p@ss word",
			SSLMode:  "require",
		},
		config.ReportTarget(),
	)
	require.Equal(t, sqlstore.KindMySQL, config.Databases["cex"].Kind)
	require.Equal(t, 3307, config.Databases["cex"].Port)
	require.Equal(t, "platform", config.Schema)

	require.NotNil(t, config.AccountAPI)
	require.Equal(t, "dxsecret", config.AccountAPI.Password)
	require.Equal(t, "default", config.AccountAPI.Domain)
	require.Equal(t, "LIVE", config.AccountAPI.ClearingCode)
	require.Equal(t, 2.5, config.AccountAPI.RequestsPerSecond)
	require.Equal(t, DefaultMaxAttempts, config.AccountAPI.MaxAttempts)

	require.NotNil(t, config.IdentityAPI)
	require.Equal(t, keycloak.DefaultTokenRealm, config.IdentityAPI.TokenRealm)
	require.Equal(t, keycloak.DefaultRealm, config.IdentityAPI.Realm)
	require.Equal(t, keycloak.DefaultClientID, config.IdentityAPI.Credentials.ClientID)
	require.Equal(t, keycloak.LookupModeOverwrite, config.IdentityAPI.LookupMode)

	require.Equal(t, []string{"U1", "U2"}, config.Reports.UserFilter.UserIDs())
	require.Equal(t, xtime.Date{Year: 2024, Month: time.January, Day: 1}, config.Reports.DateFrom)
	require.Equal(t, "W-SUN", config.Reports.Period.String())
	require.Equal(t, dxctlreport.DefaultLoginsSince, config.Reports.LoginsSince)
	require.Empty(t, config.Reports.ExcludedAccountIDs)
	require.Equal(t, dxctlrates.DefaultPairs, config.Reports.QuotePairs)
	require.Equal(t, dxctlreport.DefaultBalanceExcludedAccountIDs, config.Reports.BalanceConfig.ExcludedAccountIDs)
	require.Equal(t, []string{"BTC"}, config.Reports.BalanceConfig.ConvertCurrencies)
}

func TestReadConfigEnvValuesAreNotParsedAsYAML(t *testing.T) {
	t.Parallel()
	dirPath := t.TempDir()
	writeFile(t, dxctlpath.ConfigFilePath(dirPath), `version: v1
databases:
  dxcore:
    kind: postgres
    host: dxcore.internal
    port: ${DXCTL_TEST_DB_PORT}
    name: dxcore
    user: ${DXCTL_TEST_DB_USER}
    password: "${DXCTL_TEST_DB_PASSWORD}"
`)
	writeFile(t, dxctlpath.EnvFilePath(dirPath), `DXCTL_TEST_DB_PORT=5433
DXCTL_TEST_DB_USER="report #1: ops"
DXCTL_TEST_DB_PASSWORD='p\q"r'
`)
	config, err := ReadConfig(dirPath)
	require.NoError(t, err)
	target := config.ReportTarget()
	require.Equal(t, 5433, target.Port)
	require.Equal(t, "report #1: ops", target.User)
	require.Equal(t, `p\q"r`, target.Password)
}

func TestReadConfigDefaults(t *testing.T) {
	t.Parallel()
	dirPath := t.TempDir()
	writeFile(t, dxctlpath.ConfigFilePath(dirPath), `version: v1
databases:
  local:
    kind: sqlite
    name: /tmp/dxcore.db
`)
	config, err := ReadConfig(dirPath)
	require.NoError(t, err)
	require.Equal(t, "local", config.ReportDatabase)
	require.Equal(t, dxctlreport.DefaultSchema, config.Schema)
	require.Nil(t, config.AccountAPI)
	require.Nil(t, config.IdentityAPI)
	require.True(t, config.Reports.UserFilter.IsAll())
	require.True(t, config.Reports.DateFrom.IsZero())
	require.Equal(t, dxctlfilter.DefaultPeriod, config.Reports.Period)
	require.Equal(t, dxctlreport.DefaultExcludedAccountIDs, config.Reports.ExcludedAccountIDs)
	require.Equal(t, dxctlreport.DefaultBalanceConvertCurrencies, config.Reports.BalanceConfig.ConvertCurrencies)
}

func TestReadConfigNotFound(t *testing.T) {
	t.Parallel()
	_, err := ReadConfig(t.TempDir())
	require.ErrorContains(t, err, "dxctl config init")
}

func TestReadConfigMissingEnv(t *testing.T) {
	t.Parallel()
	dirPath := t.TempDir()
	writeFile(t, dxctlpath.ConfigFilePath(dirPath), `version: v1
# password: "${DXCTL_TEST_COMMENTED_OUT}"
databases:
  dxcore:
    kind: postgres
    host: dxcore.internal
    name: dxcore
    password: "${DXCTL_TEST_UNSET_PASSWORD}"
`)
	_, err := ReadConfig(dirPath)
	require.True(t, xos.IsMissingEnv(err))
	require.ErrorContains(t, err, "DXCTL_TEST_UNSET_PASSWORD")
	require.NotContains(t, err.Error(), "DXCTL_TEST_COMMENTED_OUT")
}

func TestReadConfigUnknownField(t *testing.T) {
	t.Parallel()
	dirPath := t.TempDir()
	writeFile(t, dxctlpath.ConfigFilePath(dirPath), `version: v1
databases:
  local:
    kind: sqlite
    name: dxcore.db
unknown: true
`)
	_, err := ReadConfig(dirPath)
	require.ErrorContains(t, err, "could not unmarshal as YAML")
}

func TestInitConfig(t *testing.T) {
	t.Parallel()
	dirPath := filepath.Join(t.TempDir(), "nested")
	filePath, err := InitConfig(dirPath)
	require.NoError(t, err)
	require.Equal(t, dxctlpath.ConfigFilePath(dirPath), filePath)
	_, err = InitConfig(dirPath)
	require.ErrorContains(t, err, "already exists")
	// The template references credentials that must be provided.
	require.True(t, xos.IsMissingEnv(ValidateConfig(dirPath)))
	writeFile(t, dxctlpath.EnvFilePath(dirPath), "DXCORE_USER=report\nDXCORE_PASSWORD=secret\n")
	require.NoError(t, ValidateConfig(dirPath))
}

func TestNewConfigErrors(t *testing.T) {
	t.Parallel()
	validDatabases := map[string]ExternalDatabaseConfig{
		"dxcore": {Kind: "postgres", Host: "dxcore.internal", Name: "dxcore"},
	}
	schema := "dxcore; DROP TABLE accounts"
	testCases := []struct {
		name           string
		externalConfig ExternalConfig
		errContains    string
	}{
		{
			name:           "version",
			externalConfig: ExternalConfig{Version: "v2", Databases: validDatabases},
			errContains:    "unsupported config version",
		},
		{
			name:           "no_databases",
			externalConfig: ExternalConfig{Version: "v1"},
			errContains:    "at least one database",
		},
		{
			name: "bad_kind",
			externalConfig: ExternalConfig{
				Version:   "v1",
				Databases: map[string]ExternalDatabaseConfig{"x": {Kind: "oracle", Host: "h", Name: "n"}},
			},
			errContains: "unknown database kind",
		},
		{
			name: "missing_host",
			externalConfig: ExternalConfig{
				Version:   "v1",
				Databases: map[string]ExternalDatabaseConfig{"x": {Kind: "postgres", Name: "n"}},
			},
			errContains: "databases.x.host is required",
		},
		{
			name: "ambiguous_report_database",
			externalConfig: ExternalConfig{
				Version: "v1",
				Databases: map[string]ExternalDatabaseConfig{
					"a": {Kind: "sqlite", Name: "a.db"},
					"b": {Kind: "sqlite", Name: "b.db"},
				},
			},
			errContains: "report_database is required",
		},
		{
			name:           "unknown_report_database",
			externalConfig: ExternalConfig{Version: "v1", Databases: validDatabases, ReportDatabase: "cex"},
			errContains:    "not a configured database",
		},
		{
			name:           "schema",
			externalConfig: ExternalConfig{Version: "v1", Databases: validDatabases, Schema: &schema},
			errContains:    "invalid schema",
		},
		{
			name: "account_api_url",
			externalConfig: ExternalConfig{
				Version:    "v1",
				Databases:  validDatabases,
				AccountAPI: ExternalAccountAPIConfig{BaseURL: "dxtrade.example.com", Login: "admin"},
			},
			errContains: "account_api.base_url must be an http or https URL",
		},
		{
			name: "account_api_max_attempts",
			externalConfig: ExternalConfig{
				Version:    "v1",
				Databases:  validDatabases,
				AccountAPI: ExternalAccountAPIConfig{BaseURL: "https://dxtrade.example.com", Login: "admin", MaxAttempts: -1},
			},
			errContains: "account_api.max_attempts",
		},
		{
			name: "identity_api_lookup_mode",
			externalConfig: ExternalConfig{
				Version:     "v1",
				Databases:   validDatabases,
				IdentityAPI: ExternalIdentityAPIConfig{BaseURL: "https://auth.example.com", Username: "u", LookupMode: "merge"},
			},
			errContains: "identity_api.lookup_mode",
		},
		{
			name: "users_type",
			externalConfig: ExternalConfig{
				Version:   "v1",
				Databases: validDatabases,
				Reports:   ExternalReportsConfig{Users: 42},
			},
			errContains: "reports.users",
		},
		{
			name: "users_empty_set",
			externalConfig: ExternalConfig{
				Version:   "v1",
				Databases: validDatabases,
				Reports:   ExternalReportsConfig{Users: []any{}},
			},
			errContains: "reports.users",
		},
		{
			name: "period",
			externalConfig: ExternalConfig{
				Version:   "v1",
				Databases: validDatabases,
				Reports:   ExternalReportsConfig{Period: "M"},
			},
			errContains: "reports.period",
		},
		{
			name: "quote_pairs",
			externalConfig: ExternalConfig{
				Version:   "v1",
				Databases: validDatabases,
				Reports:   ExternalReportsConfig{QuotePairs: []string{"BTCUSD"}},
			},
			errContains: "reports.quote_pairs",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewConfig(testCase.externalConfig)
			require.ErrorContains(t, err, testCase.errContains)
		})
	}
}

func writeFile(t *testing.T, path string, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
}
