// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package dxctlcmd provides shared wiring for dxctl commands: reading config,
// opening the report database, constructing API clients, and recording run
// metrics.
package dxctlcmd

import (
	"context"
	"errors"
	"fmt"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlconfig"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlfilter"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlrates"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlreport"
	"github.com/bufdev/dxctl/internal/pkg/cliio"
	"github.com/bufdev/dxctl/internal/pkg/dxapi"
	"github.com/bufdev/dxctl/internal/pkg/keycloak"
	"github.com/bufdev/dxctl/internal/pkg/runmetrics"
	"github.com/bufdev/dxctl/internal/pkg/sqlstore"
	"github.com/bufdev/dxctl/internal/standard/xtime"
	"github.com/spf13/pflag"
)

const (
	// DirFlagName is the flag name for the dxctl base directory.
	DirFlagName = "dir"
	// MetricsFileFlagName is the flag name for the run metrics file.
	MetricsFileFlagName = "metrics-file"

	usersFlagName  = "user"
	fromFlagName   = "from"
	toFlagName     = "to"
	periodFlagName = "period"
)

// BaseFlags are the flags shared by every command that reads the config.
type BaseFlags struct {
	// Dir is the base directory containing dxctl.yaml.
	Dir string
	// Format is the output format (table, csv, json).
	Format string
	// MetricsFile is the path run metrics are written to, empty for none.
	MetricsFile string
}

// NewBaseFlags returns new BaseFlags.
func NewBaseFlags() *BaseFlags {
	return &BaseFlags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *BaseFlags) Bind(flagSet *pflag.FlagSet) {
	BindDirFlag(flagSet, &f.Dir)
	cliio.BindFormatFlag(flagSet, &f.Format)
	flagSet.StringVar(
		&f.MetricsFile,
		MetricsFileFlagName,
		"",
		"Write run metrics to this file in the Prometheus textfile format",
	)
}

// DateRangeFlags are the --from and --to flags.
type DateRangeFlags struct {
	// From is the first date (YYYY-MM-DD). Empty uses reports.date_from.
	From string
	// To is the last date (YYYY-MM-DD). Empty is today.
	To string
}

// Bind registers the flag definitions with the given flag set.
func (f *DateRangeFlags) Bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.From, fromFlagName, "", "First date (YYYY-MM-DD, default: reports.date_from)")
	flagSet.StringVar(&f.To, toFlagName, "", "Last date (YYYY-MM-DD, default: today)")
}

// DateRange returns the date range selected by the flags.
//
// dateFrom is the start if --from is not set. Invalid flags return an
// invalid argument error.
func (f *DateRangeFlags) DateRange(dateFrom xtime.Date) (dxctlfilter.DateRange, error) {
	start := dateFrom
	if f.From != "" {
		var err error
		start, err = xtime.ParseDate(f.From)
		if err != nil {
			return dxctlfilter.DateRange{}, appcmd.NewInvalidArgumentErrorf("invalid --%s date %q, expected YYYY-MM-DD: %v", fromFlagName, f.From, err)
		}
	}
	if start.IsZero() {
		return dxctlfilter.DateRange{}, appcmd.NewInvalidArgumentErrorf("--%s is required when reports.date_from is not configured", fromFlagName)
	}
	var end xtime.Date
	if f.To != "" {
		var err error
		end, err = xtime.ParseDate(f.To)
		if err != nil {
			return dxctlfilter.DateRange{}, appcmd.NewInvalidArgumentErrorf("invalid --%s date %q, expected YYYY-MM-DD: %v", toFlagName, f.To, err)
		}
	}
	dateRange, err := dxctlfilter.NewDateRange(start, end)
	if err != nil {
		return dxctlfilter.DateRange{}, appcmd.NewInvalidArgumentError(err.Error())
	}
	return dateRange, nil
}

// ReportFlags are the flags shared by report commands.
type ReportFlags struct {
	BaseFlags
	DateRangeFlags
	// Users are the user ids to report on. Empty uses the configured users.
	Users []string
	// Period is the transaction summary period.
	Period string
}

// NewReportFlags returns new ReportFlags.
func NewReportFlags() *ReportFlags {
	return &ReportFlags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *ReportFlags) Bind(flagSet *pflag.FlagSet) {
	f.BaseFlags.Bind(flagSet)
	flagSet.StringSliceVar(
		&f.Users,
		usersFlagName,
		nil,
		"User ids to report on, repeatable (default: reports.users, or all users)",
	)
	f.DateRangeFlags.Bind(flagSet)
	flagSet.StringVar(&f.Period, periodFlagName, "", "Summary period (D, W, W-MON..W-SUN, default: reports.period)")
}

// BindDirFlag binds the --dir flag to dir.
func BindDirFlag(flagSet *pflag.FlagSet, dir *string) {
	flagSet.StringVar(dir, DirFlagName, ".", "The dxctl directory containing dxctl.yaml")
}

// Run holds what a command needs after its config was read.
type Run struct {
	// Config is the validated configuration.
	Config *dxctlconfig.Config
	// Format is the output format.
	Format cliio.Format
	// Recorder records run metrics.
	Recorder runmetrics.Recorder
}

// WithRun reads the config, calls f, and writes run metrics if requested.
func WithRun(flags *BaseFlags, f func(*Run) error) (retErr error) {
	format, err := cliio.ParseFormat(flags.Format)
	if err != nil {
		return appcmd.NewInvalidArgumentError(err.Error())
	}
	config, err := dxctlconfig.ReadConfig(flags.Dir)
	if err != nil {
		return err
	}
	run := &Run{
		Config:   config,
		Format:   format,
		Recorder: runmetrics.NewRecorder(),
	}
	defer func() {
		if flags.MetricsFile == "" {
			return
		}
		if err := run.Recorder.WriteToTextfile(flags.MetricsFile); err != nil {
			retErr = errors.Join(retErr, fmt.Errorf("writing metrics file: %w", err))
		}
	}()
	return f(run)
}

// WithReportStore opens the report database, calls f, and closes the database.
func WithReportStore(ctx context.Context, container appext.Container, run *Run, f func(sqlstore.Store) error) (retErr error) {
	store, err := sqlstore.Open(
		ctx,
		container.Logger(),
		run.Config.ReportTarget(),
		sqlstore.StoreWithObserver(run.Recorder),
	)
	if err != nil {
		return err
	}
	defer func() {
		retErr = errors.Join(retErr, store.Close())
	}()
	return f(store)
}

// WithAssembler opens the report database and calls f with an Assembler
// scoped by the report flags and the configured report defaults.
func WithAssembler(
	ctx context.Context,
	container appext.Container,
	flags *ReportFlags,
	f func(*Run, dxctlreport.Assembler) error,
) error {
	return WithRun(&flags.BaseFlags, func(run *Run) error {
		userFilter, dateRange, period, err := reportScope(flags, run.Config.Reports)
		if err != nil {
			return err
		}
		return WithReportStore(ctx, container, run, func(store sqlstore.Store) error {
			assembler := dxctlreport.NewAssembler(
				container.Logger(),
				store,
				userFilter,
				dateRange,
				dxctlreport.AssemblerWithSchema(run.Config.Schema),
				dxctlreport.AssemblerWithPeriod(period),
				dxctlreport.AssemblerWithExcludedAccountIDs(run.Config.Reports.ExcludedAccountIDs),
				dxctlreport.AssemblerWithBalanceConfig(run.Config.Reports.BalanceConfig),
				dxctlreport.AssemblerWithLoginsSince(run.Config.Reports.LoginsSince),
				dxctlreport.AssemblerWithQuotePairs(run.Config.Reports.QuotePairs),
			)
			return f(run, assembler)
		})
	})
}

// NewFetcher returns a rate Fetcher over the store configured by run.
func NewFetcher(container appext.Container, run *Run, store sqlstore.Store) dxctlrates.Fetcher {
	return dxctlrates.NewFetcher(
		container.Logger(),
		store,
		dxctlrates.FetcherWithSchema(run.Config.Schema),
		dxctlrates.FetcherWithPairs(run.Config.Reports.QuotePairs),
	)
}

// NewAccountClient returns a DXtrade client for the configured account API.
func NewAccountClient(container appext.Container, run *Run) (dxapi.Client, error) {
	accountAPI := run.Config.AccountAPI
	if accountAPI == nil {
		return nil, errors.New("account_api is not configured, add it to dxctl.yaml")
	}
	return dxapi.NewClient(
		container.Logger(),
		accountAPI.BaseURL,
		accountAPI.Login,
		accountAPI.Password,
		dxapi.ClientWithClearingCode(accountAPI.ClearingCode),
		dxapi.ClientWithRateLimit(accountAPI.RequestsPerSecond),
		dxapi.ClientWithMaxAttempts(accountAPI.MaxAttempts),
		dxapi.ClientWithObserver(run.Recorder),
	), nil
}

// NewSessionToken logs in to the DXtrade trading API with the configured session credentials.
func NewSessionToken(ctx context.Context, client dxapi.Client, run *Run) (string, error) {
	accountAPI := run.Config.AccountAPI
	if accountAPI.SessionLogin == "" {
		return "", errors.New("account_api.session_login is required for trading API commands")
	}
	return client.Login(ctx, accountAPI.SessionLogin, accountAPI.Domain, accountAPI.SessionPassword)
}

// NewIdentityClient returns a Keycloak client for the configured identity API.
func NewIdentityClient(container appext.Container, run *Run) (keycloak.Client, error) {
	identityAPI := run.Config.IdentityAPI
	if identityAPI == nil {
		return nil, errors.New("identity_api is not configured, add it to dxctl.yaml")
	}
	options := []keycloak.ClientOption{
		keycloak.ClientWithTokenRealm(identityAPI.TokenRealm),
		keycloak.ClientWithRealm(identityAPI.Realm),
		keycloak.ClientWithLookupMode(identityAPI.LookupMode),
		keycloak.ClientWithObserver(run.Recorder),
	}
	if identityAPI.InsecureSkipVerify {
		options = append(options, keycloak.ClientWithInsecureSkipVerify())
	}
	return keycloak.NewClient(container.Logger(), identityAPI.BaseURL, identityAPI.Credentials, options...), nil
}

// *** PRIVATE ***

func reportScope(
	flags *ReportFlags,
	reportsConfig dxctlconfig.ReportsConfig,
) (dxctlfilter.UserFilter, dxctlfilter.DateRange, dxctlfilter.Period, error) {
	userFilter := reportsConfig.UserFilter
	if len(flags.Users) > 0 {
		var err error
		userFilter, err = dxctlfilter.UserSet(flags.Users)
		if err != nil {
			return dxctlfilter.UserFilter{}, dxctlfilter.DateRange{}, dxctlfilter.Period{}, appcmd.NewInvalidArgumentErrorf("invalid --%s: %v", usersFlagName, err)
		}
	}
	dateRange, err := flags.DateRange(reportsConfig.DateFrom)
	if err != nil {
		return dxctlfilter.UserFilter{}, dxctlfilter.DateRange{}, dxctlfilter.Period{}, err
	}
	period := reportsConfig.Period
	if flags.Period != "" {
		period, err = dxctlfilter.ParsePeriod(flags.Period)
		if err != nil {
			return dxctlfilter.UserFilter{}, dxctlfilter.DateRange{}, dxctlfilter.Period{}, appcmd.NewInvalidArgumentError(err.Error())
		}
	}
	return userFilter, dateRange, period, nil
}
