// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ratehistory implements the "rate history" command.
package ratehistory

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/dxctlcmd"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlrates"
	"github.com/bufdev/dxctl/internal/pkg/cliio"
	"github.com/bufdev/dxctl/internal/pkg/sqlstore"
	"github.com/spf13/pflag"
)

// NewCommand returns a new rate history command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "List the daily USD rate of each quote currency",
		Long: `List the daily USD rate of each quote currency.

Each rate is the first bid price of the day for the configured quote pairs,
normalized to USD per one unit of the quote currency.`,
		Args: appcmd.NoArgs,
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: flags.Bind,
	}
}

type flags struct {
	dxctlcmd.BaseFlags
	dxctlcmd.DateRangeFlags
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	f.BaseFlags.Bind(flagSet)
	f.DateRangeFlags.Bind(flagSet)
}

func run(ctx context.Context, container appext.Container, flags *flags) error {
	return dxctlcmd.WithRun(&flags.BaseFlags, func(run *dxctlcmd.Run) error {
		dateRange, err := flags.DateRange(run.Config.Reports.DateFrom)
		if err != nil {
			return err
		}
		return dxctlcmd.WithReportStore(ctx, container, run, func(store sqlstore.Store) error {
			rates, err := dxctlcmd.NewFetcher(container, run, store).GetRatesForDates(ctx, dateRange.Dates())
			if err != nil {
				return err
			}
			run.Recorder.ObserveReport("rates", len(rates))
			return cliio.Write(container.Stdout(), run.Format, dxctlrates.RateHeaders(), dxctlrates.RateToRow, rates)
		})
	})
}
