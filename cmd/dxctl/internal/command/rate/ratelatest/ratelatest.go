// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ratelatest implements the "rate latest" command.
package ratelatest

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/dxctlcmd"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlrates"
	"github.com/bufdev/dxctl/internal/pkg/cliio"
	"github.com/bufdev/dxctl/internal/pkg/sqlstore"
)

// NewCommand returns a new rate latest command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := dxctlcmd.NewBaseFlags()
	return &appcmd.Command{
		Use:   name + " [symbol...]",
		Short: "List the most recent USD rate of quote pairs",
		Long: `List the most recent USD rate of quote pairs.

Symbols are pairs such as BTC/USD or USD/JPY. Without arguments the
configured reports.quote_pairs are used.`,
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: flags.Bind,
	}
}

func run(ctx context.Context, container appext.Container, flags *dxctlcmd.BaseFlags) error {
	return dxctlcmd.WithRun(flags, func(run *dxctlcmd.Run) error {
		symbols := run.Config.Reports.QuotePairs
		if container.NumArgs() > 0 {
			symbols = make([]string, 0, container.NumArgs())
			for i := range container.NumArgs() {
				symbols = append(symbols, container.Arg(i))
			}
		}
		return dxctlcmd.WithReportStore(ctx, container, run, func(store sqlstore.Store) error {
			rates, err := dxctlcmd.NewFetcher(container, run, store).GetLatestRates(ctx, symbols)
			if err != nil {
				return err
			}
			run.Recorder.ObserveReport("latest_rates", len(rates))
			return cliio.Write(container.Stdout(), run.Format, dxctlrates.RateHeaders(), dxctlrates.RateToRow, rates)
		})
	})
}
