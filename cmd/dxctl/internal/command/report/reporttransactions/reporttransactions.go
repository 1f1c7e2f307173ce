// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package reporttransactions implements the "report transactions" command.
package reporttransactions

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/dxctlcmd"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlreport"
	"github.com/bufdev/dxctl/internal/pkg/cliio"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

// aggregateFlagName is the flag name for summarizing transactions per period.
const aggregateFlagName = "aggregate"

// NewCommand returns a new report transactions command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "List deposits, withdrawals, adjustments, and financing in USD",
		Long: `List deposits, withdrawals, adjustments, and financing in USD.

Test, demo, and hedge activities and compensation actions are excluded.

With --aggregate, prints the USD totals per period bucket and activity type
instead. Weekly buckets start on the day after the anchor weekday and are
labelled by the anchor weekday that ends them.`,
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
	dxctlcmd.ReportFlags
	// Aggregate summarizes transactions per period and activity type.
	Aggregate bool
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	f.ReportFlags.Bind(flagSet)
	flagSet.BoolVar(&f.Aggregate, aggregateFlagName, false, "Summarize USD totals per period and activity type")
}

func run(ctx context.Context, container appext.Container, flags *flags) error {
	return dxctlcmd.WithAssembler(ctx, container, &flags.ReportFlags, func(run *dxctlcmd.Run, assembler dxctlreport.Assembler) error {
		if flags.Aggregate {
			summary, err := assembler.SummarizeFinancialTransactions(ctx)
			if err != nil {
				return err
			}
			run.Recorder.ObserveReport("transactions_summary", len(summary.Buckets))
			if run.Format == cliio.FormatJSON {
				return cliio.WriteJSON(container.Stdout(), summary)
			}
			return cliio.Write(
				container.Stdout(),
				run.Format,
				summary.Headers(),
				func(row []string) []string { return row },
				summary.Rows(),
			)
		}
		transactions, err := assembler.ListFinancialTransactions(ctx)
		if err != nil {
			return err
		}
		run.Recorder.ObserveReport("transactions", len(transactions))
		headers := dxctlreport.FinancialTransactionHeaders()
		usds := make([]decimal.Decimal, 0, len(transactions))
		for _, transaction := range transactions {
			usds = append(usds, transaction.USD)
		}
		totalsRow := make([]string, len(headers))
		totalsRow[0] = "TOTAL"
		totalsRow[len(headers)-2] = dxctlreport.TotalUSD(usds...).StringFixed(2)
		return cliio.WriteWithTotals(container.Stdout(), run.Format, headers, dxctlreport.FinancialTransactionToRow, transactions, totalsRow)
	})
}
