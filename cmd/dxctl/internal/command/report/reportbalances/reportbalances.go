// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package reportbalances implements the "report balances" command.
package reportbalances

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/dxctlcmd"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlreport"
	"github.com/bufdev/dxctl/internal/pkg/cliio"
	"github.com/shopspring/decimal"
)

// NewCommand returns a new report balances command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := dxctlcmd.NewReportFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "List the USD balance of each user",
		Long: `List the USD balance of each user.

Balances are the positive cash quantities of live accounts in the configured
convert currencies (reports.balances.convert_currencies), converted to USD with
the latest bid price. Other currencies count as 0.`,
		Args: appcmd.NoArgs,
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: flags.Bind,
	}
}

func run(ctx context.Context, container appext.Container, flags *dxctlcmd.ReportFlags) error {
	return dxctlcmd.WithAssembler(ctx, container, flags, func(run *dxctlcmd.Run, assembler dxctlreport.Assembler) error {
		balances, err := assembler.ListBalances(ctx)
		if err != nil {
			return err
		}
		run.Recorder.ObserveReport("balances", len(balances))
		usds := make([]decimal.Decimal, 0, len(balances))
		for _, balance := range balances {
			usds = append(usds, balance.USD)
		}
		totalsRow := []string{"TOTAL", dxctlreport.TotalUSD(usds...).StringFixed(2)}
		return cliio.WriteWithTotals(container.Stdout(), run.Format, dxctlreport.BalanceHeaders(), dxctlreport.BalanceToRow, balances, totalsRow)
	})
}
