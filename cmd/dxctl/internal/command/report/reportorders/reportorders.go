// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package reportorders implements the "report orders" command.
package reportorders

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/dxctlcmd"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlreport"
	"github.com/bufdev/dxctl/internal/pkg/cliio"
	"github.com/shopspring/decimal"
)

// NewCommand returns a new report orders command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := dxctlcmd.NewReportFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "List trades with volume, PnL, and markup in USD",
		Long: `List trades with volume, PnL, and markup in USD.

Lists every completed trade of live accounts in the date range. Volume is
quantity times price, converted to USD with the bid price of the trade date.
Markup is the price difference to the hedge order for FX_STP orders.

Table output ends with a totals row.`,
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
		orders, err := assembler.ListOrders(ctx)
		if err != nil {
			return err
		}
		run.Recorder.ObserveReport("orders", len(orders))
		headers := dxctlreport.OrderHeaders()
		var volumes, pnls, markups []decimal.Decimal
		for _, order := range orders {
			volumes = append(volumes, order.Volume)
			pnls = append(pnls, order.PnL)
			markups = append(markups, order.Markup)
		}
		totalsRow := make([]string, len(headers))
		totalsRow[0] = "TOTAL"
		totalsRow[len(headers)-3] = dxctlreport.TotalUSD(volumes...).StringFixed(2)
		totalsRow[len(headers)-2] = dxctlreport.TotalUSD(pnls...).StringFixed(2)
		totalsRow[len(headers)-1] = dxctlreport.TotalUSD(markups...).StringFixed(2)
		return cliio.WriteWithTotals(container.Stdout(), run.Format, headers, dxctlreport.OrderToRow, orders, totalsRow)
	})
}
