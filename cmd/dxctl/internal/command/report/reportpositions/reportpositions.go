// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package reportpositions implements the "report positions" command.
package reportpositions

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/dxctlcmd"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlreport"
	"github.com/bufdev/dxctl/internal/pkg/cliio"
)

// NewCommand returns a new report positions command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := dxctlcmd.NewReportFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "List open positions per user and symbol",
		Long: `List open positions per user and symbol.

Quantities and costs are summed over the open positions of each user and
symbol. The open price is cost divided by quantity and is empty when the
quantity nets to zero.`,
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
		positions, err := assembler.ListPositions(ctx)
		if err != nil {
			return err
		}
		run.Recorder.ObserveReport("positions", len(positions))
		return cliio.Write(container.Stdout(), run.Format, dxctlreport.PositionHeaders(), dxctlreport.PositionToRow, positions)
	})
}
