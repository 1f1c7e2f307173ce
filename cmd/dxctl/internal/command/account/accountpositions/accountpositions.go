// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package accountpositions implements the "account positions" command.
package accountpositions

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/dxctlcmd"
	"github.com/bufdev/dxctl/internal/pkg/cliio"
	"github.com/bufdev/dxctl/internal/pkg/dxapi"
)

// NewCommand returns a new account positions command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := dxctlcmd.NewBaseFlags()
	return &appcmd.Command{
		Use:   name + " <account>",
		Short: "List the open positions of an account",
		Args:  appcmd.ExactArgs(1),
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
		client, err := dxctlcmd.NewAccountClient(container, run)
		if err != nil {
			return err
		}
		token, err := dxctlcmd.NewSessionToken(ctx, client, run)
		if err != nil {
			return err
		}
		positions, _, err := client.GetPositions(ctx, token, container.Arg(0))
		if err != nil {
			return err
		}
		run.Recorder.ObserveReport("account_positions", len(positions))
		return cliio.Write(container.Stdout(), run.Format, dxapi.PositionHeaders(), dxapi.PositionToRow, positions)
	})
}
