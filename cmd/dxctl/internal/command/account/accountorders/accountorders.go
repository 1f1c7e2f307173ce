// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package accountorders implements the "account orders" command.
package accountorders

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/dxctlcmd"
	"github.com/bufdev/dxctl/internal/pkg/cliio"
	"github.com/bufdev/dxctl/internal/pkg/dxapi"
)

// NewCommand returns a new account orders command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := dxctlcmd.NewBaseFlags()
	return &appcmd.Command{
		Use:   name + " <account>",
		Short: "List the working orders of an account",
		Long: `List the working orders of an account.

The ORDER CODE column is the code passed to "dxctl account cancel-order".`,
		Args: appcmd.ExactArgs(1),
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
		orders, _, err := client.GetOrders(ctx, token, container.Arg(0))
		if err != nil {
			return err
		}
		run.Recorder.ObserveReport("account_orders", len(orders))
		return cliio.Write(container.Stdout(), run.Format, dxapi.OrderHeaders(), dxapi.OrderToRow, orders)
	})
}
