// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package accountcancelorder implements the "account cancel-order" command.
package accountcancelorder

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/dxctlcmd"
)

// NewCommand returns a new account cancel-order command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := dxctlcmd.NewBaseFlags()
	return &appcmd.Command{
		Use:   name + " <account> <order-code>",
		Short: "Cancel a working order of an account",
		Args:  appcmd.ExactArgs(2),
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
		return client.DeleteOrder(ctx, token, container.Arg(0), container.Arg(1))
	})
}
