// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package accountsetcategory implements the "account set-category" command.
package accountsetcategory

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/dxctlcmd"
)

// NewCommand returns a new account set-category command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := dxctlcmd.NewBaseFlags()
	return &appcmd.Command{
		Use:   name + " <account> <category> <value>",
		Short: "Set the value of an account category",
		Long: `Set the value of an account category.

For example, "dxctl account set-category 1001 Strategy FX_STP" moves an
account to the FX_STP execution strategy.`,
		Args: appcmd.ExactArgs(3),
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
		return client.ChangeCategory(ctx, container.Arg(0), container.Arg(1), container.Arg(2))
	})
}
