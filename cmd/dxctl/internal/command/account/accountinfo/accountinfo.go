// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package accountinfo implements the "account info" command.
package accountinfo

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/dxctlcmd"
	"github.com/bufdev/dxctl/internal/pkg/cliio"
	"github.com/bufdev/dxctl/internal/pkg/dxapi"
)

// NewCommand returns a new account info command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := dxctlcmd.NewBaseFlags()
	return &appcmd.Command{
		Use:   name + " <user...>",
		Short: "List the accounts of users with their categories",
		Long: `List the accounts of users with their categories.

Only accounts with the configured account_api.clearing_code are listed.
Users without accounts are logged and skipped.`,
		Args: appcmd.MinimumNArgs(1),
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
		var accounts []*dxapi.Account
		for i := range container.NumArgs() {
			userAccounts, _, err := client.GetUserAccounts(ctx, container.Arg(i))
			if err != nil {
				return err
			}
			accounts = append(accounts, userAccounts...)
		}
		run.Recorder.ObserveReport("accounts", len(accounts))
		return cliio.Write(container.Stdout(), run.Format, dxapi.AccountHeaders(), dxapi.AccountToRow, accounts)
	})
}
