// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package identitylookup implements the "identity lookup" command.
package identitylookup

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/dxctlcmd"
	"github.com/bufdev/dxctl/internal/pkg/cliio"
	"github.com/bufdev/dxctl/internal/pkg/keycloak"
)

// NewCommand returns a new identity lookup command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := dxctlcmd.NewBaseFlags()
	return &appcmd.Command{
		Use:   name + " <username...>",
		Short: "Look up the identity records of usernames",
		Long: `Look up the identity records of usernames.

Custom attributes are printed as columns next to the standard fields. With
identity_api.lookup_mode set to overwrite, only the records of the last
username are printed.`,
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
		client, err := dxctlcmd.NewIdentityClient(container, run)
		if err != nil {
			return err
		}
		token, err := client.Token(ctx)
		if err != nil {
			return err
		}
		usernames := make([]string, 0, container.NumArgs())
		for i := range container.NumArgs() {
			usernames = append(usernames, container.Arg(i))
		}
		users, err := client.LookupUsers(ctx, token.AccessToken, usernames)
		if err != nil {
			return err
		}
		run.Recorder.ObserveReport("identities", len(users))
		if run.Format == cliio.FormatJSON {
			fields := make([]map[string]string, 0, len(users))
			for _, user := range users {
				fields = append(fields, user.Fields)
			}
			return cliio.WriteJSON(container.Stdout(), fields...)
		}
		columns := keycloak.Columns(users)
		return cliio.Write(
			container.Stdout(),
			run.Format,
			columns,
			func(user *keycloak.User) []string { return user.Row(columns) },
			users,
		)
	})
}
