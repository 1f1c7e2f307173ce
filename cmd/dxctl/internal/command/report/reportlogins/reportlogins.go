// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package reportlogins implements the "report logins" command.
package reportlogins

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/dxctlcmd"
	"github.com/bufdev/dxctl/internal/dxctl/dxctlreport"
	"github.com/bufdev/dxctl/internal/pkg/cliio"
)

// NewCommand returns a new report logins command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := dxctlcmd.NewReportFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "List account sessions of recently created users",
		Long: `List account sessions of recently created users.

Lists the sessions of every account whose user was created on or after
reports.logins_since (default 2023-02-01).`,
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
		logins, err := assembler.ListLogins(ctx)
		if err != nil {
			return err
		}
		run.Recorder.ObserveReport("logins", len(logins))
		return cliio.Write(container.Stdout(), run.Format, dxctlreport.LoginHeaders(), dxctlreport.LoginToRow, logins)
	})
}
