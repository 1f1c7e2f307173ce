// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package report implements the "report" command group.
package report

import (
	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/report/reportbalances"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/report/reportlogins"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/report/reportorders"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/report/reportpositions"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/report/reporttransactions"
)

// NewCommand returns a new report command group.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name,
		Short: "Assemble reports from the platform database",
		SubCommands: []*appcmd.Command{
			reportbalances.NewCommand("balances", builder),
			reportlogins.NewCommand("logins", builder),
			reportorders.NewCommand("orders", builder),
			reportpositions.NewCommand("positions", builder),
			reporttransactions.NewCommand("transactions", builder),
		},
	}
}
