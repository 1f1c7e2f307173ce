// Copyright 2026 Peter Edge
//
// All rights reserved.

package main

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/account"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/config"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/identity"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/probe"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/rate"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/report"
)

func main() {
	appcmd.Main(context.Background(), newRootCommand("dxctl"))
}

// newRootCommand creates the root dxctl command with all sub-commands.
func newRootCommand(name string) *appcmd.Command {
	builder := appext.NewBuilder(name)
	return &appcmd.Command{
		Use:   name,
		Short: "Back-office reporting for a DXtrade trading platform",
		Long: `Back-office reporting for a DXtrade trading platform.

Reports are read from the platform database configured in dxctl.yaml in the
--dir directory. Run "dxctl config init" to create one. Credentials are
referenced as ${VAR} and read from the environment or from .env next to
dxctl.yaml.`,
		BindPersistentFlags: builder.BindRoot,
		SubCommands: []*appcmd.Command{
			account.NewCommand("account", builder),
			config.NewCommand("config", builder),
			identity.NewCommand("identity", builder),
			probe.NewCommand("probe", builder),
			rate.NewCommand("rate", builder),
			report.NewCommand("report", builder),
		},
	}
}
