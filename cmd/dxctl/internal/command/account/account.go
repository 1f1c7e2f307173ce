// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package account implements the "account" command group.
package account

import (
	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/account/accountadjust"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/account/accountcancelorder"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/account/accountinfo"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/account/accountmetrics"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/account/accountorders"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/account/accountpositions"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/account/accountsetcategory"
)

// NewCommand returns a new account command group.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name,
		Short: "Inspect and manage trading accounts through the DXtrade API",
		Long: `Inspect and manage trading accounts through the DXtrade API.

Requires account_api in dxctl.yaml. The metrics, positions, orders, and
cancel-order commands also require account_api.session_login.`,
		SubCommands: []*appcmd.Command{
			accountadjust.NewCommand("adjust", builder),
			accountcancelorder.NewCommand("cancel-order", builder),
			accountinfo.NewCommand("info", builder),
			accountmetrics.NewCommand("metrics", builder),
			accountorders.NewCommand("orders", builder),
			accountpositions.NewCommand("positions", builder),
			accountsetcategory.NewCommand("set-category", builder),
		},
	}
}
