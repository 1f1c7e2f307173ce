// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package rate implements the "rate" command group.
package rate

import (
	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/rate/ratehistory"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/rate/ratelatest"
)

// NewCommand returns a new rate command group.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name,
		Short: "Show the USD rates used to convert amounts",
		SubCommands: []*appcmd.Command{
			ratehistory.NewCommand("history", builder),
			ratelatest.NewCommand("latest", builder),
		},
	}
}
