// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package identity implements the "identity" command group.
package identity

import (
	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/command/identity/identitylookup"
)

// NewCommand returns a new identity command group.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	return &appcmd.Command{
		Use:   name,
		Short: "Look up user identity records in Keycloak",
		SubCommands: []*appcmd.Command{
			identitylookup.NewCommand("lookup", builder),
		},
	}
}
