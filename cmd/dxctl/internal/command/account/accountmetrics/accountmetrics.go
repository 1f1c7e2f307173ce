// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package accountmetrics implements the "account metrics" command.
package accountmetrics

import (
	"context"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/dxctlcmd"
	"github.com/bufdev/dxctl/internal/pkg/cliio"
	"github.com/bufdev/dxctl/internal/pkg/dxapi"
)

// NewCommand returns a new account metrics command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := dxctlcmd.NewBaseFlags()
	return &appcmd.Command{
		Use:   name + " <account...>",
		Short: "Show the equity, balance, and PnL of accounts",
		Args:  appcmd.MinimumNArgs(1),
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
		var allMetrics []*dxapi.Metrics
		for i := range container.NumArgs() {
			metrics, ok, err := client.GetMetrics(ctx, token, container.Arg(i))
			if err != nil {
				return err
			}
			if ok {
				allMetrics = append(allMetrics, metrics)
			}
		}
		run.Recorder.ObserveReport("account_metrics", len(allMetrics))
		return cliio.Write(container.Stdout(), run.Format, dxapi.MetricsHeaders(), dxapi.MetricsToRow, allMetrics)
	})
}
