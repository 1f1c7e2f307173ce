// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package probe implements the "probe" command for testing database and API connectivity.
package probe

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/dxctlcmd"
	"github.com/bufdev/dxctl/internal/pkg/cliio"
	"github.com/bufdev/dxctl/internal/pkg/sqlstore"
	"github.com/spf13/pflag"
)

// NewCommand returns a new probe command for testing database and API connectivity.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name,
		Short: "Check connectivity to the configured databases and APIs",
		Long: `Check connectivity to the configured databases and APIs.

Connects to every configured database, logs in to the account API if session
credentials are configured, and requests an identity API token if the identity
API is configured. Prints one line per target and fails if any target failed.`,
		Args: appcmd.NoArgs,
		Run: builder.NewRunFunc(
			func(ctx context.Context, container appext.Container) error {
				return run(ctx, container, flags)
			},
		),
		BindFlags: flags.Bind,
	}
}

type flags struct {
	dxctlcmd.BaseFlags
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	f.BaseFlags.Bind(flagSet)
}

type probeResult struct {
	Target   string `json:"target"`
	Kind     string `json:"kind"`
	Status   string `json:"status"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}

func run(ctx context.Context, container appext.Container, flags *flags) error {
	return dxctlcmd.WithRun(&flags.BaseFlags, func(run *dxctlcmd.Run) error {
		logger := container.Logger()
		var results []*probeResult
		names := make([]string, 0, len(run.Config.Databases))
		for name := range run.Config.Databases {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			target := run.Config.Databases[name]
			results = append(results, probe(name, string(target.Kind), func() error {
				store, err := sqlstore.Open(ctx, logger, target, sqlstore.StoreWithObserver(run.Recorder))
				if err != nil {
					return err
				}
				return store.Close()
			}))
		}
		if run.Config.AccountAPI != nil && run.Config.AccountAPI.SessionLogin != "" {
			client, err := dxctlcmd.NewAccountClient(container, run)
			if err != nil {
				return err
			}
			results = append(results, probe("account_api", "dxtrade", func() error {
				_, err := dxctlcmd.NewSessionToken(ctx, client, run)
				return err
			}))
		}
		if run.Config.IdentityAPI != nil {
			client, err := dxctlcmd.NewIdentityClient(container, run)
			if err != nil {
				return err
			}
			results = append(results, probe("identity_api", "keycloak", func() error {
				_, err := client.Token(ctx)
				return err
			}))
		}
		if err := cliio.Write(
			container.Stdout(),
			run.Format,
			[]string{"TARGET", "KIND", "STATUS", "DURATION", "ERROR"},
			func(r *probeResult) []string {
				return []string{r.Target, r.Kind, r.Status, r.Duration, r.Error}
			},
			results,
		); err != nil {
			return err
		}
		var failed int
		for _, result := range results {
			if result.Error != "" {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d probes failed", failed, len(results))
		}
		return nil
	})
}

func probe(target string, kind string, f func() error) *probeResult {
	start := time.Now()
	err := f()
	result := &probeResult{
		Target:   target,
		Kind:     kind,
		Status:   "ok",
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}
	if err != nil {
		result.Status = "failed"
		var connectionError *sqlstore.ConnectionError
		if errors.As(err, &connectionError) {
			result.Status = "unreachable"
		}
		result.Error = err.Error()
	}
	return result
}
