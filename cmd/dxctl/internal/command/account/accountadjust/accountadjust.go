// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package accountadjust implements the "account adjust" command.
package accountadjust

import (
	"context"
	"fmt"

	"buf.build/go/app/appcmd"
	"buf.build/go/app/appext"
	"github.com/bufdev/dxctl/cmd/dxctl/internal/dxctlcmd"
	"github.com/bufdev/dxctl/internal/pkg/dxapi"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

const (
	currencyFlagName    = "currency"
	descriptionFlagName = "description"
)

// NewCommand returns a new account adjust command.
func NewCommand(name string, builder appext.SubCommandBuilder) *appcmd.Command {
	flags := newFlags()
	return &appcmd.Command{
		Use:   name + " <account> <amount>",
		Short: "Adjust the balance of an account",
		Long: `Adjust the balance of an account.

The amount is signed and a negative amount debits the account. Pass negative
amounts after "--", for example "dxctl account adjust -- 1001 -25.5". Prints
the id of the adjustment.`,
		Args: appcmd.ExactArgs(2),
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
	// Currency is the adjustment currency.
	Currency string
	// Description is the adjustment description.
	Description string
}

func newFlags() *flags {
	return &flags{}
}

// Bind registers the flag definitions with the given flag set.
func (f *flags) Bind(flagSet *pflag.FlagSet) {
	f.BaseFlags.Bind(flagSet)
	flagSet.StringVar(&f.Currency, currencyFlagName, dxapi.DefaultAdjustmentCurrency, "The adjustment currency")
	flagSet.StringVar(&f.Description, descriptionFlagName, "", "The adjustment description")
}

func run(ctx context.Context, container appext.Container, flags *flags) error {
	amount, err := decimal.NewFromString(container.Arg(1))
	if err != nil {
		return appcmd.NewInvalidArgumentErrorf("invalid amount %q: %v", container.Arg(1), err)
	}
	if amount.IsZero() {
		return appcmd.NewInvalidArgumentError("amount must not be zero")
	}
	return dxctlcmd.WithRun(&flags.BaseFlags, func(run *dxctlcmd.Run) error {
		client, err := dxctlcmd.NewAccountClient(container, run)
		if err != nil {
			return err
		}
		id, err := client.MakeAdjustment(ctx, dxapi.Adjustment{
			Account:     container.Arg(0),
			Amount:      amount,
			Currency:    flags.Currency,
			Description: flags.Description,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(container.Stdout(), id)
		return err
	})
}
