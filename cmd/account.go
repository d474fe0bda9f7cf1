package main

import (
	"context"

	"github.com/desertthunder/pricepal/internal/formatter"
	"github.com/urfave/cli/v3"
)

// AccountProfile updates the display name and/or email.
func (r *Runner) AccountProfile(ctx context.Context, cmd *cli.Command) error {
	if err := r.wire(ctx); err != nil {
		return err
	}

	if err := r.account.UpdateProfile(ctx, cmd.String("name"), cmd.String("email")); err != nil {
		return err
	}
	return r.writePlain("✓ Profile updated\n")
}

// AccountStats prints account-wide tracking counters.
func (r *Runner) AccountStats(ctx context.Context, cmd *cli.Command) error {
	if err := r.wire(ctx); err != nil {
		return err
	}

	stats, err := r.account.Stats(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	r.writePlainHeader("Your stats")
	r.writePlain("Products tracked:  %d\n", stats.TotalProducts)
	r.writePlain("Active tracking:   %d\n", stats.ActiveProducts)
	r.writePlain("Alerts completed:  %d\n", stats.CompletedAlerts)
	r.writePlain("Total savings:     %s\n", formatter.FormatINR(stats.TotalSavings))
	return nil
}
