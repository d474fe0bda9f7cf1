package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/pricepal/internal/formatter"
	"github.com/desertthunder/pricepal/internal/models"
	"github.com/desertthunder/pricepal/internal/shared"
	"github.com/urfave/cli/v3"
)

// CartList prints the tracked products, from the backend or, with --offline, from the last sync.
func (r *Runner) CartList(ctx context.Context, cmd *cli.Command) error {
	if err := r.wire(ctx); err != nil {
		return err
	}

	summary, syncedAt, err := r.loadCart(ctx, cmd.Bool("offline"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(summary, cmd.Bool("pretty"))
	}

	r.printCart(summary)
	if !syncedAt.IsZero() {
		r.writePlainln("Showing cart as of %s", syncedAt.Local().Format(time.DateTime))
	}
	return nil
}

// CartRemove stops tracking a product and prints the refreshed cart.
func (r *Runner) CartRemove(ctx context.Context, cmd *cli.Command) error {
	if err := r.wire(ctx); err != nil {
		return err
	}

	id := cmd.StringArg("id")
	summary, err := r.cart.Remove(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrFetchFailed) {
			r.writePlain("✓ Stopped tracking %s, but the cart could not be refreshed\n", id)
		}
		return err
	}

	r.writePlain("✓ Stopped tracking %s\n\n", id)
	r.printCart(summary)
	return nil
}

// CartExport writes the tracked products to a CSV, Markdown, or text file.
func (r *Runner) CartExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.wire(ctx); err != nil {
		return err
	}

	summary, _, err := r.loadCart(ctx, cmd.Bool("offline"))
	if err != nil {
		return err
	}

	result, err := formatter.WriteCartExport(ctx, summary, formatter.ExportOpts{
		Format:     strings.ToLower(cmd.String("format")),
		Path:       cmd.String("output"),
		Images:     cmd.Bool("images"),
		HTTPClient: r.httpClient,
		Warn:       func(msg string, kv ...any) { r.logger.Warn(msg, kv...) },
	})
	if err != nil {
		return err
	}

	r.logger.Info("cart exported", "format", result.Format, "files", len(result.Files))
	r.writePlain("✓ Exported %d products as %s\n", len(summary.Products), result.Format)
	for _, f := range result.Files {
		r.writePlain("  %s\n", f)
	}
	return nil
}

// loadCart returns the backend cart, or the cached one when offline is set.
// The returned time is the sync time for cached carts and zero otherwise.
func (r *Runner) loadCart(ctx context.Context, offline bool) (*models.CartSummary, time.Time, error) {
	if offline {
		summary, syncedAt, err := r.cart.Cached(ctx)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("no synced cart available offline: %w", err)
		}
		return summary, syncedAt, nil
	}

	summary, err := r.cart.Fetch(ctx)
	return summary, time.Time{}, err
}

func (r *Runner) printCart(summary *models.CartSummary) {
	r.writePlainHeader(fmt.Sprintf("Tracked products: %d (%d active, %d completed)",
		summary.TotalProducts, summary.ActiveProducts, summary.Completed()))

	if len(summary.Products) == 0 {
		r.writePlain("Your cart is empty. Track a product with 'pricepal product track <url> --target <price>'.\n")
		return
	}

	for i, p := range summary.Products {
		r.writePlain("%d. %s [%s]\n", i+1, p.ProductName, formatter.Status(p))
		r.writePlain("   id: %s\n", p.ID)
		r.writePlain("   current %s • target %s", formatter.FormatINR(p.CurrentPrice), formatter.FormatINR(p.TargetPrice))
		if p.LowestPrice > 0 {
			r.writePlain(" • lowest %s", formatter.FormatINR(p.LowestPrice))
		}
		r.writePlain("\n")
	}
}
