package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/pricepal/internal/formatter"
	"github.com/desertthunder/pricepal/internal/models"
	"github.com/desertthunder/pricepal/internal/shared"
	"github.com/desertthunder/pricepal/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ProductLookup fetches and prints the current details of a product.
func (r *Runner) ProductLookup(ctx context.Context, cmd *cli.Command) error {
	if err := r.wire(ctx); err != nil {
		return err
	}

	snap, err := r.lookup.Fetch(ctx, cmd.StringArg("url"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(snap, true)
	}
	r.printSnapshot(snap)
	return nil
}

// ProductTrack looks up a product and starts tracking it at --target.
func (r *Runner) ProductTrack(ctx context.Context, cmd *cli.Command) error {
	if err := r.wire(ctx); err != nil {
		return err
	}
	if !r.session.Current().IsAuthenticated() {
		return shared.ErrNotAuthenticated
	}

	snap, err := r.lookup.Fetch(ctx, cmd.StringArg("url"))
	if err != nil {
		return err
	}
	r.printSnapshot(snap)

	progress := make(chan tasks.ProgressUpdate, 8)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.logger.Debug("tracking progress", "phase", update.Phase, "message", update.Message)
			if !update.Phase.Terminal() && update.Message != "" {
				r.writePlain("→ %s\n", update.Message)
			}
		}
	}()

	result, err := r.submitter.Submit(ctx, progress, snap, cmd.String("target"))
	close(progress)
	wg.Wait()
	if err != nil {
		return err
	}

	r.writePlainln("✓ Price tracking started!")
	r.writePlain("Target: %s\n", formatter.FormatINR(result.TargetPrice))
	r.writePlain("You'll save %s when the price drops. We'll email you.\n", formatter.FormatINR(result.Savings))
	return nil
}

// ProductOpen opens a tracked product's Amazon page in the browser.
func (r *Runner) ProductOpen(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: product id is required", shared.ErrMissingArgument)
	}
	if err := r.wire(ctx); err != nil {
		return err
	}

	summary, err := r.cart.Fetch(ctx)
	if err != nil {
		r.logger.Warn("falling back to the last synced cart", "error", err)
		if summary, _, err = r.cart.Cached(ctx); err != nil {
			return err
		}
	}

	product, ok := summary.Find(id)
	if !ok {
		return fmt.Errorf("%w: no tracked product with id %s", shared.ErrInvalidArgument, id)
	}

	r.logger.Info("opening product page", "url", product.AmazonURL)
	return shared.OpenBrowser(product.AmazonURL)
}

func (r *Runner) printSnapshot(snap *models.ProductSnapshot) {
	r.writePlainHeader(snap.ProductName)
	r.writePlain("Price:        %s\n", formatter.FormatINR(snap.CurrentPrice))
	if snap.Availability != "" {
		r.writePlain("Availability: %s\n", snap.Availability)
	}
	if snap.ASIN != "" {
		r.writePlain("ASIN:         %s\n", snap.ASIN)
	}
	r.writePlain("URL:          %s\n", snap.AmazonURL)
}
