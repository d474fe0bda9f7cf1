package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/pricepal/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request to the backend
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path is required", shared.ErrMissingArgument)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var token string
	if cmd.Bool("auth") {
		if err := r.wire(ctx); err != nil {
			return err
		}
		if !r.session.Current().IsAuthenticated() {
			return shared.ErrNotAuthenticated
		}
		t, err := r.session.Token(ctx)
		if err != nil {
			return err
		}
		token = t
	} else {
		r.backend()
	}

	r.logger.Info("GET request", "path", path)

	resp, err := r.api.Get(ctx, path, token)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	if !resp.OK() {
		return &shared.APIError{Kind: shared.ErrAPIRequest, StatusCode: resp.StatusCode, Detail: resp.Detail()}
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, cmd.Bool("pretty"))
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}

// Health checks that the backend is reachable.
func (r *Runner) Health(ctx context.Context, cmd *cli.Command) error {
	r.backend()
	r.logger.Info("checking backend health", "url", r.api.BaseURL())

	status, err := r.tracker.Health(ctx)
	if err != nil {
		return err
	}

	r.writePlain("✓ Service is healthy\n")
	return r.writePlain("Status: %s\n", status)
}
