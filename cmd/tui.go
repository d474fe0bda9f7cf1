package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/pricepal/internal/shared"
	"github.com/desertthunder/pricepal/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for tracked products.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	if err := r.wire(ctx); err != nil {
		return err
	}
	if !r.session.Current().IsAuthenticated() {
		return shared.ErrNotAuthenticated
	}

	model := ui.NewModel(ctx, ui.Deps{
		Cart:      r.cart,
		Lookup:    r.lookup,
		Submitter: r.submitter,
		Logger:    shared.WithLogger(fileLogger, "component", "tui"),
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
