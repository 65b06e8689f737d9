package main

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/facescan/internal/shared"
	"github.com/desertthunder/facescan/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive scanner.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	logger, err := r.tuiLogger()
	if err != nil {
		return err
	}
	r.SetLogger(logger)

	c, done := r.newController()
	defer done()

	opts := ui.ModelOpts{Controller: c, Logger: r.logger}
	if p, err := r.googleProvider(nil); err != nil {
		r.logger.Warn("google sign-in disabled", "err", err)
	} else {
		opts.Provider = p
	}

	p := tea.NewProgram(ui.NewModel(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// tuiLogger keeps log output off the terminal while the TUI owns it: logs go to log.file, or nowhere when it is unset.
func (r *Runner) tuiLogger() (*log.Logger, error) {
	path := r.config.Log.File
	if path == "" {
		return shared.NewLogger(io.Discard), nil
	}
	fileLogger, err := shared.NewFileLogger(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	return fileLogger, nil
}
