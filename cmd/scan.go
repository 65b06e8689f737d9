package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/desertthunder/facescan/internal/auth"
	"github.com/desertthunder/facescan/internal/formatter"
	"github.com/desertthunder/facescan/internal/images"
	"github.com/desertthunder/facescan/internal/session"
	"github.com/desertthunder/facescan/internal/shared"
	"github.com/urfave/cli/v3"
)

// Scan runs a single scan through the same session controller the TUI and web form use.
//
// Missing inputs are left unset so the controller reports them the way the interactive front-ends do.
func (r *Runner) Scan(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	c, done := r.newController()
	defer done()

	if !c.Probe(ctx) {
		return fmt.Errorf("%w (%s)", session.ErrBackendUnavailable, r.config.API.URL)
	}

	if _, err := c.SetDriveLink(strings.TrimSpace(cmd.String("link"))); err != nil {
		return err
	}

	if path := cmd.String("image"); path != "" {
		f, err := images.FromPath(path)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
		if _, err := c.SetImage(f); err != nil {
			return err
		}
	}

	cred, err := readCredential(cmd.String("credential-file"))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		r.logger.Warn("no saved credential, run 'facescan login' first", "path", cmd.String("credential-file"))
	case err != nil:
		return err
	default:
		c.SetCredential(cred)
	}

	st, err := c.Scan(ctx)
	if err != nil {
		return err
	}

	report := formatter.FromState(st)
	if out := cmd.String("output"); out != "" {
		if err := formatter.WriteReportFile(out, report, format); err != nil {
			return err
		}
		r.logger.Info("report written", "path", out, "format", format)
	} else if err := formatter.WriteReport(r.output, report, format); err != nil {
		return err
	}

	if st.Status == session.Failed {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, st.Error)
	}
	return nil
}

func readCredential(path string) (auth.Credential, error) {
	if path == "" {
		return auth.Credential{}, fs.ErrNotExist
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return auth.Credential{}, err
	}
	cred, err := auth.ParseCredential(data)
	if err != nil {
		return auth.Credential{}, fmt.Errorf("%s: %w", path, err)
	}
	return cred, nil
}
