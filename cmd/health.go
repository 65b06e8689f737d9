package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/facescan/internal/shared"
	"github.com/urfave/cli/v3"
)

// Health probes the scanning backend once and reports the result.
func (r *Runner) Health(ctx context.Context, cmd *cli.Command) error {
	url := r.config.API.URL
	r.logger.Debug("checking backend health", "url", url)

	healthy := r.service().Health(ctx)

	if cmd.Bool("json") {
		if err := r.writeJSON(map[string]any{"url": url, "healthy": healthy}, true); err != nil {
			return err
		}
	} else if healthy {
		if err := r.writePlain("✓ Backend is healthy (%s)\n", url); err != nil {
			return err
		}
	}

	if !healthy {
		return fmt.Errorf("%w: backend at %s is not responding", shared.ErrServiceUnavailable, url)
	}
	return nil
}
