package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// Login runs the Google consent flow on the configured redirect URI and saves the credential for 'facescan scan'.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	out := cmd.String("output")

	if cmd.Bool("no-browser") {
		r.openBrowser = func(string) error { return nil }
	}

	provider, err := r.googleProvider(func(url string) {
		r.writePlain("Open this URL to sign in with Google:\n\n  %s\n\n", url)
	})
	if err != nil {
		return err
	}

	cred, err := provider.Login(ctx)
	if err != nil {
		return err
	}

	if err := os.WriteFile(out, cred.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	r.logger.Info("credential saved", "path", out)

	return r.writePlain("✓ Signed in with Google\nCredential saved to %s\n", out)
}
