package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/facescan/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve runs the web front-end until the context is cancelled (Ctrl+C), then shuts down gracefully.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := int(cmd.Int("port")); port != 0 {
		cfg.Port = port
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	c, done := r.newController()
	defer done()

	opts := web.Opts{Controller: c, Logger: r.logger}
	if p, err := r.googleProvider(nil); err != nil {
		r.logger.Warn("google sign-in disabled", "err", err)
	} else {
		opts.Provider = p
		r.checkRedirect(cfg.Port)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           web.New(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if !c.Probe(ctx) {
			r.logger.Warn("scanning disabled until restart", "api", r.config.API.URL)
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		r.logger.Info("facescan web interface available", "url", "http://"+addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		r.logger.Info("server stopped")
		return nil
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}
}

// checkRedirect warns when Google would send the browser somewhere other than this server's callback route.
func (r *Runner) checkRedirect(port int) {
	u, err := url.Parse(r.config.Google.RedirectURI)
	if err != nil {
		return
	}
	if u.Path != web.CallbackPath || u.Port() != strconv.Itoa(port) {
		r.logger.Warn("google.redirect_uri does not point at this server, sign-in will not complete",
			"redirect_uri", r.config.Google.RedirectURI, "expected_path", web.CallbackPath, "port", port)
	}
}
