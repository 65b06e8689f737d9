package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/facescan/internal/server"
	"github.com/desertthunder/facescan/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Provider produces an opaque credential. A nil error is the success event; any error is the failure event.
type Provider interface {
	Login(ctx context.Context) (Credential, error)
}

// GoogleProvider runs the authorization code flow against Google with a loopback callback server.
type GoogleProvider struct {
	config  *oauth2.Config
	logger  *log.Logger
	open    func(string) error
	prompts func(authURL string)
}

// GoogleOpts configures a [GoogleProvider].
type GoogleOpts struct {
	Config shared.GoogleConfig
	Logger *log.Logger
	// OpenBrowser defaults to [shared.OpenBrowser].
	OpenBrowser func(string) error
	// OnAuthURL is called with the consent URL, e.g. to print it when no browser can be opened.
	OnAuthURL func(string)
	// Endpoint defaults to [google.Endpoint].
	Endpoint *oauth2.Endpoint
}

// NewGoogleProvider builds a provider from the Google section of the config.
func NewGoogleProvider(opts GoogleOpts) (*GoogleProvider, error) {
	if opts.Config.ClientID == "" {
		return nil, fmt.Errorf("%w: google client_id is required", shared.ErrMissingCredentials)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	endpoint := google.Endpoint
	if opts.Endpoint != nil {
		endpoint = *opts.Endpoint
	}

	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     opts.Config.ClientID,
			ClientSecret: opts.Config.ClientSecret,
			RedirectURL:  opts.Config.RedirectURI,
			Scopes:       []string{"openid", "email", shared.DriveScope},
			Endpoint:     endpoint,
		},
		logger:  opts.Logger,
		open:    opts.OpenBrowser,
		prompts: opts.OnAuthURL,
	}, nil
}

// OAuthConfig exposes the underlying config for callers mounting their own callback handler.
func (g *GoogleProvider) OAuthConfig() *oauth2.Config { return g.config }

// AuthURL returns the consent page URL for state.
func (g *GoogleProvider) AuthURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Credential converts a token from a completed exchange into the opaque credential.
func (g *GoogleProvider) Credential(token *oauth2.Token) (Credential, error) {
	return CredentialFromToken(token, g.config.ClientID)
}

// Login starts the callback server on the redirect URI's host, opens the consent page and waits for the callback.
func (g *GoogleProvider) Login(ctx context.Context) (Credential, error) {
	redirect, err := url.Parse(g.config.RedirectURL)
	if err != nil || redirect.Host == "" {
		return Credential{}, fmt.Errorf("%w: invalid redirect_uri %q", shared.ErrInvalidConfig, g.config.RedirectURL)
	}

	state, err := NewState()
	if err != nil {
		return Credential{}, err
	}

	handler := server.NewOAuthHandler(g.config, state, redirect.Path)
	authURL := g.AuthURL(state)

	token, err := server.ServeCallback(ctx, redirect.Host, handler, func() {
		if g.prompts != nil {
			g.prompts(authURL)
		}
		if err := g.open(authURL); err != nil {
			g.logger.Warn("could not open browser", "err", err)
		}
	})
	if err != nil {
		g.logger.Error("google login failed", "err", err)
		return Credential{}, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	g.logger.Info("google login succeeded")
	return g.Credential(token)
}

// NewState returns a random URL-safe OAuth state token.
func NewState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
