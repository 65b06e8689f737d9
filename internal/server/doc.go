// Package server provides HTTP routing, middleware, and the OAuth callback handler shared by the CLI login flow and the web form.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging] and [RateLimit] are the stock middleware.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for a token,
// and sends the result through a channel. It only processes one callback to prevent replay attacks.
//
// # Usage
//
// During `facescan login` and the terminal UI's login step a temporary server is started with [ServeCallback]
// on the configured redirect address and shut down once a token (or an error) arrives.
// The web front-end mounts a fresh [OAuthHandler] on its own router for each login attempt.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
