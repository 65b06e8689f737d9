// Package web serves the scan form over HTTP for users who prefer a browser to the TUI.
//
// Every route drives the same [session.Controller] the TUI uses, so the single in-flight rule holds across
// concurrent requests. Form posts answer with a 303 back to the page (post/redirect/get); POST /scan and GET /state
// answer with JSON when the client asks for it.
//
// Routes
//
//	GET  /          form page
//	POST /link      set the drive link
//	POST /image     upload the reference image (multipart field "image")
//	GET  /login     start Google sign-in
//	GET  /callback  OAuth redirect target
//	POST /scan      trigger a scan
//	GET  /state     session snapshot as JSON
//	GET  /healthz   liveness plus cached backend health
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/facescan/internal/auth"
	"github.com/desertthunder/facescan/internal/formatter"
	"github.com/desertthunder/facescan/internal/images"
	"github.com/desertthunder/facescan/internal/server"
	"github.com/desertthunder/facescan/internal/session"
	"github.com/desertthunder/facescan/internal/shared"
	"github.com/dustin/go-humanize"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// CallbackPath is the route Google redirects to after consent.
const CallbackPath = "/callback"

// uploadLimit bounds the multipart body; the encoder enforces [images.MaxSize] on the file itself.
const uploadLimit = images.MaxSize + 1<<20

// OAuthProvider is the part of [auth.GoogleProvider] the browser sign-in flow needs.
type OAuthProvider interface {
	OAuthConfig() *oauth2.Config
	AuthURL(state string) string
	Credential(token *oauth2.Token) (auth.Credential, error)
}

// Opts configures a [Handler].
type Opts struct {
	Controller *session.Controller
	// Provider may be nil; sign-in then fails with the auth error message.
	Provider OAuthProvider
	Logger   *log.Logger
	// Limiter defaults to 10 requests per second with a burst of 20.
	Limiter *rate.Limiter
}

// Handler is the web front-end.
type Handler struct {
	controller *session.Controller
	provider   OAuthProvider
	logger     *log.Logger
	router     *server.BasicRouter

	mu      sync.Mutex
	pending *server.OAuthHandler
}

// New creates the handler and registers its routes.
func New(opts Opts) *Handler {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Limit(10), 20)
	}

	h := &Handler{
		controller: opts.Controller,
		provider:   opts.Provider,
		logger:     shared.WithLogger(opts.Logger, "component", "web"),
		router:     server.NewBasicRouter(),
	}

	h.router.Use(server.Recover(h.logger), server.Logging(h.logger), server.RateLimit(opts.Limiter))
	h.router.HandleFunc(http.MethodGet, "/{$}", h.index)
	h.router.HandleFunc(http.MethodPost, "/link", h.setLink)
	h.router.HandleFunc(http.MethodPost, "/image", h.setImage)
	h.router.HandleFunc(http.MethodGet, "/login", h.login)
	h.router.HandleFunc(http.MethodGet, CallbackPath, h.callback)
	h.router.HandleFunc(http.MethodPost, "/scan", h.scan)
	h.router.HandleFunc(http.MethodGet, "/state", h.state)
	h.router.HandleFunc(http.MethodGet, "/healthz", h.healthz)
	return h
}

// ServeHTTP implements [http.Handler].
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

type matchView struct {
	Label string
	URL   template.URL
}

type pageView struct {
	State          session.State
	Scanning       bool
	ShowProgress   bool
	Preview        template.URL
	ImageSize      string
	Matches        []matchView
	BackendWarning string
	NoMatches      string
}

func newPageView(st session.State) pageView {
	v := pageView{
		State:          st,
		Scanning:       st.Status == session.InFlight,
		ShowProgress:   st.Status == session.InFlight || st.Status == session.Success,
		BackendWarning: session.MsgBackendDown,
		NoMatches:      session.MsgNoMatches,
	}
	if st.HasImage() {
		// Encoded only ever holds an image/* data URI built by the encoder.
		v.Preview = template.URL(st.Image.DataURI)
		v.ImageSize = humanize.Bytes(uint64(st.Image.Size))
	}
	for i, r := range st.Results {
		v.Matches = append(v.Matches, matchView{Label: formatter.MatchLabel(i), URL: imageURL(r)})
	}
	return v
}

// imageURL passes http(s) links and image data URIs through; anything else renders as "#".
func imageURL(s string) template.URL {
	lower := strings.ToLower(s)
	for _, prefix := range []string{"https://", "http://", "data:image/"} {
		if strings.HasPrefix(lower, prefix) {
			return template.URL(s)
		}
	}
	return "#"
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, newPageView(h.controller.Snapshot())); err != nil {
		h.logger.Error("failed to render page", "err", err)
	}
}

func (h *Handler) setLink(w http.ResponseWriter, r *http.Request) {
	if _, err := h.controller.SetDriveLink(strings.TrimSpace(r.FormValue("drive_link"))); err != nil {
		h.logger.Debug("drive link not updated", "err", err)
	}
	h.back(w, r)
}

func (h *Handler) setImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, uploadLimit)

	_, fh, err := r.FormFile("image")
	switch {
	case err == nil:
		if _, err := h.controller.SetImage(images.FromMultipart(fh)); err != nil {
			h.logger.Debug("reference image not updated", "err", err)
		}
	default:
		var tooBig *http.MaxBytesError
		msg := "Please choose an image to upload"
		if errors.As(err, &tooBig) {
			msg = images.MsgTooLarge
		}
		h.logger.Debug("upload rejected", "err", err)
		h.inputError(msg)
	}
	if r.MultipartForm != nil {
		r.MultipartForm.RemoveAll()
	}
	h.back(w, r)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		h.logger.Warn("google sign-in requested but no client is configured")
		h.authFailed()
		h.back(w, r)
		return
	}

	state, err := auth.NewState()
	if err != nil {
		h.logger.Error("failed to create oauth state", "err", err)
		h.authFailed()
		h.back(w, r)
		return
	}

	cb := server.NewOAuthHandler(h.provider.OAuthConfig(), state, CallbackPath).
		WithRedirect("/").
		OnResult(h.completeLogin)

	h.mu.Lock()
	h.pending = cb
	h.mu.Unlock()

	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusFound)
}

func (h *Handler) completeLogin(res server.OAuthResult) {
	if err := res.Error(); err != nil {
		h.logger.Warn("google sign-in failed", "err", err)
		h.authFailed()
		return
	}
	cred, err := h.provider.Credential(res.Token)
	if err != nil {
		h.logger.Warn("google sign-in failed", "err", err)
		h.authFailed()
		return
	}
	h.controller.SetCredential(cred)
	h.logger.Info("signed in with google")
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	cb := h.pending
	h.pending = nil
	h.mu.Unlock()

	if cb == nil {
		h.logger.Warn("oauth callback without a pending sign-in")
		h.authFailed()
		h.back(w, r)
		return
	}
	cb.ServeHTTP(w, r)
}

type scanResponse struct {
	Status  string   `json:"status"`
	Matches []string `json:"matching_images"`
	Error   string   `json:"error,omitempty"`
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request) {
	req, err := h.controller.Begin()
	if err == nil {
		ctx := context.WithoutCancel(r.Context())
		if !wantsJSON(r) {
			// The page refreshes itself while the scan is in flight.
			go h.controller.Dispatch(ctx, req)
			h.back(w, r)
			return
		}
		h.respondScan(w, r, h.controller.Dispatch(ctx, req), http.StatusOK)
		return
	}

	st := h.controller.Snapshot()
	code := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, session.ErrScanInFlight):
		code = http.StatusConflict
	case errors.Is(err, session.ErrBackendUnavailable):
		code = http.StatusServiceUnavailable
		st.Error = session.MsgBackendDown
	}
	h.logger.Debug("scan refused", "err", err)
	h.respondScan(w, r, st, code)
}

func (h *Handler) respondScan(w http.ResponseWriter, r *http.Request, st session.State, code int) {
	if !wantsJSON(r) {
		h.back(w, r)
		return
	}
	writeJSON(w, code, scanResponse{
		Status:  st.Status.String(),
		Matches: append([]string{}, st.Results...),
		Error:   st.Error,
	})
}

type stateResponse struct {
	Status         string   `json:"status"`
	DriveLink      string   `json:"drive_link"`
	HasImage       bool     `json:"has_image"`
	SignedIn       bool     `json:"signed_in"`
	BackendHealthy bool     `json:"backend_healthy"`
	Progress       int      `json:"progress"`
	Matches        []string `json:"matching_images"`
	Error          string   `json:"error,omitempty"`
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	st := h.controller.Snapshot()
	writeJSON(w, http.StatusOK, stateResponse{
		Status:         st.Status.String(),
		DriveLink:      st.DriveLink,
		HasImage:       st.HasImage(),
		SignedIn:       st.HasCredential(),
		BackendHealthy: st.BackendHealthy,
		Progress:       st.Progress,
		Matches:        append([]string{}, st.Results...),
		Error:          st.Error,
	})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"backend": h.controller.Snapshot().BackendHealthy,
	})
}

// inputError shows msg on the page. While a scan is in flight the message is dropped.
func (h *Handler) inputError(msg string) {
	if _, err := h.controller.InputError(msg); err != nil {
		h.logger.Debug("input error not shown", "msg", msg, "err", err)
	}
}

func (h *Handler) authFailed() {
	h.inputError(session.MsgAuthFailed)
}

func (h *Handler) back(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
