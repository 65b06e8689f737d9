package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func newTokenServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse token request: %v", err)
		}
		if r.Form.Get("code") != "good-code" {
			status = http.StatusBadRequest
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "ya29.token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOAuthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth", TokenURL: tokenURL},
		RedirectURL:  "http://127.0.0.1/callback",
	}
}

func TestOAuthHandler(t *testing.T) {
	t.Run("Routes defaults to /callback", func(t *testing.T) {
		h := NewOAuthHandler(&oauth2.Config{}, "state", "")
		if got := h.Routes(); len(got) != 1 || got[0] != "/callback" {
			t.Errorf("unexpected routes %v", got)
		}
	})

	t.Run("successful exchange", func(t *testing.T) {
		tokenSrv := newTokenServer(t, http.StatusOK)
		h := NewOAuthHandler(testOAuthConfig(tokenSrv.URL), "xyz", "/callback")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=xyz&code=good-code", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "Signed in with Google") {
			t.Error("expected success page")
		}

		res := <-h.Result()
		if res.Error() != nil {
			t.Fatalf("unexpected error %v", res.Error())
		}
		if res.Token.AccessToken != "ya29.token" {
			t.Errorf("unexpected token %+v", res.Token)
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		h := NewOAuthHandler(&oauth2.Config{}, "xyz", "/callback")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=evil&code=c", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if res := <-h.Result(); res.Error() == nil || !strings.Contains(res.Error().Error(), "invalid state") {
			t.Errorf("expected invalid state error, got %v", res.Error())
		}
	})

	t.Run("provider denied access", func(t *testing.T) {
		h := NewOAuthHandler(&oauth2.Config{}, "xyz", "/callback")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=xyz&error=access_denied&error_description=nope", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		res := <-h.Result()
		if res.Error() == nil || !strings.Contains(res.Error().Error(), "access_denied") {
			t.Errorf("expected access_denied error, got %v", res.Error())
		}
	})

	t.Run("failed exchange", func(t *testing.T) {
		tokenSrv := newTokenServer(t, http.StatusOK)
		h := NewOAuthHandler(testOAuthConfig(tokenSrv.URL), "xyz", "/callback")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=xyz&code=bad-code", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if res := <-h.Result(); res.Error() == nil {
			t.Error("expected exchange error")
		}
	})

	t.Run("second callback is rejected", func(t *testing.T) {
		h := NewOAuthHandler(&oauth2.Config{}, "xyz", "/callback")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=evil", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=xyz&code=c", nil))
		if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "already processed") {
			t.Errorf("expected already processed, got %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("redirect mode", func(t *testing.T) {
		h := NewOAuthHandler(&oauth2.Config{}, "xyz", "/callback").WithRedirect("/")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=evil", nil))

		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
			t.Errorf("expected 303 to /, got %d %q", rec.Code, rec.Header().Get("Location"))
		}
	})

	t.Run("result hook runs before response", func(t *testing.T) {
		tokenSrv := newTokenServer(t, http.StatusOK)
		var got *oauth2.Token
		h := NewOAuthHandler(testOAuthConfig(tokenSrv.URL), "xyz", "/callback").
			WithRedirect("/").
			OnResult(func(res OAuthResult) { got = res.Token })

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=xyz&code=good-code", nil))

		if got == nil || got.AccessToken != "ya29.token" {
			t.Errorf("expected hook to receive token, got %+v", got)
		}
		if rec.Code != http.StatusSeeOther {
			t.Errorf("expected 303, got %d", rec.Code)
		}
	})
}

func TestServeCallback(t *testing.T) {
	t.Run("returns token from callback", func(t *testing.T) {
		tokenSrv := newTokenServer(t, http.StatusOK)
		h := NewOAuthHandler(testOAuthConfig(tokenSrv.URL), "xyz", "/callback")

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		addr := ln.Addr().String()
		ln.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		token, err := ServeCallback(ctx, addr, h, func() {
			go func() {
				resp, err := http.Get("http://" + addr + "/callback?state=xyz&code=good-code")
				if err == nil {
					resp.Body.Close()
				}
			}()
		})
		if err != nil {
			t.Fatalf("ServeCallback() error = %v", err)
		}
		if token.AccessToken != "ya29.token" {
			t.Errorf("unexpected token %+v", token)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		h := NewOAuthHandler(&oauth2.Config{}, "xyz", "/callback")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := ServeCallback(ctx, "127.0.0.1:0", h, nil); err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("listen failure", func(t *testing.T) {
		h := NewOAuthHandler(&oauth2.Config{}, "xyz", "/callback")
		if _, err := ServeCallback(context.Background(), "not-an-address", h, nil); err == nil {
			t.Error("expected listen error")
		}
	})
}
