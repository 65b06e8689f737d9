package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/desertthunder/facescan/internal/auth"
	"github.com/desertthunder/facescan/internal/shared"
	tu "github.com/desertthunder/facescan/internal/testing"
)

func testRequest(t *testing.T) ScanRequest {
	t.Helper()
	cred, err := auth.ParseCredential([]byte(`{"access_token":"tok"}`))
	if err != nil {
		t.Fatal(err)
	}
	return ScanRequest{
		DriveLink:      "https://drive.google.com/drive/folders/abc",
		ReferenceImage: "data:image/png;base64,AAAA",
		Credentials:    cred,
	}
}

func TestScannerServiceHealth(t *testing.T) {
	t.Run("healthy backend", func(t *testing.T) {
		backend := &tu.ScanBackend{}
		srv := tu.NewScanBackend(t, backend)

		if !NewScannerService(srv.URL, nil, nil).Health(context.Background()) {
			t.Error("expected healthy")
		}
		if backend.HealthCalls() != 1 {
			t.Errorf("expected one probe, got %d", backend.HealthCalls())
		}
	})

	t.Run("non-2xx is unhealthy", func(t *testing.T) {
		srv := tu.NewScanBackend(t, &tu.ScanBackend{Unhealthy: true})

		if NewScannerService(srv.URL, nil, nil).Health(context.Background()) {
			t.Error("expected unhealthy")
		}
	})

	t.Run("network error is unhealthy", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}

		if NewScannerService("http://backend", client, nil).Health(context.Background()) {
			t.Error("expected unhealthy")
		}
	})
}

func TestScannerServiceScan(t *testing.T) {
	t.Run("success returns matches in order", func(t *testing.T) {
		backend := &tu.ScanBackend{Body: map[string]any{"matching_images": []string{"a.jpg", "b.jpg"}}}
		srv := tu.NewScanBackend(t, backend)

		res, err := NewScannerService(srv.URL, nil, nil).Scan(context.Background(), testRequest(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.MatchingImages) != 2 || res.MatchingImages[0] != "a.jpg" || res.MatchingImages[1] != "b.jpg" {
			t.Errorf("unexpected matches %v", res.MatchingImages)
		}

		reqs := backend.Requests()
		if len(reqs) != 1 {
			t.Fatalf("expected one request, got %d", len(reqs))
		}
		body := reqs[0]
		if body["drive_link"] != "https://drive.google.com/drive/folders/abc" {
			t.Errorf("unexpected drive_link %v", body["drive_link"])
		}
		if body["reference_image"] != "data:image/png;base64,AAAA" {
			t.Errorf("unexpected reference_image %v", body["reference_image"])
		}
		creds, ok := body["credentials"].(map[string]any)
		if !ok || creds["access_token"] != "tok" {
			t.Errorf("credential not forwarded verbatim: %v", body["credentials"])
		}
	})

	t.Run("empty match list is a success", func(t *testing.T) {
		srv := tu.NewScanBackend(t, &tu.ScanBackend{})

		res, err := NewScannerService(srv.URL, nil, nil).Scan(context.Background(), testRequest(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.MatchingImages) != 0 {
			t.Errorf("expected no matches, got %v", res.MatchingImages)
		}
	})

	tests := []struct {
		name    string
		status  int
		body    any
		message string
		is      error
	}{
		{
			name:    "server error message",
			status:  http.StatusBadRequest,
			body:    map[string]string{"error": "bad folder"},
			message: "bad folder",
			is:      shared.ErrAPIRequest,
		},
		{
			name:    "non-2xx without error field",
			status:  http.StatusInternalServerError,
			body:    "internal",
			message: DefaultScanError,
			is:      shared.ErrAPIRequest,
		},
		{
			name:    "2xx with malformed body",
			status:  http.StatusOK,
			body:    "<html>",
			message: DefaultScanError,
			is:      ErrMalformedResponse,
		},
		{
			name:    "2xx without matching_images",
			status:  http.StatusOK,
			body:    map[string]string{"status": "ok"},
			message: DefaultScanError,
			is:      ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := tu.NewScanBackend(t, &tu.ScanBackend{Status: tt.status, Body: tt.body})

			res, err := NewScannerService(srv.URL, nil, nil).Scan(context.Background(), testRequest(t))
			if res != nil {
				t.Errorf("expected no result, got %v", res)
			}
			if !errors.Is(err, tt.is) {
				t.Fatalf("expected %v, got %v", tt.is, err)
			}
			if got := Message(err); got != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, got)
			}
		})
	}

	t.Run("service error carries status", func(t *testing.T) {
		srv := tu.NewScanBackend(t, &tu.ScanBackend{Status: http.StatusForbidden, Body: map[string]string{"error": "no access"}})

		_, err := NewScannerService(srv.URL, nil, nil).Scan(context.Background(), testRequest(t))

		var se *ServiceError
		if !errors.As(err, &se) {
			t.Fatalf("expected *ServiceError, got %T", err)
		}
		if se.StatusCode != http.StatusForbidden || se.Error() != "no access" {
			t.Errorf("unexpected service error %+v", se)
		}
	})

	t.Run("network error surfaces its message", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}

		_, err := NewScannerService("http://backend", client, nil).Scan(context.Background(), testRequest(t))
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Fatalf("expected ErrServiceUnavailable, got %v", err)
		}
		if msg := Message(err); msg == DefaultScanError || msg == "" {
			t.Errorf("expected transport message, got %q", msg)
		}
	})
}

func TestMessage(t *testing.T) {
	if Message(nil) != "" {
		t.Error("expected empty message for nil error")
	}
	if got := Message(errors.New("boom")); got != "boom" {
		t.Errorf("expected boom, got %q", got)
	}
}
