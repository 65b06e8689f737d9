package services

import (
	"context"

	"github.com/desertthunder/facescan/internal/auth"
)

// HealthChecker reports backend liveness.
type HealthChecker interface {
	// Health returns true only when the backend answered 2xx. It never returns an error.
	Health(ctx context.Context) bool
}

// Scanner submits a scan request and returns the matched images.
type Scanner interface {
	Scan(ctx context.Context, req ScanRequest) (*ScanResult, error)
}

// ScanService is the full backend contract used by the session controller.
type ScanService interface {
	HealthChecker
	Scanner
}

// ScanRequest is the body of POST /scan.
type ScanRequest struct {
	DriveLink      string          `json:"drive_link"`
	ReferenceImage string          `json:"reference_image"`
	Credentials    auth.Credential `json:"credentials"`
}

// ScanResult is the success body of POST /scan. Order is preserved as received.
type ScanResult struct {
	MatchingImages []string `json:"matching_images"`
}
