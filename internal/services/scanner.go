package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/facescan/internal/shared"
)

const (
	HealthPath = "/health"
	ScanPath   = "/scan"

	// DefaultScanError is shown when a failed scan carries no server message.
	DefaultScanError = "Failed to scan images"
)

// ErrMalformedResponse marks a 2xx body that is not a scan result.
var ErrMalformedResponse = fmt.Errorf("%w: malformed scan response", shared.ErrAPIRequest)

// ServiceError is a non-2xx answer from the scan endpoint.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return shared.ErrAPIRequest
}

// ScannerService implements [ScanService] over [APIService].
type ScannerService struct {
	api    *APIService
	logger *log.Logger
}

var _ ScanService = (*ScannerService)(nil)

// NewScannerService creates a scanner for the backend at baseURL.
func NewScannerService(baseURL string, client *http.Client, logger *log.Logger) *ScannerService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ScannerService{api: NewAPIService(baseURL, client), logger: logger}
}

// Health probes GET /health once. Transport errors and non-2xx both mean unhealthy.
func (s *ScannerService) Health(ctx context.Context) bool {
	resp, err := s.api.Get(ctx, HealthPath)
	if err != nil {
		s.logger.Warn("health check failed", "url", s.api.BaseURL()+HealthPath, "err", err)
		return false
	}
	if !resp.OK() {
		s.logger.Warn("backend unhealthy", "url", s.api.BaseURL()+HealthPath, "status", resp.StatusCode)
		return false
	}
	s.logger.Debug("backend healthy", "status", resp.StatusCode)
	return true
}

// Scan sends req to POST /scan.
//
// Non-2xx answers become a [*ServiceError] carrying the body's "error" field, or [DefaultScanError] when absent.
func (s *ScannerService) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scan request: %w", err)
	}

	s.logger.Debug("sending scan request", "drive_link", req.DriveLink, "bytes", len(data))

	resp, err := s.api.Post(ctx, ScanPath, data)
	if err != nil {
		return nil, err
	}

	if !resp.OK() {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	var body struct {
		MatchingImages *[]string `json:"matching_images"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if body.MatchingImages == nil {
		return nil, fmt.Errorf("%w: missing matching_images", ErrMalformedResponse)
	}

	s.logger.Info("scan completed", "matches", len(*body.MatchingImages))
	return &ScanResult{MatchingImages: *body.MatchingImages}, nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return DefaultScanError
}

// Message returns the user-facing text for an error returned by [ScannerService.Scan].
func Message(err error) string {
	if err == nil {
		return ""
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Message
	}
	if errors.Is(err, ErrMalformedResponse) {
		return DefaultScanError
	}
	return err.Error()
}
