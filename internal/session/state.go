package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/facescan/internal/auth"
	"github.com/desertthunder/facescan/internal/images"
	"github.com/desertthunder/facescan/internal/shared"
)

// Status is the position of a session in the scan lifecycle.
type Status int

const (
	Idle Status = iota
	Validating
	InFlight
	Success
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case InFlight:
		return "in_flight"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// User-facing messages.
const (
	MsgMissingFields = "Please provide all required information"
	MsgInvalidLink   = "Please enter a valid Google Drive folder link"
	MsgAuthFailed    = "Google authentication failed"
	MsgBackendDown   = "Warning: Backend service is not responding"
	MsgNoMatches     = "No matching images found"
)

const (
	// DriveHost must appear somewhere in the drive link.
	DriveHost = "drive.google.com"

	CompleteProgress   = 100
	IncompleteProgress = 0
)

var (
	ErrMissingLink       = fmt.Errorf("%w: drive link is required", shared.ErrInvalidInput)
	ErrInvalidLink       = fmt.Errorf("%w: not a google drive link", shared.ErrInvalidInput)
	ErrMissingImage      = fmt.Errorf("%w: reference image is required", shared.ErrInvalidInput)
	ErrMissingCredential = fmt.Errorf("%w: google sign-in is required", shared.ErrInvalidInput)

	ErrScanInFlight       = errors.New("scan already in progress")
	ErrBackendUnavailable = fmt.Errorf("%w: backend is not responding", shared.ErrServiceUnavailable)
)

// ValidationError is a user-correctable problem found before any network call.
type ValidationError struct {
	Kind    error
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Kind }

// State is a snapshot of one scan session.
//
// Results is non-empty only in Success. Error is set only in Failed, or in Idle after an input or validation error.
type State struct {
	DriveLink      string
	Image          images.Encoded
	Credential     auth.Credential
	Results        []string
	Status         Status
	Error          string
	BackendHealthy bool
	Progress       int
}

// NewState returns the startup state: idle, empty, and unhealthy until a probe says otherwise.
func NewState() State {
	return State{Status: Idle}
}

// CanScan reports whether a trigger would be accepted (the scan button is enabled).
func (s State) CanScan() bool {
	return s.BackendHealthy && s.Status != InFlight
}

// HasImage reports whether a reference image is held.
func (s State) HasImage() bool { return !s.Image.IsZero() }

// HasCredential reports whether a credential is held.
func (s State) HasCredential() bool { return !s.Credential.IsZero() }

// NoMatches reports whether the "No matching images found" notice applies: not scanning, no results, no error.
func (s State) NoMatches() bool {
	return s.Status != InFlight && len(s.Results) == 0 && s.Error == ""
}

// WithHealth records the probe result.
func (s State) WithHealth(healthy bool) State {
	s.BackendHealthy = healthy
	return s
}

// WithDriveLink replaces the drive link as typed.
func (s State) WithDriveLink(link string) State {
	s.DriveLink = link
	return s
}

// WithImage stores a validated image and clears any error.
func (s State) WithImage(img images.Encoded) State {
	s.Image = img
	return s.cleared()
}

// WithCredential stores a credential and clears any error.
func (s State) WithCredential(c auth.Credential) State {
	s.Credential = c
	return s.cleared()
}

// WithInputError returns to Idle showing msg. Previous inputs are kept.
func (s State) WithInputError(msg string) State {
	s.Status = Idle
	s.Error = msg
	s.Results = nil
	s.Progress = IncompleteProgress
	return s
}

// Validate moves through Validating and returns either the InFlight state or Idle with the validation error.
func (s State) Validate() (State, error) {
	s.Status = Validating
	if err := s.validate(); err != nil {
		var verr *ValidationError
		errors.As(err, &verr)
		return s.WithInputError(verr.Message), err
	}

	s.Status = InFlight
	s.Error = ""
	s.Results = nil
	s.Progress = IncompleteProgress
	return s, nil
}

func (s State) validate() error {
	switch {
	case s.DriveLink == "":
		return &ValidationError{Kind: ErrMissingLink, Message: MsgMissingFields}
	case !strings.Contains(s.DriveLink, DriveHost):
		return &ValidationError{Kind: ErrInvalidLink, Message: MsgInvalidLink}
	case !s.HasImage():
		return &ValidationError{Kind: ErrMissingImage, Message: MsgMissingFields}
	case !s.HasCredential():
		return &ValidationError{Kind: ErrMissingCredential, Message: MsgMissingFields}
	}
	return nil
}

// Succeed ends an in-flight scan with the given matches.
func (s State) Succeed(matches []string) State {
	s.Status = Success
	s.Results = append([]string(nil), matches...)
	s.Error = ""
	s.Progress = CompleteProgress
	return s
}

// Fail ends an in-flight scan with msg.
func (s State) Fail(msg string) State {
	s.Status = Failed
	s.Results = nil
	s.Error = msg
	return s
}

func (s State) cleared() State {
	s.Error = ""
	if s.Status == Failed {
		s.Status = Idle
	}
	return s
}

func (s State) clone() State {
	s.Results = append([]string(nil), s.Results...)
	return s
}
