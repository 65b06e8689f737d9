package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/facescan/internal/shared"
)

// ScanStatus is the stored outcome of a finished scan.
type ScanStatus string

const (
	ScanSucceeded ScanStatus = "success"
	ScanFailed    ScanStatus = "failed"
)

// ScanRecord is one finished scan attempt. The reference image and credential are never part of it.
type ScanRecord struct {
	id           string
	sequence     int
	driveLink    string
	status       ScanStatus
	matches      []string
	errorMessage string
	startedAt    time.Time
	completedAt  time.Time
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

var _ Model = (*ScanRecord)(nil)

// NewScanRecord creates an unsaved record.
func NewScanRecord(driveLink string, status ScanStatus, matches []string, errorMessage string, startedAt, completedAt time.Time) *ScanRecord {
	now := time.Now()
	return &ScanRecord{
		driveLink:    driveLink,
		status:       status,
		matches:      append([]string(nil), matches...),
		errorMessage: errorMessage,
		startedAt:    startedAt,
		completedAt:  completedAt,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (s *ScanRecord) ID() string             { return s.id }
func (s *ScanRecord) Sequence() int          { return s.sequence }
func (s *ScanRecord) DriveLink() string      { return s.driveLink }
func (s *ScanRecord) Status() ScanStatus     { return s.status }
func (s *ScanRecord) Matches() []string      { return append([]string(nil), s.matches...) }
func (s *ScanRecord) MatchCount() int        { return len(s.matches) }
func (s *ScanRecord) ErrorMessage() string   { return s.errorMessage }
func (s *ScanRecord) StartedAt() time.Time   { return s.startedAt }
func (s *ScanRecord) CompletedAt() time.Time { return s.completedAt }
func (s *ScanRecord) CreatedAt() time.Time   { return s.createdAt }
func (s *ScanRecord) UpdatedAt() time.Time   { return s.updatedAt }
func (s *ScanRecord) DeletedAt() *time.Time  { return s.deletedAt }

// Duration is how long the request took.
func (s *ScanRecord) Duration() time.Duration { return s.completedAt.Sub(s.startedAt) }

func (s *ScanRecord) SetID(id string)             { s.id = id }
func (s *ScanRecord) SetSequence(seq int)         { s.sequence = seq }
func (s *ScanRecord) SetMatches(m []string)       { s.matches = append([]string(nil), m...) }
func (s *ScanRecord) SetCreatedAt(t time.Time)    { s.createdAt = t }
func (s *ScanRecord) SetUpdatedAt(t time.Time)    { s.updatedAt = t }
func (s *ScanRecord) SetDeletedAt(t *time.Time)   { s.deletedAt = t }
func (s *ScanRecord) SetErrorMessage(msg string)  { s.errorMessage = msg }
func (s *ScanRecord) SetStatus(status ScanStatus) { s.status = status }
func (s *ScanRecord) SetCompletedAt(t time.Time)  { s.completedAt = t }

// Validate checks required fields and the success/failure invariants.
func (s *ScanRecord) Validate() error {
	if s.driveLink == "" {
		return fmt.Errorf("%w: drive link is required", shared.ErrInvalidInput)
	}
	switch s.status {
	case ScanSucceeded:
		if s.errorMessage != "" {
			return fmt.Errorf("%w: successful scan cannot carry an error", shared.ErrInvalidInput)
		}
	case ScanFailed:
		if len(s.matches) > 0 {
			return fmt.Errorf("%w: failed scan cannot carry matches", shared.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown scan status %q", shared.ErrInvalidInput, s.status)
	}
	if s.completedAt.Before(s.startedAt) {
		return fmt.Errorf("%w: scan completed before it started", shared.ErrInvalidInput)
	}
	return nil
}
