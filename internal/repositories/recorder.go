package repositories

import (
	"context"

	"github.com/desertthunder/facescan/internal/models"
	"github.com/desertthunder/facescan/internal/session"
)

// Recorder stores finished scans from a [session.Controller].
type Recorder struct {
	repo *ScanRepository
}

var _ session.Recorder = (*Recorder)(nil)

// NewRecorder wraps repo as a [session.Recorder].
func NewRecorder(repo *ScanRepository) *Recorder {
	return &Recorder{repo: repo}
}

// Record persists a. Attempts that did not finish (neither Success nor Failed) are skipped.
func (r *Recorder) Record(_ context.Context, a session.Attempt) error {
	var status models.ScanStatus
	switch a.Status {
	case session.Success:
		status = models.ScanSucceeded
	case session.Failed:
		status = models.ScanFailed
	default:
		return nil
	}
	return r.repo.Create(models.NewScanRecord(a.DriveLink, status, a.Matches, a.Error, a.StartedAt, a.CompletedAt))
}
