package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/facescan/internal/models"
	"github.com/desertthunder/facescan/internal/shared"
)

// DefaultListLimit caps List when no limit criterion is given.
const DefaultListLimit = 20

// ScanRepository implements [models.Repository] for [models.ScanRecord] persistence.
type ScanRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.ScanRecord] = (*ScanRepository)(nil)

// NewScanRepository creates a new [ScanRepository] with the given database connection
func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// Create inserts a scan and its matches with a generated ID and sequence
func (r *ScanRepository) Create(scan *models.ScanRecord) error {
	if err := scan.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "scans")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO scans (id, sequence, drive_link, status, match_count, error_message, started_at, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(query, id, sequence, scan.DriveLink(), string(scan.Status()), scan.MatchCount(),
		nullString(scan.ErrorMessage()), scan.StartedAt(), scan.CompletedAt(), scan.CreatedAt(), scan.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}

	if err := insertMatches(tx, id, scan.Matches()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scan: %w", err)
	}

	scan.SetID(id)
	scan.SetSequence(sequence)
	return nil
}

// Get retrieves a scan by ID with its matches, excluding soft-deleted scans
func (r *ScanRepository) Get(id string) (*models.ScanRecord, error) {
	query := `
		SELECT id, sequence, drive_link, status, error_message, started_at, completed_at, created_at, updated_at, deleted_at
		FROM scans
		WHERE id = ? AND deleted_at IS NULL
	`

	scan, err := scanRecord(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("scan not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query scan: %w", err)
	}

	matches, err := r.matches(scan.ID())
	if err != nil {
		return nil, err
	}
	scan.SetMatches(matches)

	return scan, nil
}

// Update rewrites the outcome of an existing scan and replaces its matches
func (r *ScanRepository) Update(scan *models.ScanRecord) error {
	if err := scan.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE scans
		SET status = ?, match_count = ?, error_message = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := tx.Exec(query, string(scan.Status()), scan.MatchCount(), nullString(scan.ErrorMessage()),
		scan.CompletedAt(), now, scan.ID())
	if err != nil {
		return fmt.Errorf("failed to update scan: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("scan not found or already deleted: %s", scan.ID())
	}

	if _, err := tx.Exec("DELETE FROM scan_matches WHERE scan_id = ?", scan.ID()); err != nil {
		return fmt.Errorf("failed to clear matches: %w", err)
	}
	if err := insertMatches(tx, scan.ID(), scan.Matches()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scan: %w", err)
	}

	scan.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes a scan by ID
func (r *ScanRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE scans
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete scan: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("scan not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves the most recent scans, newest first, excluding soft-deleted scans.
//
// Supported criteria: "status" ([models.ScanStatus] or string) and "limit" (int, default [DefaultListLimit]).
func (r *ScanRepository) List(criteria map[string]any) ([]*models.ScanRecord, error) {
	query := `
		SELECT id, sequence, drive_link, status, error_message, started_at, completed_at, created_at, updated_at, deleted_at
		FROM scans
		WHERE deleted_at IS NULL
	`

	args := []any{}

	switch status := criteria["status"].(type) {
	case models.ScanStatus:
		query += " AND status = ?"
		args = append(args, string(status))
	case string:
		if status != "" {
			query += " AND status = ?"
			args = append(args, status)
		}
	}

	limit := DefaultListLimit
	if l, ok := criteria["limit"].(int); ok && l > 0 {
		limit = l
	}
	query += " ORDER BY sequence DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}

	var scans []*models.ScanRecord
	for rows.Next() {
		scan, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scans = append(scans, scan)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for _, scan := range scans {
		matches, err := r.matches(scan.ID())
		if err != nil {
			return nil, err
		}
		scan.SetMatches(matches)
	}

	return scans, nil
}

func (r *ScanRepository) matches(scanID string) ([]string, error) {
	rows, err := r.db.Query("SELECT image_url FROM scan_matches WHERE scan_id = ? ORDER BY position ASC", scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return matches, nil
}

func insertMatches(tx *sql.Tx, scanID string, matches []string) error {
	for i, url := range matches {
		if _, err := tx.Exec("INSERT INTO scan_matches (scan_id, position, image_url) VALUES (?, ?, ?)", scanID, i, url); err != nil {
			return fmt.Errorf("failed to insert match: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.ScanRecord, error) {
	var (
		id           string
		sequence     int
		driveLink    string
		status       string
		errorMessage sql.NullString
		startedAt    time.Time
		completedAt  time.Time
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := row.Scan(&id, &sequence, &driveLink, &status, &errorMessage, &startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	scan := models.NewScanRecord(driveLink, models.ScanStatus(status), nil, errorMessage.String, startedAt, completedAt)
	scan.SetID(id)
	scan.SetSequence(sequence)
	scan.SetCreatedAt(createdAt)
	scan.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		scan.SetDeletedAt(&deletedAt.Time)
	}
	return scan, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
