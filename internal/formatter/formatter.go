// package formatter renders scan results and scan history as JSON, CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/facescan/internal/models"
	"github.com/desertthunder/facescan/internal/session"
	"github.com/desertthunder/facescan/internal/shared"
)

// Format is an export format name as accepted on the command line.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "md"
	Text     Format = "text"
)

// Formats lists the accepted format names.
var Formats = []Format{JSON, CSV, Markdown, Text}

// ParseFormat accepts a format name case-insensitively ("markdown" and "txt" are aliases).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "md", "markdown":
		return Markdown, nil
	case "text", "txt", "":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// Report is the exportable outcome of one scan.
type Report struct {
	DriveLink string   `json:"drive_link"`
	Status    string   `json:"status"`
	Matches   []string `json:"matching_images"`
	Error     string   `json:"error,omitempty"`
}

// FromState builds a report from a finished session state.
func FromState(st session.State) Report {
	return Report{
		DriveLink: st.DriveLink,
		Status:    st.Status.String(),
		Matches:   append([]string{}, st.Results...),
		Error:     st.Error,
	}
}

// MatchLabel is the display name of the i-th (zero-based) match.
func MatchLabel(i int) string {
	return fmt.Sprintf("Match %d", i+1)
}

// ExportToJSON renders r as indented JSON.
func ExportToJSON(r Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV renders r with columns: Match, Image
func ExportToCSV(r Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Match", "Image"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, image := range r.Matches {
		if err := writer.Write([]string{MatchLabel(i), image}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders r as a Markdown document with one image per match
func ExportToMarkdown(r Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Face Drive Scanner\n\n")
	buf.WriteString(fmt.Sprintf("**Folder**: %s\n", r.DriveLink))
	buf.WriteString(fmt.Sprintf("**Status**: %s\n", r.Status))
	if r.Error != "" {
		buf.WriteString(fmt.Sprintf("**Error**: %s\n", r.Error))
	}
	buf.WriteString(fmt.Sprintf("**Matches**: %d\n\n", len(r.Matches)))

	buf.WriteString("## Matching Images\n\n")
	if len(r.Matches) == 0 && r.Error == "" {
		buf.WriteString(session.MsgNoMatches + "\n")
	}
	for i, image := range r.Matches {
		buf.WriteString(fmt.Sprintf("![%s](%s)\n", MatchLabel(i), image))
	}

	return buf.Bytes(), nil
}

// ExportToText renders r as plain text
func ExportToText(r Report) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Folder: %s\n", r.DriveLink))
	buf.WriteString(fmt.Sprintf("Status: %s\n", r.Status))
	if r.Error != "" {
		buf.WriteString(fmt.Sprintf("Error: %s\n", r.Error))
		return buf.Bytes(), nil
	}
	if len(r.Matches) == 0 {
		buf.WriteString(session.MsgNoMatches + "\n")
		return buf.Bytes(), nil
	}

	buf.WriteString(fmt.Sprintf("Matches: %d\n\n", len(r.Matches)))
	for i, image := range r.Matches {
		buf.WriteString(fmt.Sprintf("%s: %s\n", MatchLabel(i), image))
	}

	return buf.Bytes(), nil
}

// Export renders r in format f.
func Export(r Report, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return ExportToJSON(r)
	case CSV:
		return ExportToCSV(r)
	case Markdown:
		return ExportToMarkdown(r)
	case Text:
		return ExportToText(r)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, f)
	}
}

// WriteReport renders r in format f to w.
func WriteReport(w io.Writer, r Report, f Format) error {
	data, err := Export(r, f)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteReportFile renders r in format f to path.
func WriteReportFile(path string, r Report, f Format) error {
	data, err := Export(r, f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

// HistoryEntry is the exportable form of a stored scan.
type HistoryEntry struct {
	ID          string    `json:"id"`
	Sequence    int       `json:"sequence"`
	DriveLink   string    `json:"drive_link"`
	Status      string    `json:"status"`
	MatchCount  int       `json:"match_count"`
	Matches     []string  `json:"matching_images"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// FromRecords converts stored scans to history entries, keeping their order.
func FromRecords(records []*models.ScanRecord) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, HistoryEntry{
			ID:          r.ID(),
			Sequence:    r.Sequence(),
			DriveLink:   r.DriveLink(),
			Status:      string(r.Status()),
			MatchCount:  r.MatchCount(),
			Matches:     append([]string{}, r.Matches()...),
			Error:       r.ErrorMessage(),
			StartedAt:   r.StartedAt(),
			CompletedAt: r.CompletedAt(),
		})
	}
	return entries
}

// HistoryToJSON renders entries as an indented JSON array.
func HistoryToJSON(entries []HistoryEntry) ([]byte, error) {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return append(data, '\n'), nil
}

// HistoryToText renders entries as one line per scan.
func HistoryToText(entries []HistoryEntry) []byte {
	var buf bytes.Buffer
	if len(entries) == 0 {
		buf.WriteString("No scans recorded\n")
		return buf.Bytes()
	}

	for _, e := range entries {
		outcome := fmt.Sprintf("%d matches", e.MatchCount)
		if e.Error != "" {
			outcome = e.Error
		}
		buf.WriteString(fmt.Sprintf("#%-4d %s  %-7s  %s  %s\n",
			e.Sequence,
			e.StartedAt.Local().Format(time.DateTime),
			e.Status,
			shared.Truncate(e.DriveLink, 60),
			outcome,
		))
	}
	return buf.Bytes()
}
