package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/facescan/internal/formatter"
	"github.com/desertthunder/facescan/internal/models"
	"github.com/desertthunder/facescan/internal/shared"
	"github.com/urfave/cli/v3"
)

// History lists recorded scans, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	switch status := models.ScanStatus(cmd.String("status")); status {
	case "":
	case models.ScanSucceeded, models.ScanFailed:
		criteria["status"] = status
	default:
		return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidFlag, status)
	}

	repo, done, err := r.openHistory()
	if err != nil {
		return err
	}
	defer done()
	if repo == nil {
		return fmt.Errorf("%w: scan history is disabled (database.path is empty)", shared.ErrMissingConfig)
	}

	records, err := repo.List(criteria)
	if err != nil {
		return err
	}
	entries := formatter.FromRecords(records)

	if cmd.Bool("json") {
		data, err := formatter.HistoryToJSON(entries)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	}
	return r.writeBytes(formatter.HistoryToText(entries))
}
