package pgjournal

import (
	"context"
	"time"

	"github.com/BearBump/ShipSync/internal/models"
	"github.com/pkg/errors"
)

func (s *Storage) StartRun(ctx context.Context, runID, databaseID string, startedAt time.Time) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO sync_runs (id, database_id, started_at, status)
VALUES ($1, $2, $3, $4)
`, runID, databaseID, startedAt.UTC(), models.RunStatusRunning)
	if err != nil {
		return errors.Wrap(err, "insert sync run")
	}
	return nil
}

// FinishRun closes the run. runErr == nil marks it SUCCEEDED.
func (s *Storage) FinishRun(ctx context.Context, sum models.RunSummary, runErr error) error {
	status := models.RunStatusSucceeded
	var errText *string
	if runErr != nil {
		status = models.RunStatusFailed
		e := runErr.Error()
		errText = &e
	}

	tag, err := s.db.Exec(ctx, `
UPDATE sync_runs
SET
  finished_at = $2,
  status = $3,
  rows_total = $4,
  rows_synced = $5,
  rows_skipped = $6,
  registrations_ignored = $7,
  error = $8
WHERE id = $1
`, sum.RunID, sum.FinishedAt.UTC(), status, sum.Total, sum.Synced, sum.Skipped, sum.Ignored, errText)
	if err != nil {
		return errors.Wrap(err, "update sync run")
	}
	if tag.RowsAffected() == 0 {
		return errors.Errorf("sync run %s not found", sum.RunID)
	}
	return nil
}

func (s *Storage) ListRuns(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := s.db.Query(ctx, `
SELECT
  id, database_id, started_at, finished_at, status,
  rows_total, rows_synced, rows_skipped, registrations_ignored, error
FROM sync_runs
ORDER BY started_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select sync runs")
	}
	defer rows.Close()

	out := make([]*models.SyncRun, 0, limit)
	for rows.Next() {
		var r models.SyncRun
		if err := rows.Scan(
			&r.ID, &r.DatabaseID, &r.StartedAt, &r.FinishedAt, &r.Status,
			&r.RowsTotal, &r.RowsSynced, &r.RowsSkipped, &r.RegistrationsIgnored, &r.Error,
		); err != nil {
			return nil, errors.Wrap(err, "scan sync run")
		}
		out = append(out, &r)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
