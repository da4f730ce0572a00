package pgjournal

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS sync_runs (
  id TEXT PRIMARY KEY,
  database_id TEXT NOT NULL,
  started_at TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NULL,
  status TEXT NOT NULL,
  rows_total INT NOT NULL DEFAULT 0,
  rows_synced INT NOT NULL DEFAULT 0,
  rows_skipped INT NOT NULL DEFAULT 0,
  registrations_ignored INT NOT NULL DEFAULT 0,
  error TEXT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs(started_at DESC)`,
		// Запуски, оборванные падением процесса, не должны висеть в RUNNING вечно.
		`
UPDATE sync_runs
SET status = 'FAILED', error = 'interrupted', finished_at = now()
WHERE status = 'RUNNING' AND started_at < now() - interval '1 day'
`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
