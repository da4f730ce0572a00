package syncer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/ShipSync/internal/metrics"
	"github.com/BearBump/ShipSync/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrRunInProgress = errors.New("sync run already in progress")

type Journal interface {
	StartRun(ctx context.Context, runID, databaseID string, startedAt time.Time) error
	FinishRun(ctx context.Context, sum models.RunSummary, runErr error) error
}

type Locker interface {
	Acquire(ctx context.Context, key, owner string) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

// Runner wraps one Synchronizer pass with locking, journaling and metrics,
// and repeats it on an interval in serve mode.
type Runner struct {
	syncer     *Synchronizer
	databaseID string

	journal Journal
	lock    Locker
	metrics *metrics.SyncMetrics

	interval time.Duration

	newID func() string
	now   func() time.Time

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastRunUnixNano     atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalRuns           atomic.Int64
	failedRuns          atomic.Int64
	totalRowsSynced     atomic.Int64
	running             atomic.Bool
	lastMu              sync.Mutex
	lastRunID           string
	lastError           string
}

func NewRunner(s *Synchronizer, databaseID string) *Runner {
	return &Runner{
		syncer:            s,
		databaseID:        databaseID,
		interval:          15 * time.Minute,
		newID:             func() string { return uuid.NewString() },
		now:               time.Now,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (r *Runner) WithJournal(j Journal) *Runner {
	r.journal = j
	return r
}

func (r *Runner) WithLock(l Locker) *Runner {
	r.lock = l
	return r
}

func (r *Runner) WithMetrics(m *metrics.SyncMetrics) *Runner {
	r.metrics = m
	return r
}

func (r *Runner) WithInterval(d time.Duration) *Runner {
	if d > 0 {
		r.interval = d
	}
	return r
}

func (r *Runner) lockKey() string {
	return "shipsync:lock:" + r.databaseID
}

// RunOnce performs a single all-or-nothing sync pass.
func (r *Runner) RunOnce(ctx context.Context) (models.RunSummary, error) {
	runID := r.newID()
	started := r.now().UTC()

	if r.lock != nil {
		ok, err := r.lock.Acquire(ctx, r.lockKey(), runID)
		if err != nil {
			return models.RunSummary{RunID: runID, DatabaseID: r.databaseID}, err
		}
		if !ok {
			return models.RunSummary{RunID: runID, DatabaseID: r.databaseID}, ErrRunInProgress
		}
		defer func() {
			if err := r.lock.Release(context.WithoutCancel(ctx), r.lockKey(), runID); err != nil {
				slog.Warn("release run lock", "run_id", runID, "error", err.Error())
			}
		}()
	}

	r.running.Store(true)
	defer r.running.Store(false)

	slog.Info("sync run started", "run_id", runID, "database_id", r.databaseID)
	if r.journal != nil {
		if err := r.journal.StartRun(ctx, runID, r.databaseID, started); err != nil {
			slog.Warn("journal start run", "run_id", runID, "error", err.Error())
		}
	}

	sum, runErr := r.syncer.SyncAll(ctx, runID, r.databaseID)
	sum.RunID = runID
	sum.DatabaseID = r.databaseID
	sum.StartedAt = started
	sum.FinishedAt = r.now().UTC()

	if r.journal != nil {
		if err := r.journal.FinishRun(context.WithoutCancel(ctx), sum, runErr); err != nil {
			slog.Warn("journal finish run", "run_id", runID, "error", err.Error())
		}
	}
	r.metrics.RecordRun(sum.FinishedAt.Sub(started), sum.FinishedAt, runErr == nil)
	r.record(sum, runErr)

	if runErr != nil {
		slog.Error("sync run failed", "run_id", runID, "rows_done", sum.Total, "error", runErr.Error())
		return sum, runErr
	}
	slog.Info("sync run finished", "run_id", runID,
		"rows", sum.Total, "synced", sum.Synced, "skipped", sum.Skipped, "register_ignored", sum.Ignored,
		"duration", sum.FinishedAt.Sub(started).String())
	return sum, nil
}

func (r *Runner) record(sum models.RunSummary, err error) {
	r.lastRunUnixNano.Store(sum.FinishedAt.UnixNano())
	r.totalRuns.Add(1)
	r.totalRowsSynced.Add(int64(sum.Synced))
	if err != nil {
		r.failedRuns.Add(1)
	}
	r.lastMu.Lock()
	r.lastRunID = sum.RunID
	if err != nil {
		r.lastError = err.Error()
	} else {
		r.lastError = ""
	}
	r.lastMu.Unlock()
}

// Run syncs immediately, then on every tick or Trigger until ctx is done.
// A failed pass is logged and the loop waits for the next tick.
func (r *Runner) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	r.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.runLogged(ctx)
		case <-r.triggerCh:
			r.runLogged(ctx)
		}
	}
}

func (r *Runner) runLogged(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_, err := r.RunOnce(ctx)
	if errors.Is(err, ErrRunInProgress) {
		slog.Info("sync run skipped: another run holds the lock", "database_id", r.databaseID)
	}
}

// Trigger forces an immediate run (best-effort, non-blocking).
func (r *Runner) Trigger() {
	r.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt       time.Time  `json:"startedAt"`
	LastRunAt       *time.Time `json:"lastRunAt,omitempty"`
	LastTriggerAt   *time.Time `json:"lastTriggerAt,omitempty"`
	LastRunID       string     `json:"lastRunId,omitempty"`
	TotalRuns       int64      `json:"totalRuns"`
	FailedRuns      int64      `json:"failedRuns"`
	TotalRowsSynced int64      `json:"totalRowsSynced"`
	Running         bool       `json:"running"`
	LastError       string     `json:"lastError,omitempty"`
}

func (r *Runner) Stats() Stats {
	st := Stats{
		StartedAt:       time.Unix(0, r.startedAtUnixNano).UTC(),
		TotalRuns:       r.totalRuns.Load(),
		FailedRuns:      r.failedRuns.Load(),
		TotalRowsSynced: r.totalRowsSynced.Load(),
		Running:         r.running.Load(),
	}
	if n := r.lastRunUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastRunAt = &t
	}
	if n := r.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	r.lastMu.Lock()
	st.LastRunID = r.lastRunID
	st.LastError = r.lastError
	r.lastMu.Unlock()
	return st
}
