package syncer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/BearBump/ShipSync/internal/broker/messages"
	"github.com/BearBump/ShipSync/internal/cache/rediscache"
	"github.com/BearBump/ShipSync/internal/integrations/tracker"
	"github.com/BearBump/ShipSync/internal/metrics"
	"github.com/BearBump/ShipSync/internal/models"
	"github.com/BearBump/ShipSync/internal/notion"
	"github.com/jomei/notionapi"
	"github.com/pkg/errors"
)

type RowStore interface {
	RowQuerier
	UpdateRow(ctx context.Context, rowID string, props notionapi.Properties) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

const rateLimitPause = 500 * time.Millisecond

// Synchronizer reconciles rows with the tracking provider, one row at a time.
type Synchronizer struct {
	store    RowStore
	provider tracker.Client
	producer Producer
	rl       RateLimiter
	metrics  *metrics.SyncMetrics

	topic              string
	defaultCarrier     string
	rateLimitPerMinute int64
	dryRun             bool

	now   func() time.Time
	pause func(ctx context.Context, d time.Duration)
}

func New(store RowStore, provider tracker.Client, defaultCarrier string) *Synchronizer {
	if defaultCarrier == "" {
		defaultCarrier = models.DefaultCarrierSlug
	}
	return &Synchronizer{
		store:          store,
		provider:       provider,
		defaultCarrier: defaultCarrier,
		now:            time.Now,
		pause:          sleepCtx,
	}
}

func (s *Synchronizer) WithProducer(p Producer, topic string) *Synchronizer {
	s.producer = p
	s.topic = topic
	return s
}

func (s *Synchronizer) WithRateLimiter(rl RateLimiter, perMinute int64) *Synchronizer {
	s.rl = rl
	s.rateLimitPerMinute = perMinute
	return s
}

func (s *Synchronizer) WithMetrics(m *metrics.SyncMetrics) *Synchronizer {
	s.metrics = m
	return s
}

// WithDryRun keeps the provider calls but skips the write and the event.
func (s *Synchronizer) WithDryRun(dryRun bool) *Synchronizer {
	s.dryRun = dryRun
	return s
}

func (s *Synchronizer) WithClock(now func() time.Time) *Synchronizer {
	if now != nil {
		s.now = now
	}
	return s
}

// SyncAll fetches every row and syncs them in order. The first fatal error
// stops the run; the summary covers the rows handled before it.
func (s *Synchronizer) SyncAll(ctx context.Context, runID, databaseID string) (models.RunSummary, error) {
	sum := models.RunSummary{RunID: runID, DatabaseID: databaseID}

	rows, err := FetchAllRows(ctx, s.store, databaseID)
	if err != nil {
		return sum, err
	}
	slog.Info("rows fetched", "run_id", runID, "database_id", databaseID, "count", len(rows))

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		out, err := s.SyncRow(ctx, runID, row)
		if err != nil {
			s.metrics.RecordRow(models.RowOutcomeFailed)
			return sum, err
		}
		s.metrics.RecordRow(out.Outcome)
		sum.Add(out)
	}
	return sum, nil
}

func (s *Synchronizer) SyncRow(ctx context.Context, runID string, row notion.Row) (models.RowOutcome, error) {
	q := row.Query(s.defaultCarrier)
	out := models.RowOutcome{RowID: row.ID, TrackingNumber: q.TrackingNumber, Carrier: q.Slug}

	if q.TrackingNumber == "" {
		out.Outcome = models.RowOutcomeSkipped
		slog.Debug("row skipped: no tracking number", "run_id", runID, "row_id", row.ID)
		return out, nil
	}

	s.throttle(ctx)

	reg := s.provider.Register(ctx, q)
	if reg.IsIgnored() {
		out.RegisterIgnored = true
		slog.Debug("register ignored", "tracking_number", q.TrackingNumber, "carrier", q.Slug, "reason", reg.Reason)
	}

	res, err := s.provider.GetTracking(ctx, q)
	if err != nil {
		return out, errors.Wrapf(err, "get tracking %s/%s", q.Slug, q.TrackingNumber)
	}

	checkedAt := s.now().UTC()
	props := notion.BuildUpdate(res, checkedAt)

	out.Status = res.Status
	out.Outcome = models.RowOutcomeSynced

	if s.dryRun {
		slog.Info("dry run: update not written", "run_id", runID, "row_id", row.ID, "tracking_number", q.TrackingNumber, "status", res.Status, "fields", len(props))
		return out, nil
	}

	if err := s.store.UpdateRow(ctx, row.ID, props); err != nil {
		return out, errors.Wrapf(err, "update row %s", row.ID)
	}

	slog.Info("row synced", "run_id", runID, "tracking_number", q.TrackingNumber, "status", res.Status)
	s.publish(ctx, messages.ShipmentSynced{
		RunID:          runID,
		RowID:          row.ID,
		TrackingNumber: q.TrackingNumber,
		Carrier:        q.Slug,
		Status:         res.Status,
		ETA:            res.ETA,
		TrackingURL:    res.URL,
		CheckedAt:      checkedAt,
	})
	return out, nil
}

// throttle is best-effort: a limiter outage is logged and the row proceeds.
func (s *Synchronizer) throttle(ctx context.Context) {
	if s.rl == nil || s.rateLimitPerMinute <= 0 {
		return
	}
	key := rediscache.MinuteKey("aftership", s.now())
	allowed, n, err := s.rl.Allow(ctx, key, s.rateLimitPerMinute, 70*time.Second)
	if err != nil {
		slog.Warn("rate limiter unavailable", "provider", "aftership", "error", err.Error())
		return
	}
	if !allowed {
		// Лимит минуты исчерпан: немного притормозим, чтобы не долбить провайдера.
		slog.Warn("rate limit exceeded", "provider", "aftership", "count", n)
		s.pause(ctx, rateLimitPause)
	}
}

// publish is best-effort: the row is already written when it runs.
func (s *Synchronizer) publish(ctx context.Context, msg messages.ShipmentSynced) {
	if s.producer == nil {
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Warn("marshal shipment event", "error", err.Error())
		return
	}
	if err := s.producer.Publish(ctx, s.topic, []byte(msg.RowID), b); err != nil {
		slog.Warn("publish shipment event", "row_id", msg.RowID, "error", err.Error())
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
