package models

import "time"

// Имена колонок в базе Notion. Совпадают с заголовками столбцов один в один.
const (
	FieldTrackingNumber = "Tracking Number"
	FieldCarrier        = "Carrier"

	FieldShipmentStatus = "Shipment Status"
	FieldLastChecked    = "Last Checked"
	FieldETA            = "ETA"
	FieldTrackingURL    = "Tracking URL"
)

const (
	// DefaultCarrierSlug is used when the Carrier column is empty.
	DefaultCarrierSlug = "tnt"

	// StatusInTransit is written when the provider returns no tag.
	StatusInTransit = "In Transit"
)

type TrackingQuery struct {
	Slug           string
	TrackingNumber string
}

type TrackingResult struct {
	Status string
	ETA    *string
	URL    *string
}

// Итог обработки одной строки.
const (
	RowOutcomeSynced  = "synced"
	RowOutcomeSkipped = "skipped"
	RowOutcomeFailed  = "failed"
)

type RowOutcome struct {
	RowID          string
	TrackingNumber string
	Carrier        string
	Outcome        string
	Status         string
	// RegisterIgnored is true when the best-effort registration did not go through.
	RegisterIgnored bool
}

type RunSummary struct {
	RunID      string
	DatabaseID string
	StartedAt  time.Time
	FinishedAt time.Time

	Total   int
	Synced  int
	Skipped int
	Ignored int
}

func (s *RunSummary) Add(o RowOutcome) {
	s.Total++
	switch o.Outcome {
	case RowOutcomeSynced:
		s.Synced++
	case RowOutcomeSkipped:
		s.Skipped++
	}
	if o.RegisterIgnored {
		s.Ignored++
	}
}

// Статусы записей журнала запусков.
const (
	RunStatusRunning   = "RUNNING"
	RunStatusSucceeded = "SUCCEEDED"
	RunStatusFailed    = "FAILED"
)

type SyncRun struct {
	ID                   string     `json:"id"`
	DatabaseID           string     `json:"databaseId"`
	StartedAt            time.Time  `json:"startedAt"`
	FinishedAt           *time.Time `json:"finishedAt,omitempty"`
	Status               string     `json:"status"`
	RowsTotal            int        `json:"rowsTotal"`
	RowsSynced           int        `json:"rowsSynced"`
	RowsSkipped          int        `json:"rowsSkipped"`
	RegistrationsIgnored int        `json:"registrationsIgnored"`
	Error                *string    `json:"error,omitempty"`
}
