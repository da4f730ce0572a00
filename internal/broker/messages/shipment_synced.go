package messages

import "time"

// ShipmentSynced публикуется после успешной записи строки в Notion.
type ShipmentSynced struct {
	RunID          string    `json:"run_id"`
	RowID          string    `json:"row_id"`
	TrackingNumber string    `json:"tracking_number"`
	Carrier        string    `json:"carrier"`
	Status         string    `json:"status"`
	ETA            *string   `json:"eta,omitempty"`
	TrackingURL    *string   `json:"tracking_url,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
}
