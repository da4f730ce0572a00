package notion

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/BearBump/ShipSync/internal/models"
	"github.com/jomei/notionapi"
)

// PlainText flattens a typed property into a plain string.
// Unknown or missing properties yield "".
func PlainText(p notionapi.Property) string {
	switch v := p.(type) {
	case *notionapi.TitleProperty:
		if v == nil {
			return ""
		}
		return joinRichText(v.Title)
	case notionapi.TitleProperty:
		return joinRichText(v.Title)
	case *notionapi.RichTextProperty:
		if v == nil {
			return ""
		}
		return joinRichText(v.RichText)
	case notionapi.RichTextProperty:
		return joinRichText(v.RichText)
	case *notionapi.URLProperty:
		if v == nil {
			return ""
		}
		return v.URL
	case notionapi.URLProperty:
		return v.URL
	case *notionapi.StatusProperty:
		if v == nil {
			return ""
		}
		return v.Status.Name
	case notionapi.StatusProperty:
		return v.Status.Name
	case *notionapi.SelectProperty:
		if v == nil {
			return ""
		}
		return v.Select.Name
	case notionapi.SelectProperty:
		return v.Select.Name
	default:
		return ""
	}
}

func joinRichText(spans []notionapi.RichText) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.PlainText)
	}
	return b.String()
}

// Field returns the plain text of a named column.
func (r Row) Field(name string) string {
	if r.Properties == nil {
		return ""
	}
	return PlainText(r.Properties[name])
}

// Query extracts the tracking pair from the row, falling back to defaultCarrier.
func (r Row) Query(defaultCarrier string) models.TrackingQuery {
	carrier := r.Field(models.FieldCarrier)
	if carrier == "" {
		carrier = defaultCarrier
	}
	return models.TrackingQuery{
		Slug:           carrier,
		TrackingNumber: r.Field(models.FieldTrackingNumber),
	}
}

// RawDateProperty writes a date property with start passed through verbatim.
type RawDateProperty struct {
	ID    notionapi.ObjectID
	Start string
}

func (p RawDateProperty) GetID() string {
	return p.ID.String()
}

func (p RawDateProperty) GetType() notionapi.PropertyType {
	return notionapi.PropertyTypeDate
}

func (p RawDateProperty) MarshalJSON() ([]byte, error) {
	type rawDate struct {
		Start string `json:"start"`
	}
	return json.Marshal(struct {
		Type notionapi.PropertyType `json:"type"`
		Date rawDate                `json:"date"`
	}{
		Type: notionapi.PropertyTypeDate,
		Date: rawDate{Start: p.Start},
	})
}

func StatusValue(name string) notionapi.StatusProperty {
	return notionapi.StatusProperty{
		Type:   notionapi.PropertyTypeStatus,
		Status: notionapi.Status{Name: name},
	}
}

func DateValue(d notionapi.Date) notionapi.DateProperty {
	return notionapi.DateProperty{
		Type: notionapi.PropertyTypeDate,
		Date: &notionapi.DateObject{Start: &d},
	}
}

func URLValue(u string) notionapi.URLProperty {
	return notionapi.URLProperty{
		Type: notionapi.PropertyTypeURL,
		URL:  u,
	}
}

// BuildUpdate maps a tracking result onto the row's write schema.
// ETA goes out exactly as the provider sent it.
func BuildUpdate(res models.TrackingResult, checkedAt time.Time) notionapi.Properties {
	props := notionapi.Properties{
		models.FieldShipmentStatus: StatusValue(res.Status),
		models.FieldLastChecked:    DateValue(notionapi.Date(checkedAt.UTC())),
	}
	if res.ETA != nil && *res.ETA != "" {
		props[models.FieldETA] = RawDateProperty{Start: *res.ETA}
	}
	if res.URL != nil && *res.URL != "" {
		props[models.FieldTrackingURL] = URLValue(*res.URL)
	}
	return props
}
