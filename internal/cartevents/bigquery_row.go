package cartevents

import (
	"cloud.google.com/go/bigquery"

	"github.com/nhannt26/e-commerce-website-v3/pkg/db/models"
)

// bigQueryRow flattens a cart event into BigQuery column values.
type bigQueryRow struct {
	event models.CartEvent
}

func (r bigQueryRow) Save() (map[string]bigquery.Value, string, error) {
	row := map[string]bigquery.Value{
		"id":         r.event.ID.String(),
		"cart_id":    r.event.CartID.String(),
		"event_type": string(r.event.EventType),
		"created_at": r.event.CreatedAt,
	}
	if r.event.UserID != nil {
		row["user_id"] = r.event.UserID.String()
	}
	if r.event.SessionID != nil {
		row["session_id"] = *r.event.SessionID
	}
	if r.event.ProductID != nil {
		row["product_id"] = r.event.ProductID.String()
	}
	if r.event.Quantity != nil {
		row["quantity"] = *r.event.Quantity
	}
	if r.event.Price != nil {
		row["price"] = r.event.Price.String()
	}
	return row, r.event.ID.String(), nil
}
