// Package events defines the payloads published for downstream consumers and
// the live feed.
package events

import (
	"time"

	"example.com/dealroom/internal/domain"
)

// ActivityRecorded carries the full activity row so live subscribers can
// append it without a reconciliation read.
type ActivityRecorded struct {
	ActivityID   string          `json:"activity_id"`
	TenantID     string          `json:"tenant_id"`
	DealID       string          `json:"deal_id"`
	UserID       *string         `json:"user_id,omitempty"`
	ActivityType string          `json:"activity_type"`
	EntityType   string          `json:"entity_type,omitempty"`
	EntityID     string          `json:"entity_id,omitempty"`
	Metadata     domain.Metadata `json:"metadata"`
	CreatedAt    time.Time       `json:"created_at"`
}

// DealTouched signals that a deal's last-activity watermark moved, letting
// dashboards invalidate cached health views.
type DealTouched struct {
	TenantID   string    `json:"tenant_id"`
	DealID     string    `json:"deal_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Activity converts the event payload back into the domain record.
func (e ActivityRecorded) Activity() domain.DealActivity {
	return domain.DealActivity{
		ID:           e.ActivityID,
		TenantID:     e.TenantID,
		DealID:       e.DealID,
		UserID:       e.UserID,
		ActivityType: domain.ActivityType(e.ActivityType),
		EntityType:   e.EntityType,
		EntityID:     e.EntityID,
		Metadata:     e.Metadata,
		CreatedAt:    e.CreatedAt,
	}
}
