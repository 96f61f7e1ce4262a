package models

import (
	"time"

	"gorm.io/datatypes"
)

// SubscriptionEvent is the append-only audit row for an inbound webhook
// delivery. Written before any side effect, never updated or deleted.
type SubscriptionEvent struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	SubscriptionID *string        `json:"subscriptionId" gorm:"type:uuid"`
	EventType      string         `json:"eventType" gorm:"index"`
	EventData      datatypes.JSON `json:"eventData" gorm:"type:jsonb"`
	CreatedAt      time.Time      `json:"createdAt"`
}
