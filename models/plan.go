package models

import (
	"time"

	"gorm.io/datatypes"
)

// Plan mirrors a Stripe price. StripePriceId is the external identity, the
// numeric ID is internal only. Rows are upserted by the catalog sync and by
// price webhook events, never deleted; a price.deleted event clears Active.
type Plan struct {
	ID            uint              `json:"id" gorm:"primaryKey"`
	StripePriceId string            `json:"stripePriceId" gorm:"uniqueIndex;not null"`
	Name          string            `json:"name"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Interval      string            `json:"interval"`
	Active        bool              `json:"active"`
	Metadata      datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}
