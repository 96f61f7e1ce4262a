package models

import (
	"time"
)

// Refund records a refund request and its settled status. StripeRefundId is
// nullable because a refund.updated event can arrive for a refund that was
// never created through this API; SubscriptionID is a best-effort link.
type Refund struct {
	ID             uint          `json:"id" gorm:"primaryKey"`
	StripeRefundId *string       `json:"stripeRefundId" gorm:"uniqueIndex"`
	SubscriptionID *string       `json:"subscriptionId" gorm:"type:uuid"`
	Subscription   *Subscription `json:"subscription,omitempty" gorm:"foreignKey:SubscriptionID"`
	Amount         int64         `json:"amount"`
	Status         string        `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}
