package models

import (
	"time"

	"gorm.io/datatypes"
)

// ScheduledDowngradeKey is the metadata key holding the price id a
// subscription is scheduled to downgrade to at the next period.
const ScheduledDowngradeKey = "scheduledDowngradeTo"

// Subscription is the local mirror of a Stripe subscription. Status is kept
// as an open string because Stripe owns the vocabulary; StripeSubscriptionId
// is the join key between local and remote state.
type Subscription struct {
	ID                   string            `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	StripeSubscriptionId string            `json:"stripeSubscriptionId" gorm:"uniqueIndex;not null"`
	UserID               string            `json:"userId" gorm:"type:uuid;not null"`
	User                 User              `json:"user" gorm:"foreignKey:UserID"`
	PlanID               uint              `json:"planId" gorm:"not null"`
	Plan                 Plan              `json:"plan" gorm:"foreignKey:PlanID"`
	Status               string            `json:"status"`
	CurrentPeriodStart   time.Time         `json:"currentPeriodStart"`
	CurrentPeriodEnd     time.Time         `json:"currentPeriodEnd"`
	CancelAtPeriodEnd    bool              `json:"cancelAtPeriodEnd" gorm:"default:false"`
	CanceledAt           *time.Time        `json:"canceledAt"`
	Metadata             datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}
