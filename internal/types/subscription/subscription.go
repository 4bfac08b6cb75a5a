package subscription

import "time"

// Subscription statuses. Razorpay has more lifecycle states than we track;
// the dispatcher maps every incoming event onto one of these.
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusHalted    = "halted"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

type Subscription struct {
	ID                     string         `json:"id" db:"id"`
	ExternalSubscriptionID string         `json:"externalSubscriptionId" db:"external_subscription_id"`
	UserID                 string         `json:"userId" db:"user_id"`
	PlanID                 string         `json:"planId" db:"plan_id"`
	Status                 string         `json:"status" db:"status"`
	Metadata               map[string]any `json:"metadata" db:"metadata"`
	CreatedAt              time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt              time.Time      `json:"updatedAt" db:"updated_at"`
}

// IsTerminal reports whether no further transition is expected for a status.
func IsTerminal(status string) bool {
	return status == StatusCancelled || status == StatusExpired
}
