package payment

import "time"

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Payment struct {
	ID                string    `json:"id" db:"id"`
	ExternalPaymentID string    `json:"externalPaymentId" db:"external_payment_id"`
	UserID            string    `json:"userId" db:"user_id"`
	SubscriptionID    *string   `json:"subscriptionId" db:"subscription_id"`
	Amount            float64   `json:"amount" db:"amount"`
	Currency          string    `json:"currency" db:"currency"`
	Status            string    `json:"status" db:"status"`
	PaymentMethod     string    `json:"paymentMethod" db:"payment_method"`
	PaymentDate       time.Time `json:"paymentDate" db:"payment_date"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
}
