package store

import (
	"context"
	"errors"

	"learnhubAPI/internal/types/payment"
	"learnhubAPI/internal/types/subscription"
)

var (
	// ErrNotFound is returned when no row matches the given external id.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert hits the unique index on an
	// external id. Callers treat it as "already recorded", which closes the
	// race between two concurrent deliveries of the same event.
	ErrDuplicate = errors.New("record already exists")
)

// BillingStore is the persistence surface for webhook reconciliation.
// PostgresStore backs production; MemoryStore backs tests.
type BillingStore interface {
	GetSubscriptionByExternalID(ctx context.Context, externalID string) (*subscription.Subscription, error)
	InsertSubscription(ctx context.Context, sub *subscription.Subscription) error
	UpdateSubscriptionStatus(ctx context.Context, externalID, status string, metadata map[string]any) (*subscription.Subscription, error)

	GetPaymentByExternalID(ctx context.Context, externalID string) (*payment.Payment, error)
	InsertPayment(ctx context.Context, p *payment.Payment) error
}
