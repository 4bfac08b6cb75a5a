package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"learnhubAPI/internal/types/payment"
	"learnhubAPI/internal/types/subscription"
	"learnhubAPI/store"
)

const (
	// All platform billing runs in a single currency.
	paymentCurrency = "INR"
	paymentMethod   = "razorpay"

	defaultPlanFallback = "free_plan"
)

// BillingService owns subscription state transitions and the payment
// ledger. Every write is idempotent on the gateway-assigned external id, so
// redelivered webhooks converge on the same persisted state.
type BillingService struct {
	store         store.BillingStore
	defaultPlanID string
}

func NewBillingService(st store.BillingStore) *BillingService {
	planID := os.Getenv("DEFAULT_PLAN_ID")
	if planID == "" {
		planID = defaultPlanFallback
	}
	return &BillingService{store: st, defaultPlanID: planID}
}

// EnsureSubscription creates the subscription row for an external id if it
// does not exist yet, and returns the existing row unchanged if it does.
func (s *BillingService) EnsureSubscription(ctx context.Context, externalID, userID string, notes map[string]any) (*subscription.Subscription, error) {
	existing, err := s.store.GetSubscriptionByExternalID(ctx, externalID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up subscription %s: %w", externalID, err)
	}

	planID := s.defaultPlanID
	if p, ok := notes["planId"].(string); ok && p != "" {
		planID = p
	}

	now := time.Now().UTC()
	sub := &subscription.Subscription{
		ID:                     uuid.NewString(),
		ExternalSubscriptionID: externalID,
		UserID:                 userID,
		PlanID:                 planID,
		Status:                 subscription.StatusPending,
		Metadata: map[string]any{
			"source":        "razorpay_webhook",
			"creationNotes": notes,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.store.InsertSubscription(ctx, sub)
	if errors.Is(err, store.ErrDuplicate) {
		// a concurrent delivery won the insert race; theirs is canonical
		log.Printf("Subscription %s already created concurrently", externalID)
		return s.store.GetSubscriptionByExternalID(ctx, externalID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription %s: %w", externalID, err)
	}

	log.Printf("Created subscription %s (user %s, plan %s)", externalID, userID, planID)
	return sub, nil
}

// UpdateSubscriptionStatus moves an existing subscription to status and
// appends an audit entry to its metadata. A missing row is a benign miss:
// the status event may have raced ahead of the authenticating event, or may
// belong to a subscription this platform never created. It never creates a
// row.
func (s *BillingService) UpdateSubscriptionStatus(ctx context.Context, externalID, status string) (*subscription.Subscription, error) {
	existing, err := s.store.GetSubscriptionByExternalID(ctx, externalID)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("Subscription %s not found, skipping status update to %s", externalID, status)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up subscription %s: %w", externalID, err)
	}

	if subscription.IsTerminal(existing.Status) {
		log.Printf("Subscription %s is %s but received a %s transition", externalID, existing.Status, status)
	}

	metadata := make(map[string]any, len(existing.Metadata)+3)
	for k, v := range existing.Metadata {
		metadata[k] = v
	}
	metadata["lastStatus"] = existing.Status
	metadata["currentStatus"] = status
	metadata["statusUpdatedAt"] = time.Now().UTC().Format(time.RFC3339)

	updated, err := s.store.UpdateSubscriptionStatus(ctx, externalID, status, metadata)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("Subscription %s disappeared before status update to %s", externalID, status)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update subscription %s status: %w", externalID, err)
	}

	log.Printf("Subscription %s status %s -> %s", externalID, existing.Status, status)
	return updated, nil
}

// RecordPayment writes one ledger row per external payment id. A repeat
// delivery returns the already-recorded row untouched. When the referenced
// subscription cannot be resolved the payment is still recorded, without a
// link.
func (s *BillingService) RecordPayment(ctx context.Context, userID, subscriptionExternalID, paymentExternalID string, amount float64, status string) (*payment.Payment, error) {
	var subscriptionID *string
	if subscriptionExternalID != "" {
		sub, err := s.store.GetSubscriptionByExternalID(ctx, subscriptionExternalID)
		switch {
		case err == nil:
			subscriptionID = &sub.ID
		case errors.Is(err, store.ErrNotFound):
			log.Printf("Payment %s references unknown subscription %s, recording unlinked", paymentExternalID, subscriptionExternalID)
		default:
			return nil, fmt.Errorf("failed to resolve subscription %s: %w", subscriptionExternalID, err)
		}
	}

	existing, err := s.store.GetPaymentByExternalID(ctx, paymentExternalID)
	if err == nil {
		log.Printf("Payment %s already recorded, skipping", paymentExternalID)
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up payment %s: %w", paymentExternalID, err)
	}

	now := time.Now().UTC()
	p := &payment.Payment{
		ID:                uuid.NewString(),
		ExternalPaymentID: paymentExternalID,
		UserID:            userID,
		SubscriptionID:    subscriptionID,
		Amount:            amount,
		Currency:          paymentCurrency,
		Status:            status,
		PaymentMethod:     paymentMethod,
		PaymentDate:       now,
		CreatedAt:         now,
	}

	err = s.store.InsertPayment(ctx, p)
	if errors.Is(err, store.ErrDuplicate) {
		log.Printf("Payment %s inserted concurrently, returning existing row", paymentExternalID)
		return s.store.GetPaymentByExternalID(ctx, paymentExternalID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record payment %s: %w", paymentExternalID, err)
	}

	log.Printf("Recorded payment %s (%.2f %s, status %s)", paymentExternalID, amount, paymentCurrency, status)
	return p, nil
}

// GetSubscription looks up a subscription by its external id.
func (s *BillingService) GetSubscription(ctx context.Context, externalID string) (*subscription.Subscription, error) {
	return s.store.GetSubscriptionByExternalID(ctx, externalID)
}

// GetPayment looks up a payment by its external id.
func (s *BillingService) GetPayment(ctx context.Context, externalID string) (*payment.Payment, error) {
	return s.store.GetPaymentByExternalID(ctx, externalID)
}
