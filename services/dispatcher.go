package services

import (
	"context"
	"fmt"
	"log"

	"learnhubAPI/internal/types/payment"
	"learnhubAPI/internal/types/subscription"
	"learnhubAPI/internal/webhook"
)

type eventHandler func(ctx context.Context, ev *webhook.Event) error

// correlationRequired lists the event types that must resolve to a platform
// user. Dropping one of these silently would leave a subscription
// permanently unlinked, so they fail validation instead of being
// acknowledged. Other events keep the original silent-skip behavior.
var correlationRequired = map[string]bool{
	"subscription.authenticated":     true,
	"subscription.charged":           true,
	"subscription.payment.succeeded": true,
}

// Dispatcher routes a normalized webhook event to exactly one handler.
// Unknown event types are acknowledged, not rejected, so Razorpay does not
// redeliver events we intentionally ignore.
type Dispatcher struct {
	billing  *BillingService
	handlers map[string]eventHandler
}

func NewDispatcher(billing *BillingService) *Dispatcher {
	d := &Dispatcher{billing: billing}
	d.handlers = map[string]eventHandler{
		"subscription.authenticated":     d.handleAuthenticated,
		"subscription.activated":         d.statusHandler(subscription.StatusActive),
		"subscription.charged":           d.handleCharged,
		"subscription.payment.succeeded": d.handleCharged,
		"subscription.pending":           d.statusHandler(subscription.StatusPending),
		"subscription.halted":            d.statusHandler(subscription.StatusHalted),
		// the platform has no separate paused state
		"subscription.paused":    d.statusHandler(subscription.StatusHalted),
		"subscription.resumed":   d.statusHandler(subscription.StatusActive),
		"subscription.cancelled": d.statusHandler(subscription.StatusCancelled),
		"subscription.completed": d.statusHandler(subscription.StatusExpired),
		"payment.failed":         d.handlePaymentFailed,
	}
	return d
}

// Dispatch invokes the handler registered for ev.Type. The returned error
// is nil for every acknowledged outcome, webhook.ErrMissingCorrelation for
// validation failures, and a store error otherwise.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *webhook.Event) error {
	handler, ok := d.handlers[ev.Type]
	if !ok {
		log.Printf("Ignoring unhandled webhook event type: %s", ev.Type)
		return nil
	}

	if correlationRequired[ev.Type] && ev.UserID() == "" {
		return fmt.Errorf("%w: event %s", webhook.ErrMissingCorrelation, ev.Type)
	}

	return handler(ctx, ev)
}

func (d *Dispatcher) handleAuthenticated(ctx context.Context, ev *webhook.Event) error {
	subID := ev.SubscriptionID()
	if subID == "" {
		return fmt.Errorf("%w: event %s has no subscription id", webhook.ErrMissingCorrelation, ev.Type)
	}

	_, err := d.billing.EnsureSubscription(ctx, subID, ev.UserID(), ev.Notes)
	return err
}

func (d *Dispatcher) handleCharged(ctx context.Context, ev *webhook.Event) error {
	subID := ev.SubscriptionID()
	if subID == "" {
		return fmt.Errorf("%w: event %s has no subscription id", webhook.ErrMissingCorrelation, ev.Type)
	}

	if _, err := d.billing.UpdateSubscriptionStatus(ctx, subID, subscription.StatusActive); err != nil {
		return err
	}

	payID := ev.PaymentID()
	if payID == "" {
		log.Printf("Event %s for subscription %s carries no payment id, skipping ledger entry", ev.Type, subID)
		return nil
	}

	_, err := d.billing.RecordPayment(ctx, ev.UserID(), subID, payID, ev.Amount(), payment.StatusCompleted)
	return err
}

func (d *Dispatcher) handlePaymentFailed(ctx context.Context, ev *webhook.Event) error {
	payID := ev.PaymentID()
	if payID == "" {
		log.Printf("Event %s carries no payment id, ignoring", ev.Type)
		return nil
	}

	_, err := d.billing.RecordPayment(ctx, ev.UserID(), ev.SubscriptionID(), payID, ev.Amount(), payment.StatusFailed)
	return err
}

// statusHandler builds the handler for plain status-transition events.
// A miss is benign: the authenticating event for that subscription may not
// have arrived yet, or may never arrive for unrelated test events.
func (d *Dispatcher) statusHandler(status string) eventHandler {
	return func(ctx context.Context, ev *webhook.Event) error {
		subID := ev.SubscriptionID()
		if subID == "" {
			log.Printf("Event %s carries no subscription id, ignoring", ev.Type)
			return nil
		}
		_, err := d.billing.UpdateSubscriptionStatus(ctx, subID, status)
		return err
	}
}
