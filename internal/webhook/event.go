package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedPayload means no recognizable entity shape was found in
	// the body. Redelivering the same body would fail the same way, so the
	// handler answers 400 and Razorpay stops retrying.
	ErrMalformedPayload = errors.New("no recognizable entity in webhook payload")

	// ErrMissingCorrelation means an event that must be linked to a platform
	// user carried no resolvable user id.
	ErrMissingCorrelation = errors.New("unable to resolve user id for correlation-required event")
)

// Event is the normalized form of one Razorpay webhook delivery.
// Subscription and Payment hold the raw entity objects; Notes is the
// string-keyed mapping our checkout flow attaches at subscription creation
// (userId, userEmail, userRole, planId).
type Event struct {
	Type         string
	Subscription map[string]any
	Payment      map[string]any
	Notes        map[string]any

	// set when the entity matched the generic fallback shape rather than a
	// dedicated subscription entity
	genericEntity bool
}

type entityKind int

const (
	kindSubscription entityKind = iota
	kindPayment
	kindGeneric
)

// extractionRule matches one known envelope shape. Rules run in order and
// the first match wins; payloads matching none are malformed.
type extractionRule struct {
	kind    entityKind
	extract func(payload map[string]any) (map[string]any, bool)
}

var extractionRules = []extractionRule{
	{kindSubscription, func(p map[string]any) (map[string]any, bool) {
		return nestedObject(p, "subscription", "entity")
	}},
	{kindPayment, func(p map[string]any) (map[string]any, bool) {
		return nestedObject(p, "payment", "entity")
	}},
	{kindGeneric, func(p map[string]any) (map[string]any, bool) {
		return asObject(p["entity"])
	}},
}

// Normalize parses a raw webhook body into an Event, or fails with
// ErrMalformedPayload before any transition logic runs.
func Normalize(body []byte) (*Event, error) {
	var raw struct {
		Event   string         `json:"event"`
		Payload map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	ev := &Event{Type: raw.Event}

	matched := false
	for _, rule := range extractionRules {
		entity, ok := rule.extract(raw.Payload)
		if !ok {
			continue
		}
		matched = true
		switch rule.kind {
		case kindSubscription:
			ev.Subscription = entity
			// charged events ship the payment entity alongside the
			// subscription entity
			if pay, ok := nestedObject(raw.Payload, "payment", "entity"); ok {
				ev.Payment = pay
			}
		case kindPayment:
			ev.Payment = entity
			ev.Subscription = map[string]any{}
		case kindGeneric:
			ev.Subscription = entity
			ev.genericEntity = true
		}
		break
	}
	if !matched {
		return nil, ErrMalformedPayload
	}

	ev.Notes = notesOf(ev.Subscription)
	if len(ev.Notes) == 0 && ev.Payment != nil {
		ev.Notes = notesOf(ev.Payment)
	}

	return ev, nil
}

// SubscriptionID returns the external subscription id: the subscription
// entity's own id first, then the subscription_id a payment entity carries.
func (e *Event) SubscriptionID() string {
	if id := stringField(e.Subscription, "id"); id != "" {
		return id
	}
	return stringField(e.Payment, "subscription_id")
}

// PaymentID returns the external payment id, preferring the dedicated
// payment entity over a generic entity. A subscription entity's id is never
// a payment id; with neither a payment nor a generic entity present this
// returns empty and the caller skips the ledger write.
func (e *Event) PaymentID() string {
	if id := stringField(e.Payment, "id"); id != "" {
		return id
	}
	if e.genericEntity {
		return stringField(e.Subscription, "id")
	}
	return ""
}

// UserID resolves the platform user id with the fallback order
// notes.userId, notes.user_id, then the payment entity's customer id.
func (e *Event) UserID() string {
	if id := stringField(e.Notes, "userId"); id != "" {
		return id
	}
	if id := stringField(e.Notes, "user_id"); id != "" {
		return id
	}
	return stringField(e.Payment, "customer_id")
}

// Amount returns the payment amount, zero when no payment entity is present.
func (e *Event) Amount() float64 {
	if e.Payment == nil {
		return 0
	}
	if n, ok := e.Payment["amount"].(float64); ok {
		return n
	}
	return 0
}

// notesOf pulls the notes mapping off an entity. Absent or oddly shaped
// notes yield an empty map, never an error.
func notesOf(entity map[string]any) map[string]any {
	if entity == nil {
		return map[string]any{}
	}
	if notes, ok := asObject(entity["notes"]); ok {
		return notes
	}
	return map[string]any{}
}

func nestedObject(m map[string]any, keys ...string) (map[string]any, bool) {
	cur := m
	for _, k := range keys {
		next, ok := asObject(cur[k])
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
