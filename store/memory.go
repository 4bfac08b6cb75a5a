package store

import (
	"context"
	"sync"
	"time"

	"learnhubAPI/internal/types/payment"
	"learnhubAPI/internal/types/subscription"
)

// MemoryStore is an in-memory BillingStore for tests. It enforces the same
// uniqueness as the SQL schema so the duplicate-insert path behaves the
// same way it does against Postgres.
type MemoryStore struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription.Subscription // keyed by external id
	payments      map[string]*payment.Payment           // keyed by external id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscriptions: make(map[string]*subscription.Subscription),
		payments:      make(map[string]*payment.Payment),
	}
}

func (s *MemoryStore) GetSubscriptionByExternalID(ctx context.Context, externalID string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[externalID]
	if !ok {
		return nil, ErrNotFound
	}
	return copySubscription(sub), nil
}

func (s *MemoryStore) InsertSubscription(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[sub.ExternalSubscriptionID]; ok {
		return ErrDuplicate
	}
	s.subscriptions[sub.ExternalSubscriptionID] = copySubscription(sub)
	return nil
}

func (s *MemoryStore) UpdateSubscriptionStatus(ctx context.Context, externalID, status string, metadata map[string]any) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[externalID]
	if !ok {
		return nil, ErrNotFound
	}
	sub.Status = status
	sub.Metadata = copyMetadata(metadata)
	sub.UpdatedAt = time.Now().UTC()
	return copySubscription(sub), nil
}

func (s *MemoryStore) GetPaymentByExternalID(ctx context.Context, externalID string) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[externalID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) InsertPayment(ctx context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[p.ExternalPaymentID]; ok {
		return ErrDuplicate
	}
	cp := *p
	s.payments[p.ExternalPaymentID] = &cp
	return nil
}

// SubscriptionCount reports the number of stored subscriptions. Test helper.
func (s *MemoryStore) SubscriptionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscriptions)
}

// PaymentCount reports the number of stored payments. Test helper.
func (s *MemoryStore) PaymentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payments)
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	cp := *sub
	cp.Metadata = copyMetadata(sub.Metadata)
	return &cp
}

func copyMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
