package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnhubAPI/internal/types/payment"
	"learnhubAPI/internal/types/subscription"
	"learnhubAPI/store"
)

func TestEnsureSubscriptionCreatesPending(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewBillingService(st)
	ctx := context.Background()

	notes := map[string]any{"userId": "u1", "planId": "student_plan"}
	sub, err := svc.EnsureSubscription(ctx, "sub_1", "u1", notes)
	require.NoError(t, err)

	assert.Equal(t, "sub_1", sub.ExternalSubscriptionID)
	assert.Equal(t, "u1", sub.UserID)
	assert.Equal(t, "student_plan", sub.PlanID)
	assert.Equal(t, subscription.StatusPending, sub.Status)
	assert.Equal(t, "razorpay_webhook", sub.Metadata["source"])
	assert.NotEmpty(t, sub.ID)
}

func TestEnsureSubscriptionIsIdempotent(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewBillingService(st)
	ctx := context.Background()

	first, err := svc.EnsureSubscription(ctx, "sub_1", "u1", map[string]any{"planId": "student_plan"})
	require.NoError(t, err)

	second, err := svc.EnsureSubscription(ctx, "sub_1", "u2", map[string]any{"planId": "other_plan"})
	require.NoError(t, err)

	assert.Equal(t, 1, st.SubscriptionCount())
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "u1", second.UserID, "second call must return the first row unchanged")
	assert.Equal(t, "student_plan", second.PlanID)
}

func TestEnsureSubscriptionDefaultPlan(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewBillingService(st)

	sub, err := svc.EnsureSubscription(context.Background(), "sub_2", "u1", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, defaultPlanFallback, sub.PlanID)
}

func TestUpdateStatusOnMissingSubscription(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewBillingService(st)

	sub, err := svc.UpdateSubscriptionStatus(context.Background(), "sub_unknown", subscription.StatusActive)
	require.NoError(t, err, "a miss is benign")
	assert.Nil(t, sub)
	assert.Equal(t, 0, st.SubscriptionCount(), "update-status must never create a row")
}

func TestUpdateStatusAppendsAuditMetadata(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewBillingService(st)
	ctx := context.Background()

	_, err := svc.EnsureSubscription(ctx, "sub_1", "u1", map[string]any{"planId": "student_plan"})
	require.NoError(t, err)

	sub, err := svc.UpdateSubscriptionStatus(ctx, "sub_1", subscription.StatusActive)
	require.NoError(t, err)
	require.NotNil(t, sub)

	assert.Equal(t, subscription.StatusActive, sub.Status)
	assert.Equal(t, subscription.StatusPending, sub.Metadata["lastStatus"])
	assert.Equal(t, subscription.StatusActive, sub.Metadata["currentStatus"])
	assert.NotEmpty(t, sub.Metadata["statusUpdatedAt"])
	// prior metadata survives the update
	assert.Equal(t, "razorpay_webhook", sub.Metadata["source"])
}

func TestRecordPaymentLinked(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewBillingService(st)
	ctx := context.Background()

	sub, err := svc.EnsureSubscription(ctx, "sub_1", "u1", nil)
	require.NoError(t, err)

	p, err := svc.RecordPayment(ctx, "u1", "sub_1", "pay_1", 500, payment.StatusCompleted)
	require.NoError(t, err)

	require.NotNil(t, p.SubscriptionID)
	assert.Equal(t, sub.ID, *p.SubscriptionID)
	assert.Equal(t, float64(500), p.Amount)
	assert.Equal(t, "INR", p.Currency)
	assert.Equal(t, "razorpay", p.PaymentMethod)
	assert.False(t, p.PaymentDate.IsZero())
}

func TestRecordPaymentIsIdempotent(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewBillingService(st)
	ctx := context.Background()

	first, err := svc.RecordPayment(ctx, "u1", "", "pay_1", 500, payment.StatusCompleted)
	require.NoError(t, err)

	second, err := svc.RecordPayment(ctx, "u1", "", "pay_1", 999, payment.StatusFailed)
	require.NoError(t, err)

	assert.Equal(t, 1, st.PaymentCount())
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, float64(500), second.Amount, "repeat delivery must not mutate the row")
	assert.Equal(t, payment.StatusCompleted, second.Status)
}

func TestRecordPaymentUnresolvedSubscriptionIsUnlinked(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewBillingService(st)

	p, err := svc.RecordPayment(context.Background(), "u1", "sub_missing", "pay_1", 100, payment.StatusCompleted)
	require.NoError(t, err, "an unresolved subscription is logged, not fatal")
	assert.Nil(t, p.SubscriptionID)
}

// raceStore forces the duplicate-insert path: the existence check misses,
// then the insert collides with a row a concurrent delivery wrote.
type raceStore struct {
	*store.MemoryStore
	planted *payment.Payment
	checked bool
}

func (s *raceStore) GetPaymentByExternalID(ctx context.Context, externalID string) (*payment.Payment, error) {
	if !s.checked {
		s.checked = true
		return nil, store.ErrNotFound
	}
	return s.MemoryStore.GetPaymentByExternalID(ctx, externalID)
}

func (s *raceStore) InsertPayment(ctx context.Context, p *payment.Payment) error {
	if err := s.MemoryStore.InsertPayment(ctx, s.planted); err != nil {
		return err
	}
	return s.MemoryStore.InsertPayment(ctx, p)
}

func TestRecordPaymentDuplicateInsertRace(t *testing.T) {
	planted := &payment.Payment{
		ID:                "winner",
		ExternalPaymentID: "pay_1",
		UserID:            "u1",
		Amount:            500,
		Status:            payment.StatusCompleted,
	}
	st := &raceStore{MemoryStore: store.NewMemoryStore(), planted: planted}
	svc := NewBillingService(st)

	p, err := svc.RecordPayment(context.Background(), "u1", "", "pay_1", 500, payment.StatusCompleted)
	require.NoError(t, err, "a losing racer must still report success")
	assert.Equal(t, "winner", p.ID)
	assert.Equal(t, 1, st.PaymentCount())
}
