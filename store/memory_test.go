package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnhubAPI/internal/types/payment"
	"learnhubAPI/internal/types/subscription"
)

func TestMemoryStoreUniqueExternalIDs(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	sub := &subscription.Subscription{ID: "a", ExternalSubscriptionID: "sub_1"}
	require.NoError(t, st.InsertSubscription(ctx, sub))
	assert.ErrorIs(t, st.InsertSubscription(ctx, &subscription.Subscription{ID: "b", ExternalSubscriptionID: "sub_1"}), ErrDuplicate)

	p := &payment.Payment{ID: "a", ExternalPaymentID: "pay_1"}
	require.NoError(t, st.InsertPayment(ctx, p))
	assert.ErrorIs(t, st.InsertPayment(ctx, &payment.Payment{ID: "b", ExternalPaymentID: "pay_1"}), ErrDuplicate)
}

func TestMemoryStoreUpdateMiss(t *testing.T) {
	st := NewMemoryStore()

	_, err := st.UpdateSubscriptionStatus(context.Background(), "sub_missing", subscription.StatusActive, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, st.SubscriptionCount())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	sub := &subscription.Subscription{
		ID:                     "a",
		ExternalSubscriptionID: "sub_1",
		Status:                 subscription.StatusPending,
		Metadata:               map[string]any{"source": "razorpay_webhook"},
	}
	require.NoError(t, st.InsertSubscription(ctx, sub))

	got, err := st.GetSubscriptionByExternalID(ctx, "sub_1")
	require.NoError(t, err)

	got.Status = subscription.StatusCancelled
	got.Metadata["source"] = "mutated"

	again, err := st.GetSubscriptionByExternalID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPending, again.Status)
	assert.Equal(t, "razorpay_webhook", again.Metadata["source"])
}
