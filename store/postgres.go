package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"learnhubAPI/internal/types/payment"
	"learnhubAPI/internal/types/subscription"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetSubscriptionByExternalID(ctx context.Context, externalID string) (*subscription.Subscription, error) {
	query := `
		SELECT id, external_subscription_id, user_id, plan_id, status,
		       COALESCE(metadata, '{}'::jsonb), created_at, updated_at
		FROM subscriptions
		WHERE external_subscription_id = $1
	`

	var sub subscription.Subscription
	var metadataJSON []byte

	err := s.db.QueryRow(ctx, query, externalID).Scan(
		&sub.ID,
		&sub.ExternalSubscriptionID,
		&sub.UserID,
		&sub.PlanID,
		&sub.Status,
		&metadataJSON,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	if err := json.Unmarshal(metadataJSON, &sub.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subscription metadata: %w", err)
	}

	return &sub, nil
}

func (s *PostgresStore) InsertSubscription(ctx context.Context, sub *subscription.Subscription) error {
	metadataJSON, err := json.Marshal(sub.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription metadata: %w", err)
	}

	query := `
		INSERT INTO subscriptions (id, external_subscription_id, user_id, plan_id, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.db.Exec(ctx, query,
		sub.ID,
		sub.ExternalSubscriptionID,
		sub.UserID,
		sub.PlanID,
		sub.Status,
		metadataJSON,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert subscription: %w", err)
	}

	return nil
}

func (s *PostgresStore) UpdateSubscriptionStatus(ctx context.Context, externalID, status string, metadata map[string]any) (*subscription.Subscription, error) {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal subscription metadata: %w", err)
	}

	query := `
		UPDATE subscriptions
		SET status = $2, metadata = $3, updated_at = $4
		WHERE external_subscription_id = $1
		RETURNING id, external_subscription_id, user_id, plan_id, status, created_at, updated_at
	`

	var sub subscription.Subscription
	err = s.db.QueryRow(ctx, query, externalID, status, metadataJSON, time.Now().UTC()).Scan(
		&sub.ID,
		&sub.ExternalSubscriptionID,
		&sub.UserID,
		&sub.PlanID,
		&sub.Status,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update subscription status: %w", err)
	}

	sub.Metadata = metadata
	return &sub, nil
}

func (s *PostgresStore) GetPaymentByExternalID(ctx context.Context, externalID string) (*payment.Payment, error) {
	query := `
		SELECT id, external_payment_id, user_id, subscription_id, amount,
		       currency, status, payment_method, payment_date, created_at
		FROM payments
		WHERE external_payment_id = $1
	`

	var p payment.Payment
	err := s.db.QueryRow(ctx, query, externalID).Scan(
		&p.ID,
		&p.ExternalPaymentID,
		&p.UserID,
		&p.SubscriptionID,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.PaymentMethod,
		&p.PaymentDate,
		&p.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return &p, nil
}

func (s *PostgresStore) InsertPayment(ctx context.Context, p *payment.Payment) error {
	query := `
		INSERT INTO payments (id, external_payment_id, user_id, subscription_id, amount, currency, status, payment_method, payment_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.Exec(ctx, query,
		p.ID,
		p.ExternalPaymentID,
		p.UserID,
		p.SubscriptionID,
		p.Amount,
		p.Currency,
		p.Status,
		p.PaymentMethod,
		p.PaymentDate,
		p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-index violation
// (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
