package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tableflow/order-service/internal/domain"
)

//go:generate go run go.uber.org/mock/mockgen@latest -source=push_subscription_repository.go -destination=../mocks/push_subscription_repository.go -package=mocks

// PushSubscriptionRepository stores browser push endpoints.
type PushSubscriptionRepository interface {
	Upsert(ctx context.Context, sub *domain.PushSubscription) error
	ListByUser(ctx context.Context, userID string) ([]domain.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
	DeleteForUser(ctx context.Context, userID, endpoint string) error
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

type pushSubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewPushSubscriptionRepository constructs repository.
func NewPushSubscriptionRepository(pool *pgxpool.Pool) PushSubscriptionRepository {
	return &pushSubscriptionRepository{pool: pool}
}

// Upsert registers sub, moving an existing endpoint to the new owner and keys.
func (r *pushSubscriptionRepository) Upsert(ctx context.Context, sub *domain.PushSubscription) error {
	const query = `
        INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth, user_agent)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (endpoint) DO UPDATE
            SET user_id=EXCLUDED.user_id, p256dh=EXCLUDED.p256dh, auth=EXCLUDED.auth,
                user_agent=EXCLUDED.user_agent, updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		sub.UserID,
		sub.Endpoint,
		sub.P256dh,
		sub.Auth,
		sub.UserAgent,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
}

func (r *pushSubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]domain.PushSubscription, error) {
	const query = `
        SELECT id, user_id, endpoint, p256dh, auth, user_agent, created_at, updated_at
        FROM push_subscriptions WHERE user_id=$1
        ORDER BY updated_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.PushSubscription
	for rows.Next() {
		var sub domain.PushSubscription
		if err := rows.Scan(
			&sub.ID,
			&sub.UserID,
			&sub.Endpoint,
			&sub.P256dh,
			&sub.Auth,
			&sub.UserAgent,
			&sub.CreatedAt,
			&sub.UpdatedAt,
		); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// DeleteByEndpoint drops an endpoint the push service reported as gone.
func (r *pushSubscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint=$1`, endpoint)
	return err
}

// DeleteForUser removes endpoint only when owned by userID.
func (r *pushSubscriptionRepository) DeleteForUser(ctx context.Context, userID, endpoint string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE user_id=$1 AND endpoint=$2`, userID, endpoint)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteStale prunes subscriptions not refreshed since before.
func (r *pushSubscriptionRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE updated_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
