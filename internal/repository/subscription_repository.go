package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/language-academy/internal/model"
)

// SubscriptionRepo stores the subscription periods written back by the
// billing bridge.
type SubscriptionRepo struct{ DB *sql.DB }

func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{DB: db} }

// ListByUser returns every subscription row of a user.  Access decisions
// look at all of them.
func (r *SubscriptionRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Subscription, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, provider_subscription_id, status, current_period_end, created_at, updated_at
		 FROM subscriptions WHERE user_id=? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Subscription
	for rows.Next() {
		var s model.Subscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.ProviderSubscriptionID, &s.Status, &s.CurrentPeriodEnd, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Upsert records the provider state of a subscription, keyed by the
// provider subscription id.
func (r *SubscriptionRepo) Upsert(ctx context.Context, s model.Subscription) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO subscriptions (user_id, provider_subscription_id, status, current_period_end)
		 VALUES (?,?,?,?)
		 ON DUPLICATE KEY UPDATE status=VALUES(status), current_period_end=VALUES(current_period_end), updated_at=UTC_TIMESTAMP()`,
		s.UserID, s.ProviderSubscriptionID, s.Status, s.CurrentPeriodEnd)
	return err
}
