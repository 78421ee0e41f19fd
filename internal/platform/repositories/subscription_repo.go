package repositories

import (
	"database/sql"
	"time"

	"keyline/internal/platform/models"
)

type KeySubscriptionRepository struct {
	db *sql.DB
}

func NewKeySubscriptionRepository(db *sql.DB) *KeySubscriptionRepository {
	return &KeySubscriptionRepository{db: db}
}

func (r *KeySubscriptionRepository) Create(sub *models.KeySubscription) error {
	now := time.Now().Unix()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	query := `
		INSERT INTO key_subscriptions (network, lock_address, key_id, user_address, recurring, connected_customer, price_cents, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.Exec(query,
		sub.Network, sub.LockAddress, sub.KeyID, sub.UserAddress,
		sub.Recurring, sub.ConnectedCustomer, sub.PriceCents,
		sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return err
	}
	sub.ID, err = res.LastInsertId()
	return err
}

// ListRecurring returns the subscriptions on a network still eligible for
// automatic renewal (recurring > 0).
func (r *KeySubscriptionRepository) ListRecurring(network int64) ([]*models.KeySubscription, error) {
	query := `
		SELECT id, network, lock_address, key_id, user_address, recurring, connected_customer, price_cents, created_at, updated_at
		FROM key_subscriptions
		WHERE network = ? AND recurring > 0
		ORDER BY id
	`
	rows, err := r.db.Query(query, network)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*models.KeySubscription
	for rows.Next() {
		var s models.KeySubscription
		var customer sql.NullString

		err := rows.Scan(&s.ID, &s.Network, &s.LockAddress, &s.KeyID, &s.UserAddress,
			&s.Recurring, &customer, &s.PriceCents, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if customer.Valid {
			s.ConnectedCustomer = customer.String
		}
		subs = append(subs, &s)
	}
	return subs, rows.Err()
}
