package repositories

import (
	"database/sql"

	"keyline/internal/platform/models"
)

type HookRepository struct {
	db *sql.DB
}

func NewHookRepository(db *sql.DB) *HookRepository {
	return &HookRepository{db: db}
}

const hookColumns = `id, network, mode, topic, callback, secret, expiration, created_at, updated_at`

func (r *HookRepository) GetByID(id string) (*models.Hook, error) {
	row := r.db.QueryRow(`SELECT `+hookColumns+` FROM hooks WHERE id = ?`, id)
	return scanHook(row)
}

// ListActiveSubscribers returns the subscribe-mode hooks on a network whose
// subscription has not expired yet.
func (r *HookRepository) ListActiveSubscribers(network int64, now int64) ([]*models.Hook, error) {
	rows, err := r.db.Query(
		`SELECT `+hookColumns+` FROM hooks WHERE network = ? AND mode = ? AND expiration > ? ORDER BY created_at`,
		network, models.HookModeSubscribe, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hooks []*models.Hook
	for rows.Next() {
		h, err := scanHook(rows)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, h)
	}
	return hooks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHook(row rowScanner) (*models.Hook, error) {
	var h models.Hook
	var secret sql.NullString

	err := row.Scan(&h.ID, &h.Network, &h.Mode, &h.Topic, &h.Callback, &secret, &h.Expiration, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if secret.Valid {
		h.Secret = secret.String
	}
	return &h, nil
}
