package repositories

import (
	"database/sql"
	"encoding/json"
	"time"

	"keyline/internal/platform/models"
)

type UserMetadataRepository struct {
	db *sql.DB
}

func NewUserMetadataRepository(db *sql.DB) *UserMetadataRepository {
	return &UserMetadataRepository{db: db}
}

func (r *UserMetadataRepository) Create(meta *models.UserMetadata) error {
	now := time.Now().Unix()
	meta.CreatedAt = now
	meta.UpdatedAt = now

	data, err := json.Marshal(meta.Data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO user_metadata (network, lock_address, user_address, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.Exec(query,
		meta.Network, meta.LockAddress, meta.UserAddress, string(data),
		meta.CreatedAt, meta.UpdatedAt,
	)
	if err != nil {
		return err
	}
	meta.ID, err = res.LastInsertId()
	return err
}

func (r *UserMetadataRepository) ListByLock(network int64, lockAddress string) ([]*models.UserMetadata, error) {
	query := `
		SELECT id, network, lock_address, user_address, data, created_at, updated_at
		FROM user_metadata
		WHERE network = ? AND lock_address = ?
		ORDER BY id
	`
	rows, err := r.db.Query(query, network, lockAddress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []*models.UserMetadata
	for rows.Next() {
		var m models.UserMetadata
		var data string

		err := rows.Scan(&m.ID, &m.Network, &m.LockAddress, &m.UserAddress, &data, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &m.Data); err != nil {
			return nil, err
		}
		metas = append(metas, &m)
	}
	return metas, rows.Err()
}
