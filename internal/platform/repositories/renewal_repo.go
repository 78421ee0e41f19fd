package repositories

import (
	"database/sql"
	"time"

	"keyline/internal/platform/models"
)

type KeyRenewalRepository struct {
	db *sql.DB
}

func NewKeyRenewalRepository(db *sql.DB) *KeyRenewalRepository {
	return &KeyRenewalRepository{db: db}
}

func (r *KeyRenewalRepository) Create(renewal *models.KeyRenewal) error {
	renewal.CreatedAt = time.Now().Unix()

	query := `
		INSERT INTO key_renewals (network, lock_address, key_id, tx, initiated_by, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.Exec(query,
		renewal.Network, renewal.LockAddress, renewal.KeyID,
		renewal.Tx, renewal.InitiatedBy, renewal.Error, renewal.CreatedAt,
	)
	if err != nil {
		return err
	}
	renewal.ID, err = res.LastInsertId()
	return err
}

// ListByKey returns the audit rows for one key, oldest first.
func (r *KeyRenewalRepository) ListByKey(network int64, lockAddress, keyID string) ([]*models.KeyRenewal, error) {
	query := `
		SELECT id, network, lock_address, key_id, tx, initiated_by, error, created_at
		FROM key_renewals
		WHERE network = ? AND lock_address = ? AND key_id = ?
		ORDER BY id
	`
	rows, err := r.db.Query(query, network, lockAddress, keyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var renewals []*models.KeyRenewal
	for rows.Next() {
		var kr models.KeyRenewal
		var tx, initiatedBy, renewErr sql.NullString

		err := rows.Scan(&kr.ID, &kr.Network, &kr.LockAddress, &kr.KeyID, &tx, &initiatedBy, &renewErr, &kr.CreatedAt)
		if err != nil {
			return nil, err
		}
		if tx.Valid {
			kr.Tx = tx.String
		}
		if initiatedBy.Valid {
			kr.InitiatedBy = initiatedBy.String
		}
		if renewErr.Valid {
			kr.Error = renewErr.String
		}
		renewals = append(renewals, &kr)
	}
	return renewals, rows.Err()
}
