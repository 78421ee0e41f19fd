package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"keyline/internal/platform/models"
)

type HookEventRepository struct {
	db *sql.DB
}

func NewHookEventRepository(db *sql.DB) *HookEventRepository {
	return &HookEventRepository{db: db}
}

func (r *HookEventRepository) Create(event *models.HookEvent) error {
	if event.ID == "" {
		event.ID = "evt_" + uuid.New().String()
	}
	now := time.Now().Unix()
	event.CreatedAt = now
	event.UpdatedAt = now

	query := `
		INSERT INTO hook_events (id, hook_id, network, lock, topic, body, state, attempts, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		event.ID, event.HookID, event.Network, event.Lock, event.Topic,
		event.Body, event.State, event.Attempts, event.LastError,
		event.CreatedAt, event.UpdatedAt,
	)
	return err
}

func (r *HookEventRepository) Update(event *models.HookEvent) error {
	event.UpdatedAt = time.Now().Unix()

	query := `
		UPDATE hook_events
		SET state = ?, attempts = ?, last_error = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.Exec(query, event.State, event.Attempts, event.LastError, event.UpdatedAt, event.ID)
	return err
}

// Recent returns up to limit events for a hook created at or after since,
// newest first.
func (r *HookEventRepository) Recent(hookID string, since int64, limit int) ([]*models.HookEvent, error) {
	query := `
		SELECT id, hook_id, network, lock, topic, body, state, attempts, last_error, created_at, updated_at
		FROM hook_events
		WHERE hook_id = ? AND created_at >= ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, hookID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.HookEvent
	for rows.Next() {
		var ev models.HookEvent
		var lock, lastError sql.NullString

		err := rows.Scan(&ev.ID, &ev.HookID, &ev.Network, &lock, &ev.Topic, &ev.Body,
			&ev.State, &ev.Attempts, &lastError, &ev.CreatedAt, &ev.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if lock.Valid {
			ev.Lock = lock.String
		}
		if lastError.Valid {
			ev.LastError = lastError.String
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}
