package repository

import (
	"database/sql"
	"time"

	"riskengine/internal/models"
)

// AuditRepository - append-only журнал аудита (таблица audit_events)
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository создает новый экземпляр репозитория
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record добавляет запись аудита. Записи никогда не обновляются
// и не удаляются.
func (r *AuditRepository) Record(ev *models.AuditEvent) error {
	query := `
		INSERT INTO audit_events (ts, actor, action, resource_type, resource_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	var detail interface{}
	if ev.Detail != "" {
		detail = ev.Detail
	}

	return r.db.QueryRow(
		query,
		ev.Timestamp,
		ev.Actor,
		ev.Action,
		ev.ResourceType,
		ev.ResourceID,
		detail,
	).Scan(&ev.ID)
}

// GetRecent возвращает последние limit записей, свежие первыми
func (r *AuditRepository) GetRecent(limit int) ([]*models.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, ts, actor, action, resource_type, resource_id, detail
		FROM audit_events
		ORDER BY ts DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		ev := &models.AuditEvent{}
		var detail sql.NullString
		err := rows.Scan(
			&ev.ID,
			&ev.Timestamp,
			&ev.Actor,
			&ev.Action,
			&ev.ResourceType,
			&ev.ResourceID,
			&detail,
		)
		if err != nil {
			return nil, err
		}
		if detail.Valid {
			ev.Detail = detail.String
		}
		events = append(events, ev)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
