package repository

import (
	"database/sql"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"

	"riskengine/internal/models"
)

var alertJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Ошибки репозитория оповещений
var (
	ErrAlertNotFound     = errors.New("alert not found")
	ErrAlertAcknowledged = errors.New("alert already acknowledged")
)

// AlertRepository - работа с таблицей risk_alerts
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository создает новый экземпляр репозитория
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertColumns = `id, mandate_id, mandate_code, severity, message, details, acknowledged, acknowledged_by, acknowledged_at, superseded, created_at`

// scanAlert читает одну строку в модель
func scanAlert(row interface{ Scan(...interface{}) error }) (*models.Alert, error) {
	a := &models.Alert{}
	var (
		mandateID      sql.NullInt64
		details        []byte
		acknowledgedBy sql.NullString
		acknowledgedAt sql.NullTime
	)
	err := row.Scan(
		&a.ID,
		&mandateID,
		&a.MandateCode,
		&a.Severity,
		&a.Message,
		&details,
		&a.Acknowledged,
		&acknowledgedBy,
		&acknowledgedAt,
		&a.Superseded,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if mandateID.Valid {
		id := int(mandateID.Int64)
		a.MandateID = &id
	}
	if len(details) > 0 {
		var d models.AlertDetails
		if err := alertJSON.Unmarshal(details, &d); err == nil {
			a.Details = &d
		}
	}
	if acknowledgedBy.Valid {
		a.AcknowledgedBy = &acknowledgedBy.String
	}
	if acknowledgedAt.Valid {
		a.AcknowledgedAt = &acknowledgedAt.Time
	}
	return a, nil
}

// Create создает новое оповещение
func (r *AlertRepository) Create(a *models.Alert) error {
	query := `
		INSERT INTO risk_alerts (id, mandate_id, mandate_code, severity, message, details, acknowledged, superseded, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	var details []byte
	if a.Details != nil {
		b, err := alertJSON.Marshal(a.Details)
		if err != nil {
			return err
		}
		details = b
	}

	var mandateID interface{}
	if a.MandateID != nil {
		mandateID = *a.MandateID
	}

	_, err := r.db.Exec(
		query,
		a.ID,
		mandateID,
		a.MandateCode,
		a.Severity,
		a.Message,
		details,
		a.Acknowledged,
		a.Superseded,
		a.CreatedAt,
	)

	return err
}

// GetByID возвращает оповещение по ID
func (r *AlertRepository) GetByID(id string) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM risk_alerts WHERE id = $1`

	a, err := scanAlert(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}

	return a, nil
}

// GetUnacknowledged возвращает активные (неподтвержденные и не погашенные)
// оповещения, свежие первыми
func (r *AlertRepository) GetUnacknowledged() ([]*models.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM risk_alerts
		WHERE acknowledged = false AND superseded = false
		ORDER BY created_at DESC`

	return r.queryAlerts(query)
}

// GetRecent возвращает последние limit оповещений любого состояния
func (r *AlertRepository) GetRecent(limit int) ([]*models.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + alertColumns + `
		FROM risk_alerts
		ORDER BY created_at DESC
		LIMIT $1`

	return r.queryAlerts(query, limit)
}

func (r *AlertRepository) queryAlerts(query string, args ...interface{}) ([]*models.Alert, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return alerts, nil
}

// SupersedeUnacknowledged гасит все неподтвержденные оповещения мандата.
// Возвращает количество погашенных. Вызывается перед созданием нового
// оповещения, чтобы у мандата оставалось не более одного активного.
func (r *AlertRepository) SupersedeUnacknowledged(mandateID int) (int64, error) {
	query := `
		UPDATE risk_alerts
		SET superseded = true
		WHERE mandate_id = $1 AND acknowledged = false AND superseded = false`

	result, err := r.db.Exec(query, mandateID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// Acknowledge подтверждает оповещение.
//
// Условие acknowledged = false в UPDATE делает операцию атомарной:
// два конкурентных подтверждения не пройдут оба. Проигравший получает
// ErrAlertAcknowledged, несуществующий ID - ErrAlertNotFound.
func (r *AlertRepository) Acknowledge(id, user string, at time.Time) (*models.Alert, error) {
	query := `
		UPDATE risk_alerts
		SET acknowledged = true, acknowledged_by = $1, acknowledged_at = $2
		WHERE id = $3 AND acknowledged = false`

	result, err := r.db.Exec(query, user, at, id)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		// Различаем "нет такого" и "уже подтверждено"
		var acknowledged bool
		err := r.db.QueryRow(`SELECT acknowledged FROM risk_alerts WHERE id = $1`, id).Scan(&acknowledged)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		if err != nil {
			return nil, err
		}
		return nil, ErrAlertAcknowledged
	}

	return r.GetByID(id)
}

// CountUnacknowledged возвращает количество активных оповещений
func (r *AlertRepository) CountUnacknowledged() (int, error) {
	query := `SELECT COUNT(*) FROM risk_alerts WHERE acknowledged = false AND superseded = false`

	var count int
	err := r.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}
