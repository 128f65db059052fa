package repository

import (
	"database/sql"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"

	"riskengine/internal/models"
)

var ksJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrEventNotFound - событие kill switch не найдено
var ErrEventNotFound = errors.New("kill switch event not found")

// systemStateKillSwitchKey - ключ персистентного флага в system_state
const systemStateKillSwitchKey = "kill_switch"

// KillSwitchRepository - работа с таблицами kill_switch_events и system_state
type KillSwitchRepository struct {
	db *sql.DB
}

// NewKillSwitchRepository создает новый экземпляр репозитория
func NewKillSwitchRepository(db *sql.DB) *KillSwitchRepository {
	return &KillSwitchRepository{db: db}
}

const eventColumns = `id, initiated_by, reason, requested_at, completed_at, orders_cancelled, orders_failed, positions_closed, positions_failed, outcome`

// scanEvent читает одну строку в модель
func scanEvent(row interface{ Scan(...interface{}) error }) (*models.KillSwitchEvent, error) {
	ev := &models.KillSwitchEvent{}
	var completedAt sql.NullTime
	err := row.Scan(
		&ev.ID,
		&ev.InitiatedBy,
		&ev.Reason,
		&ev.RequestedAt,
		&completedAt,
		&ev.OrdersCancelled,
		&ev.OrdersFailed,
		&ev.PositionsClosed,
		&ev.PositionsFailed,
		&ev.Outcome,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		ev.CompletedAt = &completedAt.Time
	}
	return ev, nil
}

// CreateEvent записывает терминальное событие вызова kill switch
func (r *KillSwitchRepository) CreateEvent(ev *models.KillSwitchEvent) error {
	query := `
		INSERT INTO kill_switch_events (id, initiated_by, reason, requested_at, completed_at, orders_cancelled, orders_failed, positions_closed, positions_failed, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var completedAt interface{}
	if ev.CompletedAt != nil {
		completedAt = *ev.CompletedAt
	}

	_, err := r.db.Exec(
		query,
		ev.ID,
		ev.InitiatedBy,
		ev.Reason,
		ev.RequestedAt,
		completedAt,
		ev.OrdersCancelled,
		ev.OrdersFailed,
		ev.PositionsClosed,
		ev.PositionsFailed,
		ev.Outcome,
	)

	return err
}

// GetEventByID возвращает событие по ID
func (r *KillSwitchRepository) GetEventByID(id string) (*models.KillSwitchEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM kill_switch_events WHERE id = $1`

	ev, err := scanEvent(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	return ev, nil
}

// GetRecentEvents возвращает последние limit событий, свежие первыми
func (r *KillSwitchRepository) GetRecentEvents(limit int) ([]*models.KillSwitchEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + eventColumns + ` FROM kill_switch_events ORDER BY requested_at DESC LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.KillSwitchEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// GetState возвращает персистентный флаг kill switch.
// Отсутствие записи - не ошибка: (nil, nil) означает холодный старт.
func (r *KillSwitchRepository) GetState() (*models.KillSwitchState, error) {
	query := `SELECT value FROM system_state WHERE key = $1`

	var value []byte
	err := r.db.QueryRow(query, systemStateKillSwitchKey).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	st := &models.KillSwitchState{}
	if err := ksJSON.Unmarshal(value, st); err != nil {
		return nil, err
	}

	return st, nil
}

// SetState записывает флаг kill switch (upsert по ключу)
func (r *KillSwitchRepository) SetState(st *models.KillSwitchState) error {
	query := `
		INSERT INTO system_state (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = $3`

	value, err := ksJSON.Marshal(st)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(query, systemStateKillSwitchKey, value, time.Now().UTC())
	return err
}
