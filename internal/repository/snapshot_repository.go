package repository

import (
	"database/sql"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"

	"riskengine/internal/models"
)

var snapshotJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrSnapshotNotFound - снапшотов еще нет (холодный старт)
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotRepository - работа с таблицей risk_snapshots
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository создает новый экземпляр репозитория
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

const snapshotColumns = `id, ts, net_exposure, gross_exposure, gross_leverage, net_leverage, var_95, var_99, max_drawdown, daily_pnl, sector_exposures, concentration_risk`

// scanSnapshot читает одну строку в модель
func scanSnapshot(row interface{ Scan(...interface{}) error }) (*models.RiskSnapshot, error) {
	s := &models.RiskSnapshot{}
	var sectors []byte
	err := row.Scan(
		&s.ID,
		&s.Timestamp,
		&s.NetExposure,
		&s.GrossExposure,
		&s.GrossLeverage,
		&s.NetLeverage,
		&s.Var95,
		&s.Var99,
		&s.MaxDrawdown,
		&s.DailyPnl,
		&sectors,
		&s.ConcentrationRisk,
	)
	if err != nil {
		return nil, err
	}
	if len(sectors) > 0 {
		_ = snapshotJSON.Unmarshal(sectors, &s.SectorExposures)
	}
	return s, nil
}

// Insert записывает снапшот цикла оценки
func (r *SnapshotRepository) Insert(s *models.RiskSnapshot) error {
	query := `
		INSERT INTO risk_snapshots (ts, net_exposure, gross_exposure, gross_leverage, net_leverage, var_95, var_99, max_drawdown, daily_pnl, sector_exposures, concentration_risk)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}

	var sectors []byte
	if s.SectorExposures != nil {
		b, err := snapshotJSON.Marshal(s.SectorExposures)
		if err != nil {
			return err
		}
		sectors = b
	}

	return r.db.QueryRow(
		query,
		s.Timestamp,
		s.NetExposure,
		s.GrossExposure,
		s.GrossLeverage,
		s.NetLeverage,
		s.Var95,
		s.Var99,
		s.MaxDrawdown,
		s.DailyPnl,
		sectors,
		s.ConcentrationRisk,
	).Scan(&s.ID)
}

// GetLatest возвращает самый свежий снапшот
func (r *SnapshotRepository) GetLatest() (*models.RiskSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM risk_snapshots ORDER BY ts DESC LIMIT 1`

	s, err := scanSnapshot(r.db.QueryRow(query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}

	return s, nil
}

// GetRecent возвращает последние limit снапшотов, свежие первыми
func (r *SnapshotRepository) GetRecent(limit int) ([]*models.RiskSnapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + snapshotColumns + ` FROM risk_snapshots ORDER BY ts DESC LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*models.RiskSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return snapshots, nil
}

// DeleteOlderThan удаляет снапшоты старше cutoff.
// Возвращает количество удаленных строк.
func (r *SnapshotRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	query := `DELETE FROM risk_snapshots WHERE ts < $1`

	result, err := r.db.Exec(query, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
