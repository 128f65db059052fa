package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"riskengine/internal/models"
)

// Ошибки репозитория мандатов
var (
	ErrMandateNotFound = errors.New("mandate not found")
	ErrMandateExists   = errors.New("mandate already exists")
)

// MandateRepository - работа с таблицей risk_mandates
type MandateRepository struct {
	db *sql.DB
}

// NewMandateRepository создает новый экземпляр репозитория
func NewMandateRepository(db *sql.DB) *MandateRepository {
	return &MandateRepository{db: db}
}

const mandateColumns = `id, code, description, constraint_type, soft_limit, hard_limit, current_value, status, is_active, updated_at`

// scanMandate читает одну строку в модель
func scanMandate(row interface{ Scan(...interface{}) error }) (*models.Mandate, error) {
	m := &models.Mandate{}
	var currentValue sql.NullFloat64
	err := row.Scan(
		&m.ID,
		&m.Code,
		&m.Description,
		&m.ConstraintType,
		&m.SoftLimit,
		&m.HardLimit,
		&currentValue,
		&m.Status,
		&m.IsActive,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if currentValue.Valid {
		m.CurrentValue = &currentValue.Float64
	}
	return m, nil
}

// Create создает новый мандат
func (r *MandateRepository) Create(m *models.Mandate) error {
	query := `
		INSERT INTO risk_mandates (code, description, constraint_type, soft_limit, hard_limit, status, is_active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	if m.Status == "" {
		m.Status = models.MandateStatusOK
	}
	m.UpdatedAt = time.Now().UTC()

	err := r.db.QueryRow(
		query,
		m.Code,
		m.Description,
		m.ConstraintType,
		m.SoftLimit,
		m.HardLimit,
		m.Status,
		m.IsActive,
		m.UpdatedAt,
	).Scan(&m.ID)

	if err != nil {
		if isMandateUniqueViolation(err) {
			return ErrMandateExists
		}
		return err
	}

	return nil
}

// GetByID возвращает мандат по ID
func (r *MandateRepository) GetByID(id int) (*models.Mandate, error) {
	query := `SELECT ` + mandateColumns + ` FROM risk_mandates WHERE id = $1`

	m, err := scanMandate(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMandateNotFound
		}
		return nil, err
	}

	return m, nil
}

// GetByCode возвращает мандат по коду (например "M-204")
func (r *MandateRepository) GetByCode(code string) (*models.Mandate, error) {
	query := `SELECT ` + mandateColumns + ` FROM risk_mandates WHERE code = $1`

	m, err := scanMandate(r.db.QueryRow(query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMandateNotFound
		}
		return nil, err
	}

	return m, nil
}

// GetAll возвращает все мандаты, включая отключенные
func (r *MandateRepository) GetAll() ([]*models.Mandate, error) {
	query := `SELECT ` + mandateColumns + ` FROM risk_mandates ORDER BY code`

	return r.queryMandates(query)
}

// GetActive возвращает только активные мандаты
func (r *MandateRepository) GetActive() ([]*models.Mandate, error) {
	query := `SELECT ` + mandateColumns + ` FROM risk_mandates WHERE is_active = true ORDER BY code`

	return r.queryMandates(query)
}

func (r *MandateRepository) queryMandates(query string, args ...interface{}) ([]*models.Mandate, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mandates []*models.Mandate
	for rows.Next() {
		m, err := scanMandate(rows)
		if err != nil {
			return nil, err
		}
		mandates = append(mandates, m)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return mandates, nil
}

// UpdateEvaluation записывает результат цикла оценки:
// свежее значение и вычисленный статус
func (r *MandateRepository) UpdateEvaluation(id int, value float64, status string) error {
	query := `
		UPDATE risk_mandates
		SET current_value = $1, status = $2, updated_at = $3
		WHERE id = $4`

	result, err := r.db.Exec(query, value, status, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrMandateNotFound
	}

	return nil
}

// UpdateLimits меняет лимиты мандата. Новый статус пересчитает
// ближайший цикл оценки, здесь статус не трогаем.
func (r *MandateRepository) UpdateLimits(code string, softLimit, hardLimit float64) error {
	query := `
		UPDATE risk_mandates
		SET soft_limit = $1, hard_limit = $2, updated_at = $3
		WHERE code = $4`

	result, err := r.db.Exec(query, softLimit, hardLimit, time.Now().UTC(), code)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrMandateNotFound
	}

	return nil
}

// SetActive включает или выключает мандат
func (r *MandateRepository) SetActive(code string, active bool) error {
	query := `
		UPDATE risk_mandates
		SET is_active = $1, updated_at = $2
		WHERE code = $3`

	result, err := r.db.Exec(query, active, time.Now().UTC(), code)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrMandateNotFound
	}

	return nil
}

// CountByStatus возвращает количество активных мандатов в данном статусе
func (r *MandateRepository) CountByStatus(status string) (int, error) {
	query := `SELECT COUNT(*) FROM risk_mandates WHERE is_active = true AND status = $1`

	var count int
	err := r.db.QueryRow(query, status).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// isMandateUniqueViolation проверяет нарушение UNIQUE constraint по коду
func isMandateUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "23505")
}
