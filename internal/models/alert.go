package models

import "time"

// Alert - оповещение о переходе мандата в WARNING/BREACH или о восстановлении.
//
// Жизненный цикл: создается диспетчером при смене статуса мандата;
// мутируется только подтверждением (acknowledge) или вытеснением (supersede);
// никогда не удаляется - закрывается флагом.
type Alert struct {
	ID             string         `json:"id" db:"id"` // UUID
	MandateID      *int           `json:"mandate_ref,omitempty" db:"mandate_id"`
	MandateCode    string         `json:"mandate_id" db:"mandate_code"`
	Severity       string         `json:"severity" db:"severity"`
	Message        string         `json:"message" db:"message"`
	Details        *AlertDetails  `json:"details,omitempty" db:"details"` // структурированные детали (JSONB в БД)
	Acknowledged   bool           `json:"acknowledged" db:"acknowledged"`
	AcknowledgedBy *string        `json:"acknowledged_by,omitempty" db:"acknowledged_by"`
	AcknowledgedAt *time.Time     `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
	Superseded     bool           `json:"superseded" db:"superseded"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// AlertDetails - закрытая структура деталей оповещения.
// Открытая map намеренно не используется: набор полей фиксирован.
type AlertDetails struct {
	MandateCode    string    `json:"mandate_id"`
	ConstraintType string    `json:"constraint_type"`
	CurrentValue   float64   `json:"current_value"`
	Limit          float64   `json:"limit"` // пересеченный лимит: hard при BREACH, soft при WARNING
	OldStatus      string    `json:"old_status"`
	NewStatus      string    `json:"new_status"`
	SnapshotTime   time.Time `json:"snapshot_timestamp"`
}

// Уровни важности оповещений
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// IsValidSeverity проверяет допустимость уровня важности
func IsValidSeverity(s string) bool {
	return s == SeverityInfo || s == SeverityWarning || s == SeverityCritical
}
