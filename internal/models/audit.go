package models

import "time"

// AuditEvent - запись журнала аудита.
//
// Журнал append-only: каждый переход мандата, каждое оповещение,
// каждое подтверждение и каждый вызов kill switch оставляют запись.
type AuditEvent struct {
	ID           int64     `json:"id" db:"id"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	Actor        string    `json:"actor" db:"actor"` // пользователь или "system" для циклов оценки
	Action       string    `json:"action" db:"action"`
	ResourceType string    `json:"resource_type" db:"resource_type"`
	ResourceID   string    `json:"resource_id" db:"resource_id"`
	Detail       string    `json:"detail,omitempty" db:"detail"` // JSON-сериализованные детали
}

// Типы аудируемых действий
const (
	AuditActionMandateTransition = "MANDATE_TRANSITION"
	AuditActionMandateUpdate     = "MANDATE_UPDATE"
	AuditActionAlertCreated      = "ALERT_CREATED"
	AuditActionAlertAcknowledged = "ALERT_ACKNOWLEDGED"
	AuditActionKillSwitch        = "KILL_SWITCH_EXECUTE"
)

// Типы ресурсов аудита
const (
	AuditResourceMandate    = "mandate"
	AuditResourceAlert      = "alert"
	AuditResourceKillSwitch = "kill_switch"
)

// SystemActor - actor для действий, инициированных самим движком
const SystemActor = "system"
