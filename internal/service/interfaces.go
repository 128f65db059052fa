package service

import (
	"context"
	"time"

	"riskengine/internal/models"
	"riskengine/internal/repository"
	"riskengine/internal/risk"
)

// MandateRepositoryInterface определяет интерфейс репозитория мандатов
type MandateRepositoryInterface interface {
	Create(m *models.Mandate) error
	GetByID(id int) (*models.Mandate, error)
	GetByCode(code string) (*models.Mandate, error)
	GetAll() ([]*models.Mandate, error)
	GetActive() ([]*models.Mandate, error)
	UpdateEvaluation(id int, value float64, status string) error
	UpdateLimits(code string, softLimit, hardLimit float64) error
	SetActive(code string, active bool) error
	CountByStatus(status string) (int, error)
}

// AlertRepositoryInterface определяет интерфейс репозитория оповещений
type AlertRepositoryInterface interface {
	Create(a *models.Alert) error
	GetByID(id string) (*models.Alert, error)
	GetUnacknowledged() ([]*models.Alert, error)
	GetRecent(limit int) ([]*models.Alert, error)
	SupersedeUnacknowledged(mandateID int) (int64, error)
	Acknowledge(id, user string, at time.Time) (*models.Alert, error)
	CountUnacknowledged() (int, error)
}

// SnapshotRepositoryInterface определяет интерфейс репозитория снапшотов
type SnapshotRepositoryInterface interface {
	Insert(s *models.RiskSnapshot) error
	GetLatest() (*models.RiskSnapshot, error)
	GetRecent(limit int) ([]*models.RiskSnapshot, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// KillSwitchRepositoryInterface определяет интерфейс репозитория kill switch
type KillSwitchRepositoryInterface interface {
	CreateEvent(ev *models.KillSwitchEvent) error
	GetEventByID(id string) (*models.KillSwitchEvent, error)
	GetRecentEvents(limit int) ([]*models.KillSwitchEvent, error)
	GetState() (*models.KillSwitchState, error)
	SetState(st *models.KillSwitchState) error
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ MandateRepositoryInterface = (*repository.MandateRepository)(nil)
var _ AlertRepositoryInterface = (*repository.AlertRepository)(nil)
var _ SnapshotRepositoryInterface = (*repository.SnapshotRepository)(nil)
var _ KillSwitchRepositoryInterface = (*repository.KillSwitchRepository)(nil)

// ============ Интерфейсы живых компонентов ============

// SnapshotSource - источник последнего снапшота в памяти (монитор)
type SnapshotSource interface {
	LatestSnapshot() (*models.RiskSnapshot, bool)
}

// KillSwitchExecutor - исполнитель kill switch (оркестратор)
type KillSwitchExecutor interface {
	Execute(ctx context.Context, req risk.KillSwitchRequest) (*risk.KillSwitchResult, error)
	State() (string, models.KillSwitchState)
}

// AlertAcknowledger - подтверждение оповещений с аудитом (диспетчер)
type AlertAcknowledger interface {
	Acknowledge(id, user string) (*models.Alert, error)
}

// ============ Интерфейсы сервисов для Dependency Injection ============

// RiskServiceInterface определяет интерфейс риск-сервиса
type RiskServiceInterface interface {
	GetOverview() (*RiskOverview, error)
	GetMandates() ([]*models.Mandate, error)
	GetMandate(code string) (*models.Mandate, error)
	UpdateMandateLimits(code, actor string, softLimit, hardLimit float64) (*models.Mandate, error)
	SetMandateActive(code string, active bool) (*models.Mandate, error)
}

// AlertServiceInterface определяет интерфейс сервиса оповещений
type AlertServiceInterface interface {
	GetAlerts(activeOnly bool, limit int) ([]*models.Alert, error)
	Acknowledge(id, user string) (*models.Alert, error)
}

// KillSwitchServiceInterface определяет интерфейс сервиса kill switch
type KillSwitchServiceInterface interface {
	Execute(ctx context.Context, initiatedBy, role, reason string) (*risk.KillSwitchResult, error)
	GetStatus() (*KillSwitchStatus, error)
}

// Проверяем, что реальные сервисы реализуют интерфейсы
var _ RiskServiceInterface = (*RiskService)(nil)
var _ AlertServiceInterface = (*AlertService)(nil)
var _ KillSwitchServiceInterface = (*KillSwitchService)(nil)
