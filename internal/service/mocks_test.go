package service

import (
	"context"
	"time"

	"riskengine/internal/models"
	"riskengine/internal/risk"
)

// ============================================================
// Моки репозиториев и живых компонентов для тестов сервисов
// ============================================================

type mockMandateRepo struct {
	CreateFunc           func(m *models.Mandate) error
	GetByIDFunc          func(id int) (*models.Mandate, error)
	GetByCodeFunc        func(code string) (*models.Mandate, error)
	GetAllFunc           func() ([]*models.Mandate, error)
	GetActiveFunc        func() ([]*models.Mandate, error)
	UpdateEvaluationFunc func(id int, value float64, status string) error
	UpdateLimitsFunc     func(code string, softLimit, hardLimit float64) error
	SetActiveFunc        func(code string, active bool) error
	CountByStatusFunc    func(status string) (int, error)
}

func (m *mockMandateRepo) Create(mandate *models.Mandate) error { return m.CreateFunc(mandate) }
func (m *mockMandateRepo) GetByID(id int) (*models.Mandate, error) {
	return m.GetByIDFunc(id)
}
func (m *mockMandateRepo) GetByCode(code string) (*models.Mandate, error) {
	return m.GetByCodeFunc(code)
}
func (m *mockMandateRepo) GetAll() ([]*models.Mandate, error)    { return m.GetAllFunc() }
func (m *mockMandateRepo) GetActive() ([]*models.Mandate, error) { return m.GetActiveFunc() }
func (m *mockMandateRepo) UpdateEvaluation(id int, value float64, status string) error {
	return m.UpdateEvaluationFunc(id, value, status)
}
func (m *mockMandateRepo) UpdateLimits(code string, softLimit, hardLimit float64) error {
	return m.UpdateLimitsFunc(code, softLimit, hardLimit)
}
func (m *mockMandateRepo) SetActive(code string, active bool) error {
	return m.SetActiveFunc(code, active)
}
func (m *mockMandateRepo) CountByStatus(status string) (int, error) {
	return m.CountByStatusFunc(status)
}

type mockAlertRepo struct {
	CreateFunc                  func(a *models.Alert) error
	GetByIDFunc                 func(id string) (*models.Alert, error)
	GetUnacknowledgedFunc       func() ([]*models.Alert, error)
	GetRecentFunc               func(limit int) ([]*models.Alert, error)
	SupersedeUnacknowledgedFunc func(mandateID int) (int64, error)
	AcknowledgeFunc             func(id, user string, at time.Time) (*models.Alert, error)
	CountUnacknowledgedFunc     func() (int, error)
}

func (m *mockAlertRepo) Create(a *models.Alert) error { return m.CreateFunc(a) }
func (m *mockAlertRepo) GetByID(id string) (*models.Alert, error) {
	return m.GetByIDFunc(id)
}
func (m *mockAlertRepo) GetUnacknowledged() ([]*models.Alert, error) {
	return m.GetUnacknowledgedFunc()
}
func (m *mockAlertRepo) GetRecent(limit int) ([]*models.Alert, error) {
	return m.GetRecentFunc(limit)
}
func (m *mockAlertRepo) SupersedeUnacknowledged(mandateID int) (int64, error) {
	return m.SupersedeUnacknowledgedFunc(mandateID)
}
func (m *mockAlertRepo) Acknowledge(id, user string, at time.Time) (*models.Alert, error) {
	return m.AcknowledgeFunc(id, user, at)
}
func (m *mockAlertRepo) CountUnacknowledged() (int, error) { return m.CountUnacknowledgedFunc() }

type mockSnapshotRepo struct {
	InsertFunc          func(s *models.RiskSnapshot) error
	GetLatestFunc       func() (*models.RiskSnapshot, error)
	GetRecentFunc       func(limit int) ([]*models.RiskSnapshot, error)
	DeleteOlderThanFunc func(cutoff time.Time) (int64, error)
}

func (m *mockSnapshotRepo) Insert(s *models.RiskSnapshot) error { return m.InsertFunc(s) }
func (m *mockSnapshotRepo) GetLatest() (*models.RiskSnapshot, error) {
	return m.GetLatestFunc()
}
func (m *mockSnapshotRepo) GetRecent(limit int) ([]*models.RiskSnapshot, error) {
	return m.GetRecentFunc(limit)
}
func (m *mockSnapshotRepo) DeleteOlderThan(cutoff time.Time) (int64, error) {
	return m.DeleteOlderThanFunc(cutoff)
}

type mockKillSwitchRepo struct {
	CreateEventFunc     func(ev *models.KillSwitchEvent) error
	GetEventByIDFunc    func(id string) (*models.KillSwitchEvent, error)
	GetRecentEventsFunc func(limit int) ([]*models.KillSwitchEvent, error)
	GetStateFunc        func() (*models.KillSwitchState, error)
	SetStateFunc        func(st *models.KillSwitchState) error
}

func (m *mockKillSwitchRepo) CreateEvent(ev *models.KillSwitchEvent) error {
	return m.CreateEventFunc(ev)
}
func (m *mockKillSwitchRepo) GetEventByID(id string) (*models.KillSwitchEvent, error) {
	return m.GetEventByIDFunc(id)
}
func (m *mockKillSwitchRepo) GetRecentEvents(limit int) ([]*models.KillSwitchEvent, error) {
	return m.GetRecentEventsFunc(limit)
}
func (m *mockKillSwitchRepo) GetState() (*models.KillSwitchState, error) {
	return m.GetStateFunc()
}
func (m *mockKillSwitchRepo) SetState(st *models.KillSwitchState) error {
	return m.SetStateFunc(st)
}

type mockSnapshotSource struct {
	snap *models.RiskSnapshot
}

func (m *mockSnapshotSource) LatestSnapshot() (*models.RiskSnapshot, bool) {
	if m.snap == nil {
		return nil, false
	}
	return m.snap, true
}

type mockExecutor struct {
	ExecuteFunc func(ctx context.Context, req risk.KillSwitchRequest) (*risk.KillSwitchResult, error)
	state       string
	flag        models.KillSwitchState
}

func (m *mockExecutor) Execute(ctx context.Context, req risk.KillSwitchRequest) (*risk.KillSwitchResult, error) {
	return m.ExecuteFunc(ctx, req)
}
func (m *mockExecutor) State() (string, models.KillSwitchState) {
	if m.state == "" {
		return risk.StateIdle, m.flag
	}
	return m.state, m.flag
}

type mockAuditSink struct {
	records []*models.AuditEvent
}

func (m *mockAuditSink) Record(ev *models.AuditEvent) error {
	m.records = append(m.records, ev)
	return nil
}

type mockAcknowledger struct {
	AcknowledgeFunc func(id, user string) (*models.Alert, error)
}

func (m *mockAcknowledger) Acknowledge(id, user string) (*models.Alert, error) {
	return m.AcknowledgeFunc(id, user)
}
