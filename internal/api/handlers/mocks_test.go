package handlers

import (
	"context"

	"riskengine/internal/models"
	"riskengine/internal/risk"
	"riskengine/internal/service"
)

// ============ Mock Risk Service ============

type mockRiskService struct {
	GetOverviewFunc         func() (*service.RiskOverview, error)
	GetMandatesFunc         func() ([]*models.Mandate, error)
	GetMandateFunc          func(code string) (*models.Mandate, error)
	UpdateMandateLimitsFunc func(code, actor string, soft, hard float64) (*models.Mandate, error)
	SetMandateActiveFunc    func(code string, active bool) (*models.Mandate, error)
}

func (m *mockRiskService) GetOverview() (*service.RiskOverview, error) {
	if m.GetOverviewFunc != nil {
		return m.GetOverviewFunc()
	}
	return &service.RiskOverview{}, nil
}

func (m *mockRiskService) GetMandates() ([]*models.Mandate, error) {
	if m.GetMandatesFunc != nil {
		return m.GetMandatesFunc()
	}
	return []*models.Mandate{}, nil
}

func (m *mockRiskService) GetMandate(code string) (*models.Mandate, error) {
	if m.GetMandateFunc != nil {
		return m.GetMandateFunc(code)
	}
	return &models.Mandate{Code: code}, nil
}

func (m *mockRiskService) UpdateMandateLimits(code, actor string, soft, hard float64) (*models.Mandate, error) {
	if m.UpdateMandateLimitsFunc != nil {
		return m.UpdateMandateLimitsFunc(code, actor, soft, hard)
	}
	return &models.Mandate{Code: code, SoftLimit: soft, HardLimit: hard}, nil
}

func (m *mockRiskService) SetMandateActive(code string, active bool) (*models.Mandate, error) {
	if m.SetMandateActiveFunc != nil {
		return m.SetMandateActiveFunc(code, active)
	}
	return &models.Mandate{Code: code, IsActive: active}, nil
}

// ============ Mock Alert Service ============

type mockAlertService struct {
	GetAlertsFunc   func(activeOnly bool, limit int) ([]*models.Alert, error)
	AcknowledgeFunc func(id, user string) (*models.Alert, error)
}

func (m *mockAlertService) GetAlerts(activeOnly bool, limit int) ([]*models.Alert, error) {
	if m.GetAlertsFunc != nil {
		return m.GetAlertsFunc(activeOnly, limit)
	}
	return []*models.Alert{}, nil
}

func (m *mockAlertService) Acknowledge(id, user string) (*models.Alert, error) {
	if m.AcknowledgeFunc != nil {
		return m.AcknowledgeFunc(id, user)
	}
	return &models.Alert{ID: id, Acknowledged: true}, nil
}

// ============ Mock Kill Switch Service ============

type mockKillSwitchService struct {
	ExecuteFunc   func(ctx context.Context, initiatedBy, role, reason string) (*risk.KillSwitchResult, error)
	GetStatusFunc func() (*service.KillSwitchStatus, error)
}

func (m *mockKillSwitchService) Execute(ctx context.Context, initiatedBy, role, reason string) (*risk.KillSwitchResult, error) {
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, initiatedBy, role, reason)
	}
	return &risk.KillSwitchResult{
		Event: &models.KillSwitchEvent{Outcome: models.OutcomeSuccess},
		State: models.KillSwitchState{Active: true},
	}, nil
}

func (m *mockKillSwitchService) GetStatus() (*service.KillSwitchStatus, error) {
	if m.GetStatusFunc != nil {
		return m.GetStatusFunc()
	}
	return &service.KillSwitchStatus{State: risk.StateIdle}, nil
}
