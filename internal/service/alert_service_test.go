package service

import (
	"context"
	"errors"
	"testing"

	"riskengine/internal/models"
	"riskengine/internal/repository"
	"riskengine/internal/risk"
)

func TestAlertServiceGetAlerts(t *testing.T) {
	t.Run("active only", func(t *testing.T) {
		alertRepo := &mockAlertRepo{
			GetUnacknowledgedFunc: func() ([]*models.Alert, error) {
				return []*models.Alert{{ID: "a1"}}, nil
			},
		}

		svc := NewAlertService(alertRepo, &mockAcknowledger{})

		alerts, err := svc.GetAlerts(true, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(alerts) != 1 || alerts[0].ID != "a1" {
			t.Errorf("unexpected alerts: %+v", alerts)
		}
	})

	t.Run("recent with history", func(t *testing.T) {
		var gotLimit int
		alertRepo := &mockAlertRepo{
			GetRecentFunc: func(limit int) ([]*models.Alert, error) {
				gotLimit = limit
				return nil, nil
			},
		}

		svc := NewAlertService(alertRepo, &mockAcknowledger{})

		alerts, err := svc.GetAlerts(false, 25)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotLimit != 25 {
			t.Errorf("expected limit 25, got %d", gotLimit)
		}
		if alerts == nil {
			t.Error("expected empty slice, got nil")
		}
	})
}

func TestAlertServiceAcknowledge(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		ackErr    error
		expectErr error
	}{
		{
			name: "success",
			id:   "a1",
		},
		{
			name:      "empty id",
			id:        "  ",
			expectErr: ErrAlertIDEmpty,
		},
		{
			name:      "not found",
			id:        "missing",
			ackErr:    repository.ErrAlertNotFound,
			expectErr: ErrAlertNotFound,
		},
		{
			name:      "already acknowledged",
			id:        "a1",
			ackErr:    repository.ErrAlertAcknowledged,
			expectErr: ErrAlertAcknowledged,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &mockAcknowledger{
				AcknowledgeFunc: func(id, user string) (*models.Alert, error) {
					if tt.ackErr != nil {
						return nil, tt.ackErr
					}
					return &models.Alert{ID: id, Acknowledged: true}, nil
				},
			}

			svc := NewAlertService(&mockAlertRepo{}, ack)

			alert, err := svc.Acknowledge(tt.id, "risk_admin")

			if tt.expectErr != nil {
				if !errors.Is(err, tt.expectErr) {
					t.Errorf("expected %v, got %v", tt.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !alert.Acknowledged {
				t.Error("expected acknowledged alert")
			}
		})
	}
}

func TestKillSwitchServiceExecute(t *testing.T) {
	executor := &mockExecutor{
		ExecuteFunc: func(ctx context.Context, req risk.KillSwitchRequest) (*risk.KillSwitchResult, error) {
			if req.Reason != "volatility spike" {
				t.Errorf("reason not forwarded: %q", req.Reason)
			}
			if req.Role != models.RoleAdmin {
				t.Errorf("role not forwarded: %q", req.Role)
			}
			return &risk.KillSwitchResult{
				Event: &models.KillSwitchEvent{Outcome: models.OutcomeSuccess},
			}, nil
		},
	}

	svc := NewKillSwitchService(executor, &mockKillSwitchRepo{})

	result, err := svc.Execute(context.Background(), "risk_admin", models.RoleAdmin, "volatility spike")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Event.Outcome != models.OutcomeSuccess {
		t.Errorf("expected SUCCESS, got %s", result.Event.Outcome)
	}
}

func TestKillSwitchServiceGetStatus(t *testing.T) {
	executor := &mockExecutor{
		state: risk.StateIdle,
		flag:  models.KillSwitchState{Active: true, Reason: "flat book"},
	}
	ksRepo := &mockKillSwitchRepo{
		GetRecentEventsFunc: func(limit int) ([]*models.KillSwitchEvent, error) {
			return []*models.KillSwitchEvent{{ID: "ks-1", Outcome: models.OutcomePartial}}, nil
		},
	}

	svc := NewKillSwitchService(executor, ksRepo)

	status, err := svc.GetStatus()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.State != risk.StateIdle {
		t.Errorf("expected IDLE, got %s", status.State)
	}
	if !status.Flag.Active {
		t.Error("expected active flag")
	}
	if len(status.RecentEvents) != 1 {
		t.Errorf("expected 1 event, got %d", len(status.RecentEvents))
	}
}
