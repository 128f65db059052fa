package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"riskengine/internal/api/middleware"
	"riskengine/internal/models"
	"riskengine/internal/risk"
	"riskengine/internal/service"
)

func executeRequest(handler *KillSwitchHandler, body string, user *models.UserContext) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/kill-switch", strings.NewReader(body))
	if user != nil {
		req = req.WithContext(middleware.ContextWithUser(req.Context(), user))
	}
	w := httptest.NewRecorder()
	handler.Execute(w, req)
	return w
}

// ============ KillSwitchHandler Tests ============

func TestKillSwitchHandler_Execute(t *testing.T) {
	admin := &models.UserContext{ID: "u1", Username: "risk_admin", Role: models.RoleAdmin}

	t.Run("success returns terminal outcome", func(t *testing.T) {
		var gotInitiator, gotRole, gotReason string
		mockSvc := &mockKillSwitchService{
			ExecuteFunc: func(ctx context.Context, initiatedBy, role, reason string) (*risk.KillSwitchResult, error) {
				gotInitiator, gotRole, gotReason = initiatedBy, role, reason
				return &risk.KillSwitchResult{
					Event: &models.KillSwitchEvent{
						Outcome:         models.OutcomeSuccess,
						OrdersCancelled: 10,
						OrdersFailed:    0,
						PositionsClosed: 3,
					},
					State: models.KillSwitchState{Active: true},
				}, nil
			},
		}
		handler := NewKillSwitchHandler(mockSvc)

		w := executeRequest(handler, `{"reason": "volatility spike", "confirm": true}`, admin)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}
		if gotInitiator != "risk_admin" || gotRole != models.RoleAdmin {
			t.Errorf("unexpected initiator %q / role %q", gotInitiator, gotRole)
		}
		if gotReason != "volatility spike" {
			t.Errorf("unexpected reason %q", gotReason)
		}

		var result struct {
			Event struct {
				Outcome         string `json:"outcome"`
				OrdersCancelled int    `json:"orders_cancelled"`
			} `json:"event"`
			State struct {
				Active bool `json:"active"`
			} `json:"state"`
		}
		if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if result.Event.Outcome != models.OutcomeSuccess {
			t.Errorf("expected outcome SUCCESS, got %q", result.Event.Outcome)
		}
		if result.Event.OrdersCancelled != 10 {
			t.Errorf("expected 10 cancelled orders, got %d", result.Event.OrdersCancelled)
		}
		if !result.State.Active {
			t.Error("expected active kill switch flag after success")
		}
	})

	t.Run("partial outcome still returns 200", func(t *testing.T) {
		mockSvc := &mockKillSwitchService{
			ExecuteFunc: func(ctx context.Context, initiatedBy, role, reason string) (*risk.KillSwitchResult, error) {
				return &risk.KillSwitchResult{
					Event: &models.KillSwitchEvent{
						Outcome:         models.OutcomePartial,
						OrdersCancelled: 8,
						OrdersFailed:    2,
					},
					State: models.KillSwitchState{Active: true},
				}, nil
			},
		}
		handler := NewKillSwitchHandler(mockSvc)

		w := executeRequest(handler, `{"reason": "desk request", "confirm": true}`, admin)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if !strings.Contains(w.Body.String(), models.OutcomePartial) {
			t.Errorf("expected PARTIAL outcome in response: %s", w.Body.String())
		}
	})

	t.Run("missing confirm is rejected before the service", func(t *testing.T) {
		called := false
		mockSvc := &mockKillSwitchService{
			ExecuteFunc: func(ctx context.Context, initiatedBy, role, reason string) (*risk.KillSwitchResult, error) {
				called = true
				return nil, nil
			},
		}
		handler := NewKillSwitchHandler(mockSvc)

		w := executeRequest(handler, `{"reason": "volatility spike"}`, admin)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
		if called {
			t.Error("service must not be called without confirm: true")
		}
	})

	t.Run("error mapping", func(t *testing.T) {
		tests := []struct {
			name         string
			svcErr       error
			expectedCode int
		}{
			{"empty reason", risk.ErrInvalidRequest, http.StatusBadRequest},
			{"insufficient role", risk.ErrUnauthorized, http.StatusForbidden},
			{"concurrent invocation", risk.ErrAlreadyInProgress, http.StatusConflict},
			{"store failure", context.DeadlineExceeded, http.StatusInternalServerError},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mockSvc := &mockKillSwitchService{
					ExecuteFunc: func(ctx context.Context, initiatedBy, role, reason string) (*risk.KillSwitchResult, error) {
						return nil, tt.svcErr
					},
				}
				handler := NewKillSwitchHandler(mockSvc)

				w := executeRequest(handler, `{"reason": "x", "confirm": true}`, admin)

				if w.Code != tt.expectedCode {
					t.Errorf("expected status %d, got %d: %s", tt.expectedCode, w.Code, w.Body.String())
				}
			})
		}
	})

	t.Run("unauthenticated request gives 401", func(t *testing.T) {
		handler := NewKillSwitchHandler(&mockKillSwitchService{})

		w := executeRequest(handler, `{"reason": "x", "confirm": true}`, nil)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
		}
	})

	t.Run("malformed body gives 400", func(t *testing.T) {
		handler := NewKillSwitchHandler(&mockKillSwitchService{})

		w := executeRequest(handler, `{broken`, admin)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}

func TestKillSwitchHandler_GetStatus(t *testing.T) {
	mockSvc := &mockKillSwitchService{
		GetStatusFunc: func() (*service.KillSwitchStatus, error) {
			return &service.KillSwitchStatus{
				State: risk.StateIdle,
				Flag:  models.KillSwitchState{Active: false, Version: 3},
				RecentEvents: []*models.KillSwitchEvent{
					{Outcome: models.OutcomeSuccess},
				},
			}, nil
		},
	}
	handler := NewKillSwitchHandler(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/risk/kill-switch", nil)
	w := httptest.NewRecorder()
	handler.GetStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var status struct {
		State string `json:"state"`
		Flag  struct {
			Version int `json:"version"`
		} `json:"flag"`
	}
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.State != risk.StateIdle {
		t.Errorf("expected IDLE state, got %q", status.State)
	}
	if status.Flag.Version != 3 {
		t.Errorf("expected flag version 3, got %d", status.Flag.Version)
	}
}
