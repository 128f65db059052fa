package risk

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"riskengine/internal/models"
)

type mockAuditStore struct {
	mu       sync.Mutex
	records  []*models.AuditEvent
	failures int // первые N записей падают
}

func (s *mockAuditStore) Record(ev *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("db down")
	}
	s.records = append(s.records, ev)
	return nil
}

func (s *mockAuditStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func TestAuditorRecordAndDrain(t *testing.T) {
	store := &mockAuditStore{}
	a := NewAuditor(store, nil, 8)
	a.Start(context.Background())

	for i := 0; i < 5; i++ {
		if err := a.Record(&models.AuditEvent{Action: models.AuditActionKillSwitch, ResourceID: "ks-1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Stop дренирует очередь перед выходом
	a.Stop()

	if store.count() != 5 {
		t.Errorf("expected 5 records after drain, got %d", store.count())
	}
}

func TestAuditorRecordNeverBlocks(t *testing.T) {
	// Воркер не запущен: очередь на 1 элемент переполняется вторым Record
	a := NewAuditor(&mockAuditStore{}, nil, 1)

	if err := a.Record(&models.AuditEvent{Action: "first"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- a.Record(&models.AuditEvent{Action: "second"})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrAuditQueueFull) {
			t.Errorf("expected ErrAuditQueueFull, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}
}

func TestAuditorRetriesTransientFailures(t *testing.T) {
	store := &mockAuditStore{failures: 2}
	a := NewAuditor(store, nil, 4)
	a.Start(context.Background())

	if err := a.Record(&models.AuditEvent{Action: models.AuditActionAlertAcknowledged}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a.Stop()

	if store.count() != 1 {
		t.Errorf("record must land after transient failures, got %d", store.count())
	}
}

func TestAuditorFillsTimestamp(t *testing.T) {
	store := &mockAuditStore{}
	a := NewAuditor(store, nil, 4)
	a.Start(context.Background())

	ev := &models.AuditEvent{Action: models.AuditActionKillSwitch}
	if err := a.Record(ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.Stop()

	if ev.Timestamp.IsZero() {
		t.Error("timestamp must be filled on enqueue")
	}
}

func TestAuditDetail(t *testing.T) {
	ev := &models.KillSwitchEvent{
		Reason:          "volatility spike",
		Outcome:         models.OutcomePartial,
		OrdersCancelled: 8,
		OrdersFailed:    2,
		PositionsClosed: 5,
	}

	detail := auditDetail(ev)
	for _, want := range []string{`"outcome":"PARTIAL"`, `"orders_cancelled":8`, `"orders_failed":2`} {
		if !strings.Contains(detail, want) {
			t.Errorf("detail missing %s: %s", want, detail)
		}
	}
}

func TestTransitionDetail(t *testing.T) {
	detail := transitionDetail(drawdownTransition(models.MandateStatusOK, models.MandateStatusWarning, -0.028))
	for _, want := range []string{`"mandate_code":"M-204"`, `"new_status":"WARNING"`, `"limit":-0.025`} {
		if !strings.Contains(detail, want) {
			t.Errorf("detail missing %s: %s", want, detail)
		}
	}
}
