package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"riskengine/internal/models"
)

// ============================================================
// AuditRepository Tests
// ============================================================

func TestAuditRepositoryRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	ev := &models.AuditEvent{
		Timestamp:    now,
		Actor:        "risk_admin",
		Action:       models.AuditActionKillSwitch,
		ResourceType: models.AuditResourceKillSwitch,
		ResourceID:   "ks-1",
		Detail:       `{"outcome":"PARTIAL"}`,
	}

	mock.ExpectQuery(`INSERT INTO audit_events`).
		WithArgs(now, "risk_admin", models.AuditActionKillSwitch, models.AuditResourceKillSwitch, "ks-1", `{"outcome":"PARTIAL"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	repo := NewAuditRepository(db)
	if err := repo.Record(ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ev.ID != 7 {
		t.Errorf("expected assigned id 7, got %d", ev.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestAuditRepositoryRecordFillsTimestamp(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	ev := &models.AuditEvent{
		Actor:        models.SystemActor,
		Action:       models.AuditActionMandateTransition,
		ResourceType: models.AuditResourceMandate,
		ResourceID:   "M-204",
	}

	// Пустой detail уходит в БД как NULL
	mock.ExpectQuery(`INSERT INTO audit_events`).
		WithArgs(sqlmock.AnyArg(), models.SystemActor, models.AuditActionMandateTransition, models.AuditResourceMandate, "M-204", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	repo := NewAuditRepository(db)
	if err := repo.Record(ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ev.Timestamp.IsZero() {
		t.Error("expected timestamp to be filled")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestAuditRepositoryGetRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "ts", "actor", "action", "resource_type", "resource_id", "detail"}).
		AddRow(int64(2), now, "risk_admin", models.AuditActionAlertAcknowledged, models.AuditResourceAlert, "a-1", `{"user":"risk_admin"}`).
		AddRow(int64(1), now.Add(-time.Minute), models.SystemActor, models.AuditActionMandateTransition, models.AuditResourceMandate, "M-204", nil)

	mock.ExpectQuery(`SELECT id, ts, actor, action, resource_type, resource_id, detail`).
		WithArgs(100).
		WillReturnRows(rows)

	repo := NewAuditRepository(db)
	events, err := repo.GetRecent(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ID != 2 || events[0].Actor != "risk_admin" {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].Detail != "" {
		t.Errorf("NULL detail must scan to empty string, got %q", events[1].Detail)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
