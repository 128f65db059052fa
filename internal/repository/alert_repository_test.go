package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"riskengine/internal/models"
)

// ============================================================
// AlertRepository Tests
// ============================================================

func alertRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "mandate_id", "mandate_code", "severity", "message", "details", "acknowledged", "acknowledged_by", "acknowledged_at", "superseded", "created_at"})
}

func TestAlertRepositoryCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mandateID := 1
	alert := &models.Alert{
		ID:          "a1b2c3",
		MandateID:   &mandateID,
		MandateCode: "M-204",
		Severity:    models.SeverityCritical,
		Message:     "Mandate M-204 BREACH",
		Details: &models.AlertDetails{
			MandateCode:    "M-204",
			ConstraintType: "DRAWDOWN",
			CurrentValue:   -0.031,
			Limit:          -0.030,
			OldStatus:      "WARNING",
			NewStatus:      "BREACH",
		},
	}

	mock.ExpectExec(`INSERT INTO risk_alerts`).
		WithArgs("a1b2c3", 1, "M-204", models.SeverityCritical, "Mandate M-204 BREACH", sqlmock.AnyArg(), false, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewAlertRepository(db)
	if err := repo.Create(alert); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestAlertRepositoryGetByID(t *testing.T) {
	t.Run("success with details", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		details := `{"mandate_code":"M-204","constraint_type":"DRAWDOWN","current_value":-0.028,"limit":-0.025,"old_status":"OK","new_status":"WARNING"}`
		rows := alertRows().
			AddRow("a1", 1, "M-204", "WARNING", "Mandate M-204 WARNING", []byte(details), false, nil, nil, false, time.Now())
		mock.ExpectQuery(`SELECT .+ FROM risk_alerts WHERE id = \$1`).
			WithArgs("a1").
			WillReturnRows(rows)

		repo := NewAlertRepository(db)
		a, err := repo.GetByID("a1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if a.Details == nil {
			t.Fatal("expected details to be parsed")
		}
		if a.Details.CurrentValue != -0.028 {
			t.Errorf("expected current value -0.028, got %v", a.Details.CurrentValue)
		}
		if a.MandateID == nil || *a.MandateID != 1 {
			t.Errorf("expected mandate_id 1, got %v", a.MandateID)
		}
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery(`SELECT .+ FROM risk_alerts WHERE id = \$1`).
			WithArgs("missing").
			WillReturnRows(alertRows())

		repo := NewAlertRepository(db)
		_, err = repo.GetByID("missing")
		if !errors.Is(err, ErrAlertNotFound) {
			t.Errorf("expected ErrAlertNotFound, got %v", err)
		}
	})
}

func TestAlertRepositorySupersedeUnacknowledged(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE risk_alerts`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewAlertRepository(db)
	n, err := repo.SupersedeUnacknowledged(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 superseded, got %d", n)
	}
}

func TestAlertRepositoryAcknowledge(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		now := time.Now()
		mock.ExpectExec(`UPDATE risk_alerts`).
			WithArgs("risk_admin", now, "a1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		rows := alertRows().
			AddRow("a1", 1, "M-204", "WARNING", "msg", nil, true, "risk_admin", now, false, now)
		mock.ExpectQuery(`SELECT .+ FROM risk_alerts WHERE id = \$1`).
			WithArgs("a1").
			WillReturnRows(rows)

		repo := NewAlertRepository(db)
		a, err := repo.Acknowledge("a1", "risk_admin", now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !a.Acknowledged {
			t.Error("expected acknowledged = true")
		}
		if a.AcknowledgedBy == nil || *a.AcknowledgedBy != "risk_admin" {
			t.Errorf("expected acknowledged_by risk_admin, got %v", a.AcknowledgedBy)
		}
	})

	t.Run("already acknowledged", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		now := time.Now()
		mock.ExpectExec(`UPDATE risk_alerts`).
			WithArgs("second_user", now, "a1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT acknowledged FROM risk_alerts WHERE id = \$1`).
			WithArgs("a1").
			WillReturnRows(sqlmock.NewRows([]string{"acknowledged"}).AddRow(true))

		repo := NewAlertRepository(db)
		_, err = repo.Acknowledge("a1", "second_user", now)
		if !errors.Is(err, ErrAlertAcknowledged) {
			t.Errorf("expected ErrAlertAcknowledged, got %v", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("failed to create mock: %v", err)
		}
		defer db.Close()

		now := time.Now()
		mock.ExpectExec(`UPDATE risk_alerts`).
			WithArgs("user", now, "missing").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT acknowledged FROM risk_alerts WHERE id = \$1`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"acknowledged"}))

		repo := NewAlertRepository(db)
		_, err = repo.Acknowledge("missing", "user", now)
		if !errors.Is(err, ErrAlertNotFound) {
			t.Errorf("expected ErrAlertNotFound, got %v", err)
		}
	})
}

func TestAlertRepositoryGetUnacknowledged(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	now := time.Now()
	rows := alertRows().
		AddRow("a2", 2, "M-502", "CRITICAL", "msg2", nil, false, nil, nil, false, now).
		AddRow("a1", 1, "M-204", "WARNING", "msg1", nil, false, nil, nil, false, now.Add(-time.Minute))
	mock.ExpectQuery(`SELECT .+ FROM risk_alerts`).
		WillReturnRows(rows)

	repo := NewAlertRepository(db)
	alerts, err := repo.GetUnacknowledged()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].ID != "a2" {
		t.Errorf("expected newest first, got %s", alerts[0].ID)
	}
}
