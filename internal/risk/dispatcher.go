package risk

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"riskengine/internal/models"
	"riskengine/pkg/utils"
)

// AlertStore - персистентность оповещений (таблица risk_alerts).
// Acknowledge возвращает сентинельные ошибки хранилища
// (не найдено / уже подтверждено), диспетчер их не переозначивает.
type AlertStore interface {
	Create(a *models.Alert) error
	GetByID(id string) (*models.Alert, error)
	SupersedeUnacknowledged(mandateID int) (int64, error)
	Acknowledge(id, user string, at time.Time) (*models.Alert, error)
}

// Dispatcher превращает переходы статусов мандатов в оповещения.
//
// Инвариант: на мандат в любой момент не более одного неподтвержденного
// оповещения. Новый переход сначала гасит (supersede) старые
// неподтвержденные оповещения мандата, потом создает свежее.
type Dispatcher struct {
	store AlertStore
	audit AuditSink
	hub   Broadcaster
	log   *utils.Logger
}

// NewDispatcher создает диспетчер оповещений
func NewDispatcher(store AlertStore, audit AuditSink, hub Broadcaster, log *utils.Logger) *Dispatcher {
	if log == nil {
		log = utils.L()
	}
	return &Dispatcher{
		store: store,
		audit: audit,
		hub:   hub,
		log:   log.WithComponent("dispatcher"),
	}
}

// SeverityFor отображает переход статусов на уровень оповещения:
// BREACH → CRITICAL, эскалация в WARNING → WARNING, любое
// восстановление (→ OK, BREACH → WARNING) → INFO.
func SeverityFor(oldStatus, newStatus string) string {
	switch newStatus {
	case models.MandateStatusBreach:
		return models.SeverityCritical
	case models.MandateStatusWarning:
		// BREACH → WARNING - восстановление, не новая эскалация
		if oldStatus == models.MandateStatusBreach {
			return models.SeverityInfo
		}
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}

// Dispatch обрабатывает пачку переходов одного цикла оценки.
// Неудача по одному переходу логируется и не мешает остальным.
func (d *Dispatcher) Dispatch(transitions []Transition) {
	for _, t := range transitions {
		if err := d.dispatchOne(t); err != nil {
			d.log.Error("failed to dispatch alert",
				utils.MandateCode(t.Mandate.Code),
				utils.Err(err))
		}
	}
}

func (d *Dispatcher) dispatchOne(t Transition) error {
	severity := SeverityFor(t.OldStatus, t.NewStatus)
	limit := CrossedLimit(t.Mandate, t.NewStatus)

	alert := &models.Alert{
		ID:          uuid.NewString(),
		MandateID:   &t.Mandate.ID,
		MandateCode: t.Mandate.Code,
		Severity:    severity,
		Message:     alertMessage(t, limit),
		Details: &models.AlertDetails{
			MandateCode:    t.Mandate.Code,
			ConstraintType: t.Mandate.ConstraintType,
			CurrentValue:   t.Value,
			Limit:          limit,
			OldStatus:      t.OldStatus,
			NewStatus:      t.NewStatus,
			SnapshotTime:   t.SnapshotTime,
		},
		CreatedAt: time.Now().UTC(),
	}

	// Сначала supersede, потом create: между ними окно, в котором
	// у мандата нет неподтвержденных оповещений, что безопасно.
	// Обратный порядок дал бы два активных оповещения разом.
	superseded, err := d.store.SupersedeUnacknowledged(t.Mandate.ID)
	if err != nil {
		return fmt.Errorf("supersede for mandate %s: %w", t.Mandate.Code, err)
	}
	if superseded > 0 {
		d.log.Debug("superseded stale alerts",
			utils.MandateCode(t.Mandate.Code),
			utils.Int("count", int(superseded)))
	}

	if err := d.store.Create(alert); err != nil {
		return fmt.Errorf("create alert for mandate %s: %w", t.Mandate.Code, err)
	}

	AlertsDispatched.WithLabelValues(severity).Inc()
	MandateTransitions.WithLabelValues(t.NewStatus).Inc()

	if d.audit != nil {
		_ = d.audit.Record(&models.AuditEvent{
			Timestamp:    time.Now().UTC(),
			Actor:        models.SystemActor,
			Action:       models.AuditActionMandateTransition,
			ResourceType: models.AuditResourceMandate,
			ResourceID:   t.Mandate.Code,
			Detail:       transitionDetail(t),
		})
		_ = d.audit.Record(&models.AuditEvent{
			Timestamp:    time.Now().UTC(),
			Actor:        models.SystemActor,
			Action:       models.AuditActionAlertCreated,
			ResourceType: models.AuditResourceAlert,
			ResourceID:   alert.ID,
			Detail:       alertDetail(alert),
		})
	}

	if d.hub != nil {
		d.hub.BroadcastAlert(alert)
		d.hub.BroadcastMandate(t.Mandate)
	}

	d.log.Info("alert dispatched",
		utils.AlertID(alert.ID),
		utils.MandateCode(t.Mandate.Code),
		utils.Severity(severity),
		utils.String("old_status", t.OldStatus),
		utils.String("new_status", t.NewStatus),
		utils.Float64("value", t.Value))

	return nil
}

// Acknowledge подтверждает оповещение от имени пользователя.
//
// Не идемпотентно: повторное подтверждение возвращает ошибку конфликта
// из хранилища, чтобы вызывающий увидел, что оповещение уже закрыто.
func (d *Dispatcher) Acknowledge(id, user string) (*models.Alert, error) {
	alert, err := d.store.Acknowledge(id, user, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	AlertsAcknowledged.Inc()

	if d.audit != nil {
		_ = d.audit.Record(&models.AuditEvent{
			Timestamp:    time.Now().UTC(),
			Actor:        user,
			Action:       models.AuditActionAlertAcknowledged,
			ResourceType: models.AuditResourceAlert,
			ResourceID:   id,
		})
	}

	d.log.Info("alert acknowledged", utils.AlertID(id), utils.Actor(user))
	return alert, nil
}

// alertMessage строит человекочитаемый текст оповещения
func alertMessage(t Transition, limit float64) string {
	switch t.NewStatus {
	case models.MandateStatusBreach:
		return fmt.Sprintf("Mandate %s BREACH: %s value %.4f crossed hard limit %.4f",
			t.Mandate.Code, t.Mandate.ConstraintType, t.Value, limit)
	case models.MandateStatusWarning:
		if t.OldStatus == models.MandateStatusBreach {
			return fmt.Sprintf("Mandate %s recovered to WARNING: %s value %.4f back within hard limit, soft limit %.4f still crossed",
				t.Mandate.Code, t.Mandate.ConstraintType, t.Value, limit)
		}
		return fmt.Sprintf("Mandate %s WARNING: %s value %.4f crossed soft limit %.4f",
			t.Mandate.Code, t.Mandate.ConstraintType, t.Value, limit)
	default:
		return fmt.Sprintf("Mandate %s recovered to OK: %s value %.4f back within limits",
			t.Mandate.Code, t.Mandate.ConstraintType, t.Value)
	}
}
