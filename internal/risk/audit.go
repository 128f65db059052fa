package risk

import (
	"context"
	"errors"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"riskengine/internal/models"
	"riskengine/pkg/retry"
	"riskengine/pkg/utils"
)

var auditJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// AuditStore - персистентный журнал аудита (таблица audit_events)
type AuditStore interface {
	Record(ev *models.AuditEvent) error
}

// ErrAuditQueueFull - очередь аудита переполнена, запись не принята
var ErrAuditQueueFull = errors.New("audit queue is full")

// Auditor - асинхронная обертка над AuditStore.
//
// Record никогда не блокирует вызывающего: запись ставится в очередь,
// воркер пишет в хранилище с экспоненциальным retry. Потеря записи
// (переполнение очереди, исчерпание попыток) логируется и считается
// метрикой, но НЕ блокирует и не откатывает риск-операции.
type Auditor struct {
	store AuditStore
	log   *utils.Logger
	queue chan *models.AuditEvent
	cfg   retry.Config

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewAuditor создает аудитор с буфером queueSize записей
func NewAuditor(store AuditStore, log *utils.Logger, queueSize int) *Auditor {
	if queueSize <= 0 {
		queueSize = 256
	}
	if log == nil {
		log = utils.L()
	}
	return &Auditor{
		store:  store,
		log:    log.WithComponent("auditor"),
		queue:  make(chan *models.AuditEvent, queueSize),
		cfg:    retry.ConservativeConfig(),
		stopCh: make(chan struct{}),
	}
}

// Start запускает воркер записи. Вызывается один раз при старте процесса.
func (a *Auditor) Start(ctx context.Context) {
	a.wg.Add(1)
	go a.run(ctx)
}

// Stop дожидается дренажа очереди и останавливает воркер
func (a *Auditor) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)
	})
	a.wg.Wait()
}

// Record ставит запись в очередь. Ошибка только при переполнении.
func (a *Auditor) Record(ev *models.AuditEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	select {
	case a.queue <- ev:
		AuditQueueDepth.Set(float64(len(a.queue)))
		return nil
	default:
		AuditDropped.Inc()
		a.log.Error("audit queue overflow, record dropped",
			utils.String("action", ev.Action),
			utils.String("resource_id", ev.ResourceID))
		return ErrAuditQueueFull
	}
}

func (a *Auditor) run(ctx context.Context) {
	defer a.wg.Done()

	for {
		select {
		case ev := <-a.queue:
			a.write(ctx, ev)
			AuditQueueDepth.Set(float64(len(a.queue)))
		case <-a.stopCh:
			// Дренаж остатка очереди перед выходом
			for {
				select {
				case ev := <-a.queue:
					a.write(ctx, ev)
				default:
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// write пишет запись с retry. Финальная неудача логируется и считается.
func (a *Auditor) write(ctx context.Context, ev *models.AuditEvent) {
	err := retry.Do(ctx, func() error {
		return a.store.Record(ev)
	}, a.cfg)
	if err != nil {
		AuditDropped.Inc()
		a.log.Error("audit record lost after retries",
			utils.String("action", ev.Action),
			utils.String("resource_id", ev.ResourceID),
			utils.Err(err))
	}
}

// ============ Сборка detail-полей ============

// auditDetail сериализует итог kill switch для поля detail
func auditDetail(ev *models.KillSwitchEvent) string {
	detail := map[string]interface{}{
		"reason":           ev.Reason,
		"outcome":          ev.Outcome,
		"orders_cancelled": ev.OrdersCancelled,
		"orders_failed":    ev.OrdersFailed,
		"positions_closed": ev.PositionsClosed,
		"positions_failed": ev.PositionsFailed,
	}
	b, err := auditJSON.Marshal(detail)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// alertDetail сериализует созданное оповещение для поля detail
func alertDetail(a *models.Alert) string {
	detail := map[string]interface{}{
		"mandate_code": a.MandateCode,
		"severity":     a.Severity,
		"message":      a.Message,
	}
	b, err := auditJSON.Marshal(detail)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// transitionDetail сериализует переход статуса мандата для поля detail
func transitionDetail(t Transition) string {
	detail := map[string]interface{}{
		"mandate_code": t.Mandate.Code,
		"old_status":   t.OldStatus,
		"new_status":   t.NewStatus,
		"value":        t.Value,
		"limit":        CrossedLimit(t.Mandate, t.NewStatus),
	}
	b, err := auditJSON.Marshal(detail)
	if err != nil {
		return "{}"
	}
	return string(b)
}
