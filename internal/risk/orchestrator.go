package risk

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"riskengine/internal/gateway"
	"riskengine/internal/models"
	"riskengine/pkg/utils"
)

// KillSwitchStore - персистентность событий kill switch и глобального флага
type KillSwitchStore interface {
	CreateEvent(ev *models.KillSwitchEvent) error
	GetState() (*models.KillSwitchState, error)
	SetState(st *models.KillSwitchState) error
}

// AuditSink - append-only журнал аудита.
// Запись может не удаться - тогда результат помечается degraded,
// но уже примененный гейт/отмены НИКОГДА не откатываются.
type AuditSink interface {
	Record(ev *models.AuditEvent) error
}

// Broadcaster - push-канал risk_alerts для клиентов
type Broadcaster interface {
	BroadcastAlert(a *models.Alert)
	BroadcastMandate(m *models.Mandate)
	BroadcastKillSwitch(ev *models.KillSwitchEvent, st *models.KillSwitchState)
}

// KillSwitchRequest - запрос на экстренную ликвидацию
type KillSwitchRequest struct {
	InitiatedBy string
	Role        string
	Reason      string
}

// KillSwitchResult - терминальный результат вызова.
// Оркестратор всегда возвращает результат, а не паникует:
// неудачи фаз представлены значением Outcome события.
type KillSwitchResult struct {
	Event         *models.KillSwitchEvent `json:"event"`
	State         models.KillSwitchState  `json:"state"`
	AlreadyActive bool                    `json:"already_active"` // флаг уже был активен, ликвидация не перезапускалась
	Degraded      bool                    `json:"degraded"`       // событие/аудит не записались, действие при этом применено
}

// Orchestrator исполняет kill switch как логически атомарную,
// идемпотентную операцию: GATING → CANCELLING → LIQUIDATING → COMPLETE.
//
// Инварианты:
//   - одновременно не более одного вызова (CAS IDLE → GATING);
//   - гейт наблюдаем шлюзом ДО первого cancel/close запроса;
//   - повторный вызов при активном флаге - no-op успех;
//   - FAILED (гейт не применился) не оставляет флаг активным;
//   - флаг мутирует только оркестратор, читатели получают копию.
type Orchestrator struct {
	gw      gateway.OrderGateway
	store   KillSwitchStore
	audit   AuditSink
	hub     Broadcaster
	log     *utils.Logger
	timeout time.Duration // бюджет на каждую фазу обращения к шлюзу

	mu    sync.Mutex
	state string
	flag  models.KillSwitchState
}

// NewOrchestrator создает оркестратор в состоянии IDLE с неактивным флагом
func NewOrchestrator(gw gateway.OrderGateway, store KillSwitchStore, audit AuditSink, hub Broadcaster, log *utils.Logger, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = utils.L()
	}
	return &Orchestrator{
		gw:      gw,
		store:   store,
		audit:   audit,
		hub:     hub,
		log:     log.WithComponent("orchestrator"),
		timeout: timeout,
		state:   StateIdle,
	}
}

// Restore загружает персистентный флаг при старте процесса.
// Отсутствие записи - нормальный холодный старт (флаг неактивен).
func (o *Orchestrator) Restore() error {
	if o.store == nil {
		return nil
	}
	st, err := o.store.GetState()
	if err != nil {
		return err
	}
	if st != nil {
		o.mu.Lock()
		o.flag = *st
		o.mu.Unlock()
	}
	return nil
}

// State возвращает текущее состояние оркестратора и копию флага
func (o *Orchestrator) State() (string, models.KillSwitchState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state, o.flag
}

// Active сообщает, активен ли глобальный kill switch
func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.flag.Active
}

// Execute выполняет kill switch и возвращает терминальный результат.
//
// Ошибки возвращаются ТОЛЬКО для отклонений до побочных эффектов
// (валидация, авторизация, конкурентный вызов). Все, что случилось
// после применения гейта, выражается через Outcome события.
func (o *Orchestrator) Execute(ctx context.Context, req KillSwitchRequest) (*KillSwitchResult, error) {
	// Предусловия - до любых изменений состояния и обращений к шлюзу
	if strings.TrimSpace(req.Reason) == "" {
		return nil, ErrInvalidRequest
	}
	if req.Role != models.RoleAdmin {
		return nil, ErrUnauthorized
	}

	// Single-flight: CAS IDLE → GATING под мьютексом.
	// Повторный вызов при активном флаге - идемпотентный no-op.
	o.mu.Lock()
	if o.flag.Active {
		cp := o.flag
		o.mu.Unlock()
		o.log.Info("kill switch already active, repeat invocation is a no-op",
			utils.Actor(req.InitiatedBy))
		return &KillSwitchResult{State: cp, AlreadyActive: true}, nil
	}
	if o.state != StateIdle {
		o.mu.Unlock()
		return nil, ErrAlreadyInProgress
	}
	o.state = StateGating
	o.mu.Unlock()

	KillSwitchInFlight.Set(1)
	defer KillSwitchInFlight.Set(0)

	ev := &models.KillSwitchEvent{
		ID:          uuid.NewString(),
		InitiatedBy: req.InitiatedBy,
		Reason:      req.Reason,
		RequestedAt: time.Now().UTC(),
	}

	o.log.Warn("KILL SWITCH invoked",
		utils.Actor(req.InitiatedBy),
		utils.Reason(req.Reason),
		utils.EventID(ev.ID))

	// GATING: блокировка приема новых ордеров строго ДО cancel-all.
	// Ни один ордер, принятый после наблюдения гейта, не переживет отмену.
	gctx, cancelGate := context.WithTimeout(ctx, o.timeout)
	gateErr := o.gw.GateNewOrders(gctx, true)
	cancelGate()

	if gateErr != nil {
		// Гейт не применился: ордера и позиции не тронуты,
		// флаг НЕ выставляется - подавления не произошло.
		o.transition(StateIdle)
		now := time.Now().UTC()
		ev.CompletedAt = &now
		ev.Outcome = models.OutcomeFailed
		degraded := o.persist(ev, nil)
		KillSwitchInvocations.WithLabelValues(models.OutcomeFailed).Inc()
		o.log.Error("kill switch gate failed, nothing was touched",
			utils.EventID(ev.ID), utils.Err(gateErr))
		o.mu.Lock()
		cp := o.flag
		o.mu.Unlock()
		return &KillSwitchResult{Event: ev, State: cp, Degraded: degraded}, nil
	}

	// CANCELLING: best-effort отмена всех открытых ордеров.
	// Индивидуальные неудачи учитываются, но не прерывают фазу.
	o.transition(StateCancelling)
	cctx, cancelCancel := context.WithTimeout(ctx, o.timeout)
	cancelResults, cancelErr := o.gw.CancelAllOrders(cctx)
	cancelCancel()

	for _, r := range cancelResults {
		if r.OK {
			ev.OrdersCancelled++
		} else {
			ev.OrdersFailed++
		}
	}
	if cancelErr != nil {
		o.log.Error("cancel-all failed or timed out", utils.EventID(ev.ID), utils.Err(cancelErr))
	}

	// LIQUIDATING: best-effort закрытие всех позиций по рынку
	o.transition(StateLiquidating)
	lctx, cancelClose := context.WithTimeout(ctx, o.timeout)
	closeResults, closeErr := o.gw.CloseAllPositions(lctx)
	cancelClose()

	for _, r := range closeResults {
		if r.OK {
			ev.PositionsClosed++
		} else {
			ev.PositionsFailed++
		}
	}
	if closeErr != nil {
		o.log.Error("close-all failed or timed out", utils.EventID(ev.ID), utils.Err(closeErr))
	}

	// Итог: SUCCESS только если ни одной неудачи и шлюз отвечал
	now := time.Now().UTC()
	ev.CompletedAt = &now
	if cancelErr == nil && closeErr == nil && ev.OrdersFailed == 0 && ev.PositionsFailed == 0 {
		ev.Outcome = models.OutcomeSuccess
		o.transition(StateComplete)
	} else {
		ev.Outcome = models.OutcomePartial
		o.transition(StateFailedPartial)
	}

	// Гейт применен - флаг становится активным даже при PARTIAL
	o.mu.Lock()
	o.flag = models.KillSwitchState{
		Active:  true,
		Since:   now,
		Reason:  req.Reason,
		Version: o.flag.Version + 1,
	}
	flagCopy := o.flag
	o.mu.Unlock()

	degraded := o.persist(ev, &flagCopy)
	o.transition(StateIdle)

	KillSwitchInvocations.WithLabelValues(ev.Outcome).Inc()
	KillSwitchOrdersCancelled.Add(float64(ev.OrdersCancelled))
	KillSwitchPositionsClosed.Add(float64(ev.PositionsClosed))

	if o.hub != nil {
		o.hub.BroadcastKillSwitch(ev, &flagCopy)
	}

	o.log.Warn("KILL SWITCH completed",
		utils.EventID(ev.ID),
		utils.Outcome(ev.Outcome),
		utils.Int("orders_cancelled", ev.OrdersCancelled),
		utils.Int("orders_failed", ev.OrdersFailed),
		utils.Int("positions_closed", ev.PositionsClosed),
		utils.Int("positions_failed", ev.PositionsFailed))

	return &KillSwitchResult{Event: ev, State: flagCopy, Degraded: degraded}, nil
}

// transition переводит state machine с проверкой допустимости перехода.
// Недопустимый переход - баг оркестратора: логируется и применяется
// принудительно, чтобы не зависнуть в промежуточном состоянии.
func (o *Orchestrator) transition(to string) {
	o.mu.Lock()
	from := o.state
	if !CanTransition(from, to) {
		o.log.Error("invalid kill switch state transition forced",
			utils.String("from", from), utils.String("to", to))
	}
	o.state = to
	o.mu.Unlock()
}

// persist записывает событие, флаг и аудит.
// Неудача любой записи дает degraded-результат, но не блокирует
// и не откатывает уже примененные действия шлюза.
func (o *Orchestrator) persist(ev *models.KillSwitchEvent, st *models.KillSwitchState) bool {
	degraded := false

	if o.store != nil {
		if st != nil {
			if err := o.store.SetState(st); err != nil {
				degraded = true
				o.log.Error("failed to persist kill switch state", utils.EventID(ev.ID), utils.Err(err))
			}
		}
		if err := o.store.CreateEvent(ev); err != nil {
			degraded = true
			o.log.Error("failed to persist kill switch event", utils.EventID(ev.ID), utils.Err(err))
		}
	}

	if o.audit != nil {
		rec := &models.AuditEvent{
			Timestamp:    time.Now().UTC(),
			Actor:        ev.InitiatedBy,
			Action:       models.AuditActionKillSwitch,
			ResourceType: models.AuditResourceKillSwitch,
			ResourceID:   ev.ID,
			Detail:       auditDetail(ev),
		}
		if err := o.audit.Record(rec); err != nil {
			degraded = true
			o.log.Error("failed to write kill switch audit record", utils.EventID(ev.ID), utils.Err(err))
		}
	}

	return degraded
}
