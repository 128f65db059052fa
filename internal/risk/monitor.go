package risk

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"riskengine/internal/gateway"
	"riskengine/internal/models"
	"riskengine/pkg/utils"
)

// MandateStore - персистентность мандатов (таблица risk_mandates)
type MandateStore interface {
	GetActive() ([]*models.Mandate, error)
	UpdateEvaluation(id int, value float64, status string) error
}

// SnapshotStore - персистентность снапшотов (таблица risk_snapshots)
type SnapshotStore interface {
	Insert(s *models.RiskSnapshot) error
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// Monitor - периодический цикл оценки мандатов.
//
// Каждый тик: снять метрики у провайдера, персистировать снапшот,
// оценить все активные мандаты, отдать переходы диспетчеру.
//
// Тик, пришедший во время незавершенного цикла, ПРОПУСКАЕТСЯ
// (skip, не queue): опоздавший цикл не догоняется, следующий тик
// работает со свежими данными.
type Monitor struct {
	provider   gateway.SnapshotProvider
	mandates   MandateStore
	snapshots  SnapshotStore
	dispatcher *Dispatcher
	log        *utils.Logger

	interval  time.Duration
	retention time.Duration

	inFlight atomic.Bool

	mu     sync.RWMutex
	latest *models.RiskSnapshot

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewMonitor создает монитор. Интервал вне коридора 1-2s приводится
// к ближайшей границе: чаще секунды давить на провайдера нет смысла,
// реже двух секунд риск-деск считает устаревшим.
func NewMonitor(provider gateway.SnapshotProvider, mandates MandateStore, snapshots SnapshotStore, dispatcher *Dispatcher, log *utils.Logger, interval, retention time.Duration) *Monitor {
	if interval < time.Second {
		interval = time.Second
	}
	if interval > 2*time.Second {
		interval = 2 * time.Second
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if log == nil {
		log = utils.L()
	}
	return &Monitor{
		provider:   provider,
		mandates:   mandates,
		snapshots:  snapshots,
		dispatcher: dispatcher,
		log:        log.WithComponent("monitor"),
		interval:   interval,
		retention:  retention,
		stopCh:     make(chan struct{}),
	}
}

// Start запускает цикл оценки и janitor ретенции снапшотов
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(2)
	go m.loop(ctx)
	go m.janitor(ctx)
	m.log.Info("risk monitor started",
		utils.Duration("interval", m.interval),
		utils.Duration("retention", m.retention))
}

// Stop останавливает монитор и дожидается завершения текущего цикла
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	m.wg.Wait()
}

// LatestSnapshot возвращает последний успешно снятый снапшот
func (m *Monitor) LatestSnapshot() (*models.RiskSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == nil {
		return nil, false
	}
	cp := *m.latest
	return &cp, true
}

func (m *Monitor) loop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Первый цикл сразу, не дожидаясь первого тика
	m.RunCycle(ctx)

	for {
		select {
		case <-ticker.C:
			m.RunCycle(ctx)
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunCycle выполняет один цикл оценки. Экспортирован для вызова
// по требованию (тесты, ручной пересчет после правки лимитов).
func (m *Monitor) RunCycle(ctx context.Context) {
	if !m.inFlight.CompareAndSwap(false, true) {
		EvalCyclesSkipped.Inc()
		m.log.Warn("evaluation cycle skipped, previous cycle still running")
		return
	}
	defer m.inFlight.Store(false)

	start := time.Now()
	defer func() {
		EvalCycleDuration.Observe(time.Since(start).Seconds())
	}()

	cctx, cancel := context.WithTimeout(ctx, m.interval)
	metrics, err := m.provider.GetCurrentMetrics(cctx)
	cancel()
	if err != nil {
		// Провайдер недоступен: статусы мандатов замораживаются,
		// никаких переходов и оповещений в этом цикле.
		m.log.Error("snapshot provider unavailable, cycle aborted", utils.Err(err))
		return
	}

	snap := snapshotFromMetrics(metrics)

	if err := m.snapshots.Insert(snap); err != nil {
		// Потеря истории не мешает оценке текущего цикла
		m.log.Error("failed to persist risk snapshot", utils.Err(err))
	}

	m.mu.Lock()
	m.latest = snap
	m.mu.Unlock()

	active, err := m.mandates.GetActive()
	if err != nil {
		m.log.Error("failed to load active mandates", utils.Err(err))
		return
	}

	evals, transitions, evalErrs := EvaluateAll(active, snap, metrics.MandateValues)

	for _, e := range evalErrs {
		EvalErrors.WithLabelValues(e.MandateCode).Inc()
		m.log.Warn("mandate evaluation error",
			utils.MandateCode(e.MandateCode),
			utils.String("reason", e.Reason))
	}

	var okCount, warnCount, breachCount int
	for _, ev := range evals {
		if err := m.mandates.UpdateEvaluation(ev.Mandate.ID, ev.Value, ev.NewStatus); err != nil {
			m.log.Error("failed to persist mandate evaluation",
				utils.MandateCode(ev.Mandate.Code), utils.Err(err))
		}
		// Обновляем in-memory мандат, чтобы диспетчер и broadcast
		// видели уже новое состояние
		v := ev.Value
		ev.Mandate.CurrentValue = &v
		ev.Mandate.Status = ev.NewStatus
		ev.Mandate.UpdatedAt = snap.Timestamp

		switch ev.NewStatus {
		case models.MandateStatusBreach:
			breachCount++
		case models.MandateStatusWarning:
			warnCount++
		default:
			okCount++
		}
	}
	RecordMandateCounts(okCount, warnCount, breachCount)

	if len(transitions) > 0 {
		m.dispatcher.Dispatch(transitions)
	}
}

// janitor периодически удаляет снапшоты старше окна ретенции
func (m *Monitor) janitor(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-m.retention)
			n, err := m.snapshots.DeleteOlderThan(cutoff)
			if err != nil {
				m.log.Error("snapshot retention sweep failed", utils.Err(err))
				continue
			}
			if n > 0 {
				m.log.Debug("snapshot retention sweep", utils.Int("deleted", int(n)))
			}
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// snapshotFromMetrics переносит агрегаты провайдера в снапшот
func snapshotFromMetrics(mx *gateway.Metrics) *models.RiskSnapshot {
	ts := mx.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &models.RiskSnapshot{
		Timestamp:         ts,
		NetExposure:       mx.NetExposure,
		GrossExposure:     mx.GrossExposure,
		GrossLeverage:     mx.GrossLeverage,
		NetLeverage:       mx.NetLeverage,
		Var95:             mx.Var95,
		Var99:             mx.Var99,
		MaxDrawdown:       mx.MaxDrawdown,
		DailyPnl:          mx.DailyPnl,
		SectorExposures:   mx.SectorExposures,
		ConcentrationRisk: mx.ConcentrationRisk,
	}
}
