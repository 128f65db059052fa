package risk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики риск-движка
// ============================================================
//
// Использование:
// - Grafana дашборды для риск-деска
// - Alertmanager на пропущенные циклы и PARTIAL ликвидации

// ============ Цикл оценки ============

// EvalCycleDuration - длительность полного цикла snapshot → evaluate → dispatch
var EvalCycleDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "riskengine",
		Subsystem: "monitor",
		Name:      "eval_cycle_duration_seconds",
		Help:      "Duration of a full snapshot/evaluate/dispatch cycle",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	},
)

// EvalCyclesSkipped - циклы, пропущенные из-за незавершенного предыдущего
var EvalCyclesSkipped = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "monitor",
		Name:      "eval_cycles_skipped_total",
		Help:      "Evaluation ticks skipped because the previous cycle was still running",
	},
)

// EvalErrors - ошибки оценки отдельных мандатов
var EvalErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "monitor",
		Name:      "eval_errors_total",
		Help:      "Per-mandate evaluation errors",
	},
	[]string{"mandate"},
)

// ============ Мандаты и оповещения ============

// MandateTransitions - переходы статусов мандатов
var MandateTransitions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "mandates",
		Name:      "transitions_total",
		Help:      "Mandate status transitions by resulting status",
	},
	[]string{"status"}, // OK, WARNING, BREACH
)

// MandatesByStatus - текущее распределение мандатов по статусам
var MandatesByStatus = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "riskengine",
		Subsystem: "mandates",
		Name:      "by_status",
		Help:      "Current number of active mandates per status",
	},
	[]string{"status"},
)

// AlertsDispatched - отправленные оповещения по уровням
var AlertsDispatched = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "alerts",
		Name:      "dispatched_total",
		Help:      "Alerts dispatched by severity",
	},
	[]string{"severity"}, // INFO, WARNING, CRITICAL
)

// AlertsAcknowledged - подтвержденные оповещения
var AlertsAcknowledged = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "alerts",
		Name:      "acknowledged_total",
		Help:      "Alerts acknowledged by operators",
	},
)

// ============ Kill switch ============

// KillSwitchInvocations - вызовы kill switch по итогу
var KillSwitchInvocations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "killswitch",
		Name:      "invocations_total",
		Help:      "Kill switch invocations by outcome",
	},
	[]string{"outcome"}, // SUCCESS, PARTIAL, FAILED
)

// KillSwitchInFlight - идет ли ликвидация прямо сейчас
var KillSwitchInFlight = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "riskengine",
		Subsystem: "killswitch",
		Name:      "in_flight",
		Help:      "1 while a kill switch invocation is in progress",
	},
)

// KillSwitchOrdersCancelled - суммарно отмененные ордера
var KillSwitchOrdersCancelled = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "killswitch",
		Name:      "orders_cancelled_total",
		Help:      "Orders cancelled by kill switch invocations",
	},
)

// KillSwitchPositionsClosed - суммарно закрытые позиции
var KillSwitchPositionsClosed = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "killswitch",
		Name:      "positions_closed_total",
		Help:      "Positions closed by kill switch invocations",
	},
)

// AuditQueueDepth - глубина очереди асинхронного аудита
var AuditQueueDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "riskengine",
		Subsystem: "audit",
		Name:      "queue_depth",
		Help:      "Pending audit records awaiting persistence",
	},
)

// AuditDropped - потерянные записи аудита (переполнение очереди или
// исчерпание retry). Любое ненулевое значение - повод для алерта.
var AuditDropped = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "audit",
		Name:      "dropped_total",
		Help:      "Audit records lost after queue overflow or retry exhaustion",
	},
)

// ============ Вспомогательные функции ============

// RecordMandateCounts обновляет gauge распределения по статусам
func RecordMandateCounts(ok, warning, breach int) {
	MandatesByStatus.WithLabelValues("OK").Set(float64(ok))
	MandatesByStatus.WithLabelValues("WARNING").Set(float64(warning))
	MandatesByStatus.WithLabelValues("BREACH").Set(float64(breach))
}
