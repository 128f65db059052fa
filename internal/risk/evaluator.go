package risk

import (
	"time"

	"riskengine/internal/models"
)

// Evaluator классифицирует мандаты по текущему значению против soft/hard лимитов.
//
// Классификация - чистое вычисление в памяти, без блокирующих вызовов
// и без мемоизации: каждый цикл считает заново, чтобы правка лимита
// применялась немедленно.
//
// Граничная конвенция (единая для всех типов ограничений):
// значение, РАВНОЕ лимиту, считается пробившим лимит (инклюзивно).

// Transition - событие смены статуса мандата.
// Эмитится только когда новый статус отличается от старого:
// циклы с неизменным статусом не порождают дубликатов оповещений.
type Transition struct {
	Mandate      *models.Mandate
	OldStatus    string
	NewStatus    string
	Value        float64
	SnapshotTime time.Time
}

// EvalError - ошибка оценки одного мандата.
// Не прерывает оценку остальных; статус мандата остается прежним.
type EvalError struct {
	MandateCode string
	Reason      string
}

func (e EvalError) Error() string {
	return "mandate " + e.MandateCode + ": " + e.Reason
}

// Breached проверяет пробой лимита в направлении, заданном его знаком:
// для неотрицательного лимита пробой = v >= limit,
// для отрицательного (drawdown) пробой = v <= limit.
func Breached(v, limit float64) bool {
	if limit >= 0 {
		return v >= limit
	}
	return v <= limit
}

// Classify возвращает статус мандата для данного значения:
// BREACH при пробое hard, иначе WARNING при пробое soft, иначе OK.
func Classify(value, softLimit, hardLimit float64) string {
	switch {
	case Breached(value, hardLimit):
		return models.MandateStatusBreach
	case Breached(value, softLimit):
		return models.MandateStatusWarning
	default:
		return models.MandateStatusOK
	}
}

// MetricForType - закрытое соответствие тип ограничения → агрегат снапшота.
// Используется как fallback, когда провайдер не дал значение по коду мандата.
// LIQUIDITY и MARGIN агрегата в снапшоте не имеют: для них значение
// обязан поставлять провайдер.
func MetricForType(snap *models.RiskSnapshot, constraintType string) (float64, bool) {
	if snap == nil {
		return 0, false
	}
	switch constraintType {
	case models.ConstraintDrawdown:
		return snap.MaxDrawdown, true
	case models.ConstraintGrossExposure:
		return snap.GrossExposure, true
	case models.ConstraintNetExposure:
		return snap.NetExposure, true
	case models.ConstraintLeverage:
		return snap.GrossLeverage, true
	case models.ConstraintVar95:
		return snap.Var95, true
	case models.ConstraintVar99:
		return snap.Var99, true
	case models.ConstraintSectorExposure:
		return snap.MaxSectorExposure()
	case models.ConstraintConcentration:
		return snap.ConcentrationRisk, true
	default:
		return 0, false
	}
}

// Evaluation - результат оценки одного мандата за цикл
type Evaluation struct {
	Mandate   *models.Mandate
	Value     float64
	NewStatus string
	Changed   bool
}

// EvaluateAll оценивает все активные мандаты против значений провайдера
// и агрегатов снапшота.
//
// Гарантии:
//   - неактивные мандаты пропускаются, их статус заморожен;
//   - отсутствующее значение для активного мандата → EvalError только
//     для него, остальные мандаты оцениваются как обычно;
//   - переход эмитится только при смене статуса.
//
// Мандаты не мутируются: запись нового значения/статуса - забота вызывающего
// (монитора), чтобы владение таблицей мандатов оставалось в одном месте.
func EvaluateAll(mandates []*models.Mandate, snap *models.RiskSnapshot, values map[string]float64) ([]Evaluation, []Transition, []EvalError) {
	var (
		evals       []Evaluation
		transitions []Transition
		errs        []EvalError
	)

	snapTime := time.Now()
	if snap != nil {
		snapTime = snap.Timestamp
	}

	for _, m := range mandates {
		if !m.IsActive {
			continue
		}

		value, ok := values[m.Code]
		if !ok {
			// Fallback на агрегат снапшота по типу ограничения
			value, ok = MetricForType(snap, m.ConstraintType)
		}
		if !ok {
			errs = append(errs, EvalError{
				MandateCode: m.Code,
				Reason:      "no metric value supplied for constraint type " + m.ConstraintType,
			})
			continue
		}

		newStatus := Classify(value, m.SoftLimit, m.HardLimit)
		changed := newStatus != m.Status

		evals = append(evals, Evaluation{
			Mandate:   m,
			Value:     value,
			NewStatus: newStatus,
			Changed:   changed,
		})

		if changed {
			transitions = append(transitions, Transition{
				Mandate:      m,
				OldStatus:    m.Status,
				NewStatus:    newStatus,
				Value:        value,
				SnapshotTime: snapTime,
			})
		}
	}

	return evals, transitions, errs
}

// CrossedLimit возвращает лимит, фигурирующий в переходе:
// hard для BREACH, иначе soft. Используется в деталях оповещений.
func CrossedLimit(m *models.Mandate, newStatus string) float64 {
	if newStatus == models.MandateStatusBreach {
		return m.HardLimit
	}
	return m.SoftLimit
}
