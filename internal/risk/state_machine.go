package risk

// Состояния оркестратора kill switch
const (
	StateIdle          = "IDLE"
	StateGating        = "GATING"
	StateCancelling    = "CANCELLING"
	StateLiquidating   = "LIQUIDATING"
	StateComplete      = "COMPLETE"
	StateFailedPartial = "FAILED_PARTIAL"
)

// ValidTransitions определяет допустимые переходы между состояниями
var ValidTransitions = map[string][]string{
	StateIdle:          {StateGating},
	StateGating:        {StateCancelling, StateIdle}, // Idle при неудаче гейта (FAILED)
	StateCancelling:    {StateLiquidating, StateFailedPartial},
	StateLiquidating:   {StateComplete, StateFailedPartial},
	StateComplete:      {StateIdle}, // сброс после записи события
	StateFailedPartial: {StateIdle},
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal возвращает true для терминальных состояний вызова
func IsTerminal(s string) bool {
	return s == StateComplete || s == StateFailedPartial
}

// StateInfo возвращает описание состояния для логов и UI
func StateInfo(s string) string {
	switch s {
	case StateIdle:
		return "Kill switch не активен, вызовов нет"
	case StateGating:
		return "Блокировка приема новых ордеров..."
	case StateCancelling:
		return "Отмена всех открытых ордеров..."
	case StateLiquidating:
		return "Закрытие всех позиций..."
	case StateComplete:
		return "Ликвидация завершена"
	case StateFailedPartial:
		return "Ликвидация завершена частично"
	default:
		return "Неизвестное состояние"
	}
}
