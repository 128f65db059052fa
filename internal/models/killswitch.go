package models

import "time"

// KillSwitchEvent - запись об одном вызове kill switch.
//
// Создается ровно один раз на вызов, append-only.
// Это учетная запись действия: счетчики отмен/закрытий и итоговый outcome.
type KillSwitchEvent struct {
	ID              string     `json:"id" db:"id"` // UUID
	InitiatedBy     string     `json:"initiated_by" db:"initiated_by"`
	Reason          string     `json:"reason" db:"reason"`
	RequestedAt     time.Time  `json:"requested_at" db:"requested_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	OrdersCancelled int        `json:"orders_cancelled" db:"orders_cancelled"`
	OrdersFailed    int        `json:"orders_failed" db:"orders_failed"`
	PositionsClosed int        `json:"positions_closed" db:"positions_closed"`
	PositionsFailed int        `json:"positions_failed" db:"positions_failed"`
	Outcome         string     `json:"outcome" db:"outcome"`
}

// Итоги вызова kill switch
const (
	// OutcomeSuccess - все отмены и закрытия прошли успешно
	OutcomeSuccess = "SUCCESS"
	// OutcomePartial - гейт применен, но часть ордеров/позиций не обработана
	OutcomePartial = "PARTIAL"
	// OutcomeFailed - не удалось применить гейт, ордера и позиции не тронуты
	OutcomeFailed = "FAILED"
)

// KillSwitchState - глобальный флаг kill switch.
//
// Версионируемый value-объект: мутации выполняет только оркестратор,
// читатели получают консистентную копию. Инициализируется неактивным
// при старте процесса; сам движок никогда его не сбрасывает -
// сброс требует явного административного действия вне этого ядра.
type KillSwitchState struct {
	Active  bool      `json:"active" db:"active"`
	Since   time.Time `json:"since,omitempty" db:"since"`
	Reason  string    `json:"reason,omitempty" db:"reason"`
	Version int64     `json:"version" db:"version"`
}
