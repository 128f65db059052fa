package models

import "time"

// Mandate представляет риск-мандат - именованное ограничение портфеля
// с мягким (warning) и жестким (breach) порогом.
//
// Инвариант: Status - чистая функция от (CurrentValue, SoftLimit, HardLimit)
// и НИКОГДА не выставляется напрямую, минуя Evaluator.
type Mandate struct {
	ID             int       `json:"id" db:"id"`
	Code           string    `json:"mandate_id" db:"code"` // стабильный уникальный код, например "M-204"
	Description    string    `json:"description" db:"description"`
	ConstraintType string    `json:"constraint_type" db:"constraint_type"`
	SoftLimit      float64   `json:"soft_limit" db:"soft_limit"` // знаковый: для DRAWDOWN отрицательный
	HardLimit      float64   `json:"hard_limit" db:"hard_limit"`
	CurrentValue   *float64  `json:"current_value" db:"current_value"` // nil = значение еще не поставлено провайдером
	Status         string    `json:"status" db:"status"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Статусы мандата
const (
	MandateStatusOK      = "OK"
	MandateStatusWarning = "WARNING"
	MandateStatusBreach  = "BREACH"
)

// Типы ограничений
//
// Направление пробоя задается знаком лимита, а не типом:
// лимиты DRAWDOWN отрицательные (пробой = значение более отрицательное),
// лимиты экспозиции/плеча/VaR положительные (пробой = значение больше лимита).
const (
	ConstraintDrawdown       = "DRAWDOWN"
	ConstraintSectorExposure = "SECTOR_EXPOSURE"
	ConstraintLiquidity      = "LIQUIDITY"
	ConstraintGrossExposure  = "GROSS_EXPOSURE"
	ConstraintNetExposure    = "NET_EXPOSURE"
	ConstraintLeverage       = "LEVERAGE"
	ConstraintVar95          = "VAR_95"
	ConstraintVar99          = "VAR_99"
	ConstraintConcentration  = "CONCENTRATION"
	ConstraintMargin         = "MARGIN"
)

// validConstraintTypes - закрытый набор допустимых типов ограничений
var validConstraintTypes = map[string]bool{
	ConstraintDrawdown:       true,
	ConstraintSectorExposure: true,
	ConstraintLiquidity:      true,
	ConstraintGrossExposure:  true,
	ConstraintNetExposure:    true,
	ConstraintLeverage:       true,
	ConstraintVar95:          true,
	ConstraintVar99:          true,
	ConstraintConcentration:  true,
	ConstraintMargin:         true,
}

// IsValidConstraintType проверяет принадлежность типа к закрытому набору
func IsValidConstraintType(t string) bool {
	return validConstraintTypes[t]
}

// IsValidMandateStatus проверяет допустимость статуса
func IsValidMandateStatus(s string) bool {
	return s == MandateStatusOK || s == MandateStatusWarning || s == MandateStatusBreach
}
