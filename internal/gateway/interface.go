// Package gateway содержит клиенты внешних коллабораторов риск-ядра:
// провайдера риск-метрик и шлюза ордеров/позиций.
package gateway

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable - коллаборатор недоступен (сеть/таймаут/5xx).
// Для цикла оценки это означает пропуск цикла, для kill switch -
// вклад в счетчики неудач, но никогда не тихий retry внутри вызова.
var ErrUnavailable = errors.New("gateway unavailable")

// Metrics - сырые риск-метрики, поставляемые внешним провайдером.
//
// Ядро НЕ вычисляет P&L/экспозицию из сделок - только потребляет
// готовые агрегаты. Никакой рандомизации внутри ядра.
type Metrics struct {
	Timestamp         time.Time          `json:"timestamp"`
	NetExposure       float64            `json:"net_exposure"`
	GrossExposure     float64            `json:"gross_exposure"`
	GrossLeverage     float64            `json:"gross_leverage"`
	NetLeverage       float64            `json:"net_leverage"`
	Var95             float64            `json:"var_95"`
	Var99             float64            `json:"var_99"`
	MaxDrawdown       float64            `json:"max_drawdown"`
	DailyPnl          float64            `json:"daily_pnl"`
	SectorExposures   map[string]float64 `json:"sector_exposures"`
	ConcentrationRisk float64            `json:"concentration_risk"`

	// MandateValues - сырые значения по кодам мандатов (например "M-204" → -0.028).
	// Для типов без агрегата в снапшоте (LIQUIDITY, MARGIN) это единственный источник.
	MandateValues map[string]float64 `json:"mandate_values,omitempty"`
}

// SnapshotProvider - внешний поставщик риск-метрик
type SnapshotProvider interface {
	GetCurrentMetrics(ctx context.Context) (*Metrics, error)
}

// CancelResult - результат отмены одного ордера
type CancelResult struct {
	OrderID string `json:"order_id"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// CloseResult - результат закрытия одной позиции
type CloseResult struct {
	PositionID string  `json:"position_id"`
	Symbol     string  `json:"symbol"`
	Quantity   float64 `json:"quantity"`
	LastPrice  float64 `json:"last_price"` // последняя рыночная цена, для аудита
	OK         bool    `json:"ok"`
	Error      string  `json:"error,omitempty"`
}

// OrderGateway - шлюз ордеров/позиций.
//
// Ядро только ИНСТРУКТИРУЕТ отмену/ликвидацию - matching и routing
// живут на стороне шлюза. Per-item результаты возвращаются best-effort:
// частичные неудачи не прерывают операцию.
type OrderGateway interface {
	// GateNewOrders атомарно включает/выключает прием новых ордеров.
	// Шлюз обязан наблюдать гейт ДО начала cancel-all (строгий happens-before).
	GateNewOrders(ctx context.Context, halted bool) error

	// CancelAllOrders запрашивает отмену всех открытых ордеров
	CancelAllOrders(ctx context.Context) ([]CancelResult, error)

	// CloseAllPositions запрашивает закрытие всех открытых позиций
	CloseAllPositions(ctx context.Context) ([]CloseResult, error)
}
