package models

import "time"

// RiskSnapshot - неизменяемый агрегат риск-метрик портфеля на момент времени.
//
// Создается один раз за цикл оценки и после создания не мутируется.
// Хранится append-only с ограниченным окном истории.
type RiskSnapshot struct {
	ID                int64              `json:"id" db:"id"`
	Timestamp         time.Time          `json:"timestamp" db:"timestamp"`
	NetExposure       float64            `json:"net_exposure" db:"net_exposure"`
	GrossExposure     float64            `json:"gross_exposure" db:"gross_exposure"`
	GrossLeverage     float64            `json:"gross_leverage" db:"gross_leverage"`
	NetLeverage       float64            `json:"net_leverage" db:"net_leverage"`
	Var95             float64            `json:"var_95" db:"var_95"`
	Var99             float64            `json:"var_99" db:"var_99"`
	MaxDrawdown       float64            `json:"max_drawdown" db:"max_drawdown"`
	DailyPnl          float64            `json:"daily_pnl" db:"daily_pnl"`
	SectorExposures   map[string]float64 `json:"sector_exposures" db:"sector_exposures"` // сектор → доля (JSONB в БД)
	ConcentrationRisk float64            `json:"concentration_risk" db:"concentration_risk"`
}

// MaxSectorExposure возвращает наибольшую секторную долю снапшота.
// Используется как значение по умолчанию для мандатов SECTOR_EXPOSURE.
func (s *RiskSnapshot) MaxSectorExposure() (float64, bool) {
	if len(s.SectorExposures) == 0 {
		return 0, false
	}
	var max float64
	first := true
	for _, v := range s.SectorExposures {
		if first || v > max {
			max = v
			first = false
		}
	}
	return max, true
}
