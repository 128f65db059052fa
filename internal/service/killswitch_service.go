package service

import (
	"context"

	"riskengine/internal/models"
	"riskengine/internal/risk"
)

// KillSwitchStatus - текущее состояние kill switch для API
type KillSwitchStatus struct {
	State        string                    `json:"state"`
	StateInfo    string                    `json:"state_info"`
	Flag         models.KillSwitchState    `json:"flag"`
	RecentEvents []*models.KillSwitchEvent `json:"recent_events"`
}

// KillSwitchService - тонкая обертка над оркестратором для API.
// Вся семантика (single-flight, идемпотентность, аудит) живет
// в оркестраторе; сервис только собирает статус из двух источников.
type KillSwitchService struct {
	executor KillSwitchExecutor
	ksRepo   KillSwitchRepositoryInterface
}

// NewKillSwitchService создает новый экземпляр KillSwitchService
func NewKillSwitchService(executor KillSwitchExecutor, ksRepo KillSwitchRepositoryInterface) *KillSwitchService {
	return &KillSwitchService{
		executor: executor,
		ksRepo:   ksRepo,
	}
}

// Execute запускает kill switch от имени пользователя
func (s *KillSwitchService) Execute(ctx context.Context, initiatedBy, role, reason string) (*risk.KillSwitchResult, error) {
	return s.executor.Execute(ctx, risk.KillSwitchRequest{
		InitiatedBy: initiatedBy,
		Role:        role,
		Reason:      reason,
	})
}

// GetStatus возвращает состояние оркестратора, флаг и последние события
func (s *KillSwitchService) GetStatus() (*KillSwitchStatus, error) {
	state, flag := s.executor.State()

	events, err := s.ksRepo.GetRecentEvents(10)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*models.KillSwitchEvent{}
	}

	return &KillSwitchStatus{
		State:        state,
		StateInfo:    risk.StateInfo(state),
		Flag:         flag,
		RecentEvents: events,
	}, nil
}
