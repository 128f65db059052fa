package service

import (
	"errors"
	"strings"

	"riskengine/internal/models"
	"riskengine/internal/repository"
)

// Ошибки сервиса оповещений
var (
	ErrAlertIDEmpty      = errors.New("alert id cannot be empty")
	ErrAlertNotFound     = errors.New("alert not found")
	ErrAlertAcknowledged = errors.New("alert already acknowledged")
)

// AlertService - бизнес-логика оповещений.
//
// Подтверждение идет через диспетчер, а не напрямую в репозиторий:
// диспетчер владеет аудитом и метриками подтверждений.
type AlertService struct {
	alertRepo    AlertRepositoryInterface
	acknowledger AlertAcknowledger
}

// NewAlertService создает новый экземпляр AlertService
func NewAlertService(alertRepo AlertRepositoryInterface, acknowledger AlertAcknowledger) *AlertService {
	return &AlertService{
		alertRepo:    alertRepo,
		acknowledger: acknowledger,
	}
}

// GetAlerts возвращает оповещения: только активные (неподтвержденные
// и не погашенные) либо последние limit любого состояния
func (s *AlertService) GetAlerts(activeOnly bool, limit int) ([]*models.Alert, error) {
	var (
		alerts []*models.Alert
		err    error
	)

	if activeOnly {
		alerts, err = s.alertRepo.GetUnacknowledged()
	} else {
		alerts, err = s.alertRepo.GetRecent(limit)
	}
	if err != nil {
		return nil, err
	}

	if alerts == nil {
		alerts = []*models.Alert{}
	}

	return alerts, nil
}

// Acknowledge подтверждает оповещение от имени пользователя.
// Повторное подтверждение - конфликт, не no-op.
func (s *AlertService) Acknowledge(id, user string) (*models.Alert, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrAlertIDEmpty
	}

	alert, err := s.acknowledger.Acknowledge(id, user)
	if err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			return nil, ErrAlertNotFound
		}
		if errors.Is(err, repository.ErrAlertAcknowledged) {
			return nil, ErrAlertAcknowledged
		}
		return nil, err
	}

	return alert, nil
}
