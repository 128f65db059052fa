package service

import (
	"errors"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"riskengine/internal/models"
	"riskengine/internal/repository"
	"riskengine/internal/risk"
)

var serviceJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Ошибки риск-сервиса
var (
	ErrMandateCodeEmpty = errors.New("mandate code cannot be empty")
	ErrMandateNotFound  = errors.New("mandate not found")
	ErrInvalidLimits    = errors.New("hard limit must be at least as strict as soft limit")
)

// RiskOverview - агрегированная сводка для риск-деска
type RiskOverview struct {
	Snapshot             *models.RiskSnapshot    `json:"snapshot"`
	MandatesOK           int                     `json:"mandates_ok"`
	MandatesWarning      int                     `json:"mandates_warning"`
	MandatesBreach       int                     `json:"mandates_breach"`
	UnacknowledgedAlerts int                     `json:"unacknowledged_alerts"`
	KillSwitch           *models.KillSwitchState `json:"kill_switch"`
	GeneratedAt          time.Time               `json:"generated_at"`
}

// RiskService - бизнес-логика поверх мандатов и снапшотов.
//
// Снапшот для сводки берется из памяти монитора (источник последнего
// цикла); репозиторий - fallback для холодного старта, пока монитор
// не снял первый снапшот.
type RiskService struct {
	mandateRepo  MandateRepositoryInterface
	snapshotRepo SnapshotRepositoryInterface
	alertRepo    AlertRepositoryInterface
	live         SnapshotSource
	killSwitch   KillSwitchExecutor
	audit        risk.AuditSink
}

// NewRiskService создает новый экземпляр RiskService
func NewRiskService(mandateRepo MandateRepositoryInterface, snapshotRepo SnapshotRepositoryInterface, alertRepo AlertRepositoryInterface, live SnapshotSource, killSwitch KillSwitchExecutor, audit risk.AuditSink) *RiskService {
	return &RiskService{
		mandateRepo:  mandateRepo,
		snapshotRepo: snapshotRepo,
		alertRepo:    alertRepo,
		live:         live,
		killSwitch:   killSwitch,
		audit:        audit,
	}
}

// GetOverview возвращает сводку: снапшот, распределение мандатов
// по статусам, активные оповещения и состояние kill switch
func (s *RiskService) GetOverview() (*RiskOverview, error) {
	overview := &RiskOverview{
		GeneratedAt: time.Now().UTC(),
	}

	if s.live != nil {
		if snap, ok := s.live.LatestSnapshot(); ok {
			overview.Snapshot = snap
		}
	}
	if overview.Snapshot == nil {
		snap, err := s.snapshotRepo.GetLatest()
		if err != nil && !errors.Is(err, repository.ErrSnapshotNotFound) {
			return nil, err
		}
		overview.Snapshot = snap
	}

	ok, err := s.mandateRepo.CountByStatus(models.MandateStatusOK)
	if err != nil {
		return nil, err
	}
	warning, err := s.mandateRepo.CountByStatus(models.MandateStatusWarning)
	if err != nil {
		return nil, err
	}
	breach, err := s.mandateRepo.CountByStatus(models.MandateStatusBreach)
	if err != nil {
		return nil, err
	}
	overview.MandatesOK = ok
	overview.MandatesWarning = warning
	overview.MandatesBreach = breach

	unack, err := s.alertRepo.CountUnacknowledged()
	if err != nil {
		return nil, err
	}
	overview.UnacknowledgedAlerts = unack

	if s.killSwitch != nil {
		_, flag := s.killSwitch.State()
		overview.KillSwitch = &flag
	}

	return overview, nil
}

// GetMandates возвращает все мандаты, включая отключенные
func (s *RiskService) GetMandates() ([]*models.Mandate, error) {
	mandates, err := s.mandateRepo.GetAll()
	if err != nil {
		return nil, err
	}

	// Гарантируем пустой массив вместо nil в JSON
	if mandates == nil {
		mandates = []*models.Mandate{}
	}

	return mandates, nil
}

// GetMandate возвращает мандат по коду
func (s *RiskService) GetMandate(code string) (*models.Mandate, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrMandateCodeEmpty
	}

	m, err := s.mandateRepo.GetByCode(code)
	if err != nil {
		if errors.Is(err, repository.ErrMandateNotFound) {
			return nil, ErrMandateNotFound
		}
		return nil, err
	}

	return m, nil
}

// UpdateMandateLimits меняет лимиты мандата от имени actor.
//
// Hard лимит обязан быть не мягче soft: для положительных лимитов
// hard >= soft, для отрицательных (drawdown) hard <= soft. Смешанные
// знаки не допускаются. Статус пересчитает ближайший цикл оценки.
// Примененная правка оставляет запись MANDATE_UPDATE в журнале аудита.
func (s *RiskService) UpdateMandateLimits(code, actor string, softLimit, hardLimit float64) (*models.Mandate, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrMandateCodeEmpty
	}

	if err := validateLimits(softLimit, hardLimit); err != nil {
		return nil, err
	}

	if err := s.mandateRepo.UpdateLimits(code, softLimit, hardLimit); err != nil {
		if errors.Is(err, repository.ErrMandateNotFound) {
			return nil, ErrMandateNotFound
		}
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(&models.AuditEvent{
			Timestamp:    time.Now().UTC(),
			Actor:        actor,
			Action:       models.AuditActionMandateUpdate,
			ResourceType: models.AuditResourceMandate,
			ResourceID:   code,
			Detail:       limitsDetail(softLimit, hardLimit),
		})
	}

	return s.mandateRepo.GetByCode(code)
}

// SetMandateActive включает или выключает мандат.
// Выключенный мандат замораживает свой статус и не порождает оповещений.
func (s *RiskService) SetMandateActive(code string, active bool) (*models.Mandate, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrMandateCodeEmpty
	}

	if err := s.mandateRepo.SetActive(code, active); err != nil {
		if errors.Is(err, repository.ErrMandateNotFound) {
			return nil, ErrMandateNotFound
		}
		return nil, err
	}

	return s.mandateRepo.GetByCode(code)
}

// limitsDetail сериализует новую пару лимитов для поля detail аудита
func limitsDetail(softLimit, hardLimit float64) string {
	b, err := serviceJSON.Marshal(map[string]interface{}{
		"soft_limit": softLimit,
		"hard_limit": hardLimit,
	})
	if err != nil {
		return "{}"
	}
	return string(b)
}

// validateLimits проверяет согласованность пары лимитов
func validateLimits(softLimit, hardLimit float64) error {
	if softLimit >= 0 && hardLimit >= 0 {
		if hardLimit < softLimit {
			return ErrInvalidLimits
		}
		return nil
	}
	if softLimit < 0 && hardLimit < 0 {
		if hardLimit > softLimit {
			return ErrInvalidLimits
		}
		return nil
	}
	return ErrInvalidLimits
}
