package websocket

import (
	"time"

	"riskengine/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы сообщений канала risk_alerts
const (
	// MessageTypeMandateAlert - новое оповещение по мандату
	// Отправляется при каждом переходе статуса (WARNING, BREACH, recovery)
	MessageTypeMandateAlert MessageType = "MANDATE_ALERT"

	// MessageTypeMandateUpdate - обновленное состояние мандата
	// Отправляется вместе с оповещением, чтобы фронт не перезапрашивал список
	MessageTypeMandateUpdate MessageType = "MANDATE_UPDATE"

	// MessageTypeKillSwitch - kill switch выполнен
	// Отправляется один раз по завершении ликвидации с итогом и флагом
	MessageTypeKillSwitch MessageType = "KILL_SWITCH"
)

// Channel - имя канала для подписки клиентов
const Channel = "risk_alerts"

// BaseMessage - базовая структура всех сообщений канала
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Channel   string      `json:"channel"`
	Timestamp time.Time   `json:"timestamp"`
}

// MandateAlertMessage - сообщение о новом оповещении
type MandateAlertMessage struct {
	BaseMessage
	Data *models.Alert `json:"data"`
}

// MandateUpdateMessage - сообщение об изменении состояния мандата
type MandateUpdateMessage struct {
	BaseMessage
	Data *models.Mandate `json:"data"`
}

// KillSwitchMessage - сообщение о выполненном kill switch
type KillSwitchMessage struct {
	BaseMessage
	Event *models.KillSwitchEvent `json:"event"`
	State *models.KillSwitchState `json:"state"`
}

// ============ Фабричные функции ============

func newBase(t MessageType) BaseMessage {
	return BaseMessage{
		Type:      t,
		Channel:   Channel,
		Timestamp: time.Now().UTC(),
	}
}

// NewMandateAlertMessage создает сообщение оповещения
func NewMandateAlertMessage(alert *models.Alert) *MandateAlertMessage {
	return &MandateAlertMessage{
		BaseMessage: newBase(MessageTypeMandateAlert),
		Data:        alert,
	}
}

// NewMandateUpdateMessage создает сообщение обновления мандата
func NewMandateUpdateMessage(m *models.Mandate) *MandateUpdateMessage {
	return &MandateUpdateMessage{
		BaseMessage: newBase(MessageTypeMandateUpdate),
		Data:        m,
	}
}

// NewKillSwitchMessage создает сообщение о выполненном kill switch
func NewKillSwitchMessage(ev *models.KillSwitchEvent, st *models.KillSwitchState) *KillSwitchMessage {
	return &KillSwitchMessage{
		BaseMessage: newBase(MessageTypeKillSwitch),
		Event:       ev,
		State:       st,
	}
}
