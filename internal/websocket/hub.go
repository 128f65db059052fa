package websocket

import (
	"bytes"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"riskengine/internal/models"
	"riskengine/pkg/utils"
)

var wsJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Пул JSON буферов: broadcast идет на каждом переходе статуса,
// аллокации на каждое сообщение здесь лишние
var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

// Hub управляет всеми активными подписчиками канала risk_alerts.
//
// Центральный менеджер broadcast-сообщений: риск-деск получает
// оповещения, обновления мандатов и события kill switch без polling.
//
// Потокобезопасность: register/unregister/broadcast сериализуются
// через каналы в Run, список клиентов закрыт RWMutex.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	log *utils.Logger
	mu  sync.RWMutex
}

// NewHub создает новый Hub
func NewHub(log *utils.Logger) *Hub {
	if log == nil {
		log = utils.L()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log.WithComponent("websocket"),
	}
}

// Run запускает главный цикл Hub.
// Должен запускаться в отдельной горутине: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info("risk_alerts client connected", utils.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info("risk_alerts client disconnected", utils.Int("total", total))

		case message := <-h.broadcast:
			// Копируем список под коротким RLock, шлем без блокировки
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					// Клиент не вычитывает буфер - отключаем
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				total := len(h.clients)
				h.mu.Unlock()
				h.log.Warn("removed slow risk_alerts clients",
					utils.Int("removed", len(toRemove)),
					utils.Int("total", total))
			}
		}
	}
}

// Broadcast сериализует и рассылает сообщение всем подписчикам
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	if err := wsJSON.NewEncoder(buf).Encode(message); err != nil {
		h.log.Error("failed to marshal broadcast message", utils.Err(err))
		jsonBufferPool.Put(buf)
		return
	}

	// Encoder добавляет trailing newline
	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}

	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)
	jsonBufferPool.Put(buf)

	h.broadcast <- msgCopy
}

// BroadcastAlert отправляет новое оповещение по мандату
func (h *Hub) BroadcastAlert(alert *models.Alert) {
	h.Broadcast(NewMandateAlertMessage(alert))
}

// BroadcastMandate отправляет обновленное состояние мандата
func (h *Hub) BroadcastMandate(m *models.Mandate) {
	h.Broadcast(NewMandateUpdateMessage(m))
}

// BroadcastKillSwitch отправляет событие выполненного kill switch
func (h *Hub) BroadcastKillSwitch(ev *models.KillSwitchEvent, st *models.KillSwitchState) {
	h.Broadcast(NewKillSwitchMessage(ev, st))
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
