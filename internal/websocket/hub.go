package websocket

import (
	"log"
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"

	"stockforge/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Hub управляет всеми активными WebSocket соединениями
//
// Назначение:
// Центральный менеджер broadcast рассылки рыночных событий всем
// подключенным клиентам: снапшоты стакана, сделки, изменения заявок.
//
// Семантика fire-and-forget: медленный клиент отбрасывается, рассылка
// никогда не блокирует торговый путь.
//
// Использование:
// 1. Создать hub: hub := NewHub()
// 2. Запустить в горутине: go hub.Run()
// 3. Отправлять сообщения: hub.BroadcastDepth(depth)
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Broadcast канал для отправки сообщений всем клиентам
	broadcast chan []byte

	// Регистрация нового клиента
	register chan *Client

	// Отмена регистрации клиента
	unregister chan *Client

	// Остановка главного цикла
	done     chan struct{}
	stopOnce sync.Once

	// Счетчик сообщений, отброшенных при переполнении канала
	dropped atomic.Int64

	// Mutex для потокобезопасного доступа к clients
	mu sync.RWMutex
}

// NewHub создает новый Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run запускает главный цикл Hub
//
// Должен запускаться в отдельной горутине: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			// Копируем список клиентов под коротким RLock, шлем без
			// блокировки, медленных удаляем под Write Lock
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
				h.mu.Unlock()
				log.Printf("Removed %d slow clients. Total clients: %d", len(toRemove), len(h.clients))
			}
		}
	}
}

// Broadcast отправляет произвольное сообщение всем клиентам
func (h *Hub) Broadcast(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling broadcast message: %v", err)
		return
	}

	// Неблокирующая отправка: переполненный канал рассылки не должен
	// тормозить матчинг
	select {
	case h.broadcast <- data:
	default:
		h.dropped.Add(1)
	}
}

// Stop останавливает главный цикл Hub. Повторные вызовы безопасны.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// DroppedMessages возвращает число отброшенных сообщений
func (h *Hub) DroppedMessages() int64 {
	return h.dropped.Load()
}

// BroadcastDepth отправляет снапшот стакана
func (h *Hub) BroadcastDepth(depth *models.Depth) {
	h.Broadcast(NewDepthUpdateMessage(depth))
}

// BroadcastTrades отправляет сделки одного кросса
func (h *Hub) BroadcastTrades(symbol string, trades []*models.Trade) {
	h.Broadcast(NewTradeEventMessage(symbol, trades))
}

// BroadcastOrderUpdate отправляет изменение заявки
func (h *Hub) BroadcastOrderUpdate(order *models.Order) {
	h.Broadcast(NewOrderUpdateMessage(order))
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
