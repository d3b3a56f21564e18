package handlers

import (
	"net/http"
	"time"
)

// OpenOrderCounter - счетчик открытых заявок в БД
type OpenOrderCounter interface {
	CountOpen() (int, error)
}

// SymbolLister - список символов с созданными стаканами
type SymbolLister interface {
	Symbols() []string
}

// ClientCounter - количество подключенных WebSocket клиентов
type ClientCounter interface {
	ClientCount() int
}

// AdminHandler обрабатывает служебные запросы (за AdminAuth).
//
// Endpoints:
// - GET /api/v1/admin/status - срез состояния площадки
type AdminHandler struct {
	orders    OpenOrderCounter
	engine    SymbolLister
	hub       ClientCounter
	startedAt time.Time
}

// NewAdminHandler создает новый AdminHandler с внедрением зависимостей.
func NewAdminHandler(orders OpenOrderCounter, engine SymbolLister, hub ClientCounter) *AdminHandler {
	return &AdminHandler{orders: orders, engine: engine, hub: hub, startedAt: time.Now()}
}

// GetStatus возвращает срез состояния площадки.
//
// GET /api/v1/admin/status
//
// Response 200 OK:
//
//	{
//	  "uptime": "1h23m45s",
//	  "open_orders": 152,
//	  "symbols": ["AAPL", "TSLA"],
//	  "ws_clients": 3
//	}
func (h *AdminHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	openOrders, err := h.orders.CountOpen()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count open orders", err.Error())
		return
	}

	symbols := h.engine.Symbols()
	if symbols == nil {
		symbols = []string{}
	}

	wsClients := 0
	if h.hub != nil {
		wsClients = h.hub.ClientCount()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime":      time.Since(h.startedAt).Round(time.Second).String(),
		"open_orders": openOrders,
		"symbols":     symbols,
		"ws_clients":  wsClients,
	})
}
