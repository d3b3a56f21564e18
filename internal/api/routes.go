package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stockforge/internal/api/handlers"
	"stockforge/internal/api/middleware"
	"stockforge/internal/service"
	"stockforge/internal/websocket"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	OrderService     *service.OrderService
	PortfolioService *service.PortfolioService
	Depth            handlers.DepthProvider
	Symbols          handlers.SymbolLister
	OpenOrders       handlers.OpenOrderCounter
	Hub              *websocket.Hub

	DepthLevels    int
	OrderRateLimit int // заявок в минуту на клиента, 0 = без лимита
	AdminHash      string
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── POST /orders - разместить заявку (под rate limit)
//	├── POST /orders/cancel - снять заявку
//	├── GET  /orders/{user_id} - заявки пользователя
//	├── GET  /orderbook/{symbol} - агрегированный стакан
//	├── GET  /trades/{symbol} - последние сделки
//	├── GET  /portfolio/{user_id} - баланс и позиции
//	└── /admin/ (за AdminAuth)
//	    └── GET /status - срез состояния площадки
//
// /ws/stream - WebSocket рыночных событий
// /health - liveness probe
// /metrics - Prometheus метрики
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. OrderRateLimit (только размещение заявок)
// 5. AdminAuth (только /admin)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	var orderHandler *handlers.OrderHandler
	if deps != nil && deps.OrderService != nil {
		orderHandler = handlers.NewOrderHandler(deps.OrderService)
	}

	var marketHandler *handlers.MarketHandler
	if deps != nil && deps.Depth != nil && deps.PortfolioService != nil {
		marketHandler = handlers.NewMarketHandler(deps.Depth, deps.PortfolioService, deps.DepthLevels)
	}

	var portfolioHandler *handlers.PortfolioHandler
	if deps != nil && deps.PortfolioService != nil {
		portfolioHandler = handlers.NewPortfolioHandler(deps.PortfolioService)
	}

	var adminHandler *handlers.AdminHandler
	if deps != nil && deps.OpenOrders != nil && deps.Symbols != nil {
		var clients handlers.ClientCounter
		if deps.Hub != nil {
			clients = deps.Hub
		}
		adminHandler = handlers.NewAdminHandler(deps.OpenOrders, deps.Symbols, clients)
	}

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Order routes
	if orderHandler != nil {
		rateLimit := middleware.OrderRateLimit(deps.OrderRateLimit)
		api.Handle("/orders", rateLimit(http.HandlerFunc(orderHandler.PlaceOrder))).Methods("POST")
		api.HandleFunc("/orders/cancel", orderHandler.CancelOrder).Methods("POST")
		api.HandleFunc("/orders/{user_id}", orderHandler.GetOrders).Methods("GET")
	}

	// Market data routes
	if marketHandler != nil {
		api.HandleFunc("/orderbook/{symbol}", marketHandler.GetOrderBook).Methods("GET")
		api.HandleFunc("/trades/{symbol}", marketHandler.GetTrades).Methods("GET")
	}

	// Portfolio routes
	if portfolioHandler != nil {
		api.HandleFunc("/portfolio/{user_id}", portfolioHandler.GetPortfolio).Methods("GET")
	}

	// Admin routes (токен сверяется с bcrypt хэшем)
	if adminHandler != nil {
		admin := api.PathPrefix("/admin").Subrouter()
		admin.Use(middleware.AdminAuth(deps.AdminHash))
		admin.HandleFunc("/status", adminHandler.GetStatus).Methods("GET")
	}

	// WebSocket route
	if deps != nil && deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Prometheus metrics
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return router
}
