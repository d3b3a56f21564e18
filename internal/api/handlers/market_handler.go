package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"stockforge/internal/models"
	"stockforge/internal/service"
)

// DepthProvider - источник снапшотов стакана
type DepthProvider interface {
	Depth(symbol string, n int) *models.Depth
}

// MarketHandler обрабатывает HTTP запросы рыночных данных.
//
// Endpoints:
// - GET /api/v1/orderbook/{symbol} - агрегированный стакан (top-5)
// - GET /api/v1/trades/{symbol} - последние сделки
type MarketHandler struct {
	depth        DepthProvider
	portfolioSvc *service.PortfolioService
	depthLevels  int
}

// NewMarketHandler создает новый MarketHandler с внедрением зависимостей.
func NewMarketHandler(depth DepthProvider, portfolioSvc *service.PortfolioService, depthLevels int) *MarketHandler {
	if depthLevels <= 0 {
		depthLevels = 5
	}
	return &MarketHandler{depth: depth, portfolioSvc: portfolioSvc, depthLevels: depthLevels}
}

// GetOrderBook возвращает агрегированный стакан символа.
//
// GET /api/v1/orderbook/{symbol}?levels=5
//
// Response 200 OK:
//
//	{
//	  "symbol": "AAPL",
//	  "bids": [{"price": 185.40, "quantity": 300, "orders": 2}],
//	  "asks": [{"price": 185.60, "quantity": 150, "orders": 1}]
//	}
func (h *MarketHandler) GetOrderBook(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	levels := h.depthLevels
	if levelsStr := r.URL.Query().Get("levels"); levelsStr != "" {
		if parsed, err := strconv.Atoi(levelsStr); err == nil && parsed > 0 && parsed <= 50 {
			levels = parsed
		}
	}

	depth := h.depth.Depth(symbol, levels)

	// Пустые стороны отдаем как [], а не null
	if depth.Bids == nil {
		depth.Bids = []models.PriceLevel{}
	}
	if depth.Asks == nil {
		depth.Asks = []models.PriceLevel{}
	}

	writeJSON(w, http.StatusOK, depth)
}

// GetTrades возвращает последние сделки символа, свежие первыми.
//
// GET /api/v1/trades/{symbol}?limit=50
func (h *MarketHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	trades, err := h.portfolioSvc.GetTrades(r.Context(), symbol, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get trades", err.Error())
		return
	}
	if trades == nil {
		trades = []*models.Trade{}
	}

	writeJSON(w, http.StatusOK, trades)
}
