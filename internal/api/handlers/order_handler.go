package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"stockforge/internal/service"
)

// OrderHandler обрабатывает HTTP запросы жизненного цикла заявок.
//
// Endpoints:
// - POST /api/v1/orders - разместить заявку
// - POST /api/v1/orders/cancel - снять заявку
// - GET /api/v1/orders/{user_id} - заявки пользователя
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler создает новый OrderHandler с внедрением зависимостей.
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// PlaceOrder размещает новую заявку.
//
// POST /api/v1/orders
//
// Request:
//
//	{
//	  "user_id": "user_42",
//	  "symbol": "AAPL",
//	  "side": "BUY",
//	  "order_type": "LIMIT",
//	  "price": 185.50,
//	  "quantity": 10
//	}
//
// Response 201 Created:
//
//	{
//	  "order": {"id": "ord_...", "status": "PENDING", ...},
//	  "trades": [{"id": "T_...", "price": 185.40, "quantity": 10, ...}]
//	}
//
// Response 400 Bad Request - ошибка валидации
// Response 402 Payment Required - недостаточно средств или бумаг
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req service.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.orderService.Place(r.Context(), &req)
	if err != nil {
		status, message := placeErrorStatus(err)
		writeError(w, status, message, "")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// CancelOrder снимает заявку со стакана.
//
// POST /api/v1/orders/cancel
//
// Request:
//
//	{"user_id": "user_42", "order_id": "ord_..."}
//
// Response 200 OK - снятая заявка (статус CANCELED, remaining
// определяет возвращенный резерв)
// Response 403 Forbidden - заявка принадлежит другому пользователю
// Response 404 Not Found - заявка не найдена в стакане
// Response 409 Conflict - заявка уже в терминальном статусе
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID string `json:"user_id"`
		OrderID string `json:"order_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.OwnerID == "" || req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "user_id and order_id are required", "")
		return
	}

	order, err := h.orderService.Cancel(r.Context(), req.OrderID, req.OwnerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found", "")
		case errors.Is(err, service.ErrNotOrderOwner):
			writeError(w, http.StatusForbidden, "order belongs to another owner", "")
		case errors.Is(err, service.ErrOrderNotCancelable):
			writeError(w, http.StatusConflict, "order is already in a terminal state", "")
		default:
			// Снятие со стакана могло уже состояться: отдаем 500 с
			// заявкой для out-of-band сверки
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"error": "cancel partially applied",
				"order": order,
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// GetOrders возвращает заявки пользователя, свежие первыми.
//
// GET /api/v1/orders/{user_id}?limit=100
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	ownerID := mux.Vars(r)["user_id"]

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	orders, err := h.orderService.GetOrders(r.Context(), ownerID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get orders", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// placeErrorStatus маппит ошибки размещения на HTTP статусы
func placeErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidSymbol),
		errors.Is(err, service.ErrUnknownSymbol),
		errors.Is(err, service.ErrInvalidSide),
		errors.Is(err, service.ErrInvalidKind),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrEmptyBook):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrInsufficientHoldings):
		return http.StatusPaymentRequired, err.Error()
	case errors.Is(err, service.ErrAccountNotFound):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, "failed to place order"
	}
}
