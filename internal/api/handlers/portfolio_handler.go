package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"stockforge/internal/models"
	"stockforge/internal/service"
)

// PortfolioHandler обрабатывает HTTP запросы состояния счета.
//
// Endpoints:
// - GET /api/v1/portfolio/{user_id} - баланс и позиции пользователя
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
}

// NewPortfolioHandler создает новый PortfolioHandler с внедрением зависимостей.
func NewPortfolioHandler(portfolioService *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: portfolioService}
}

// GetPortfolio возвращает баланс и позиции пользователя.
//
// GET /api/v1/portfolio/{user_id}
//
// Response 200 OK:
//
//	{
//	  "owner_id": "user_42",
//	  "balance": 98750.40,
//	  "holdings": [
//	    {"owner_id": "user_42", "symbol": "AAPL", "quantity": 10, "average_price": 185.40}
//	  ]
//	}
//
// Response 404 Not Found - счет не существует
func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	ownerID := mux.Vars(r)["user_id"]

	portfolio, err := h.portfolioService.GetPortfolio(r.Context(), ownerID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get portfolio", err.Error())
		return
	}

	if portfolio.Holdings == nil {
		portfolio.Holdings = []*models.Holding{}
	}

	writeJSON(w, http.StatusOK, portfolio)
}
