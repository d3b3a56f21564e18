package service

import (
	"context"

	"stockforge/internal/models"
	"stockforge/internal/repository"
)

// OrderRepositoryInterface определяет интерфейс репозитория ордеров
type OrderRepositoryInterface interface {
	Create(order *models.Order) error
	GetByID(id string) (*models.Order, error)
	GetByOwner(ownerID string, limit int) ([]*models.Order, error)
	MarkCanceled(id string) error
}

// AccountRepositoryInterface определяет интерфейс леджера счетов
type AccountRepositoryInterface interface {
	Reserve(ownerID string, amount float64) error
	Release(ownerID string, amount float64) error
	GetBalance(ownerID string) (float64, error)
	GetHolding(ownerID, symbol string) (*models.Holding, error)
	GetHoldings(ownerID string) ([]*models.Holding, error)
}

// TradeRepositoryInterface определяет интерфейс репозитория сделок
type TradeRepositoryInterface interface {
	GetBySymbol(symbol string, limit int) ([]*models.Trade, error)
	GetRecent(limit int) ([]*models.Trade, error)
}

// MatchingEngine определяет интерфейс матчингового ядра
type MatchingEngine interface {
	Submit(ctx context.Context, order *models.Order) ([]*models.Trade, error)
	Cancel(symbol, orderID, ownerID string) (*models.Order, error)
	Depth(symbol string, n int) *models.Depth
	BestAsk(symbol string) (float64, bool)
	BestBid(symbol string) (float64, bool)
}

// PriceFeed определяет интерфейс источника референсных цен
type PriceFeed interface {
	ReferencePrice(ctx context.Context, symbol string) (float64, error)
	Symbols() []string
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ OrderRepositoryInterface = (*repository.OrderRepository)(nil)
var _ AccountRepositoryInterface = (*repository.AccountRepository)(nil)
var _ TradeRepositoryInterface = (*repository.TradeRepository)(nil)
