package service

import (
	"context"
	"errors"

	"stockforge/internal/models"
	"stockforge/internal/repository"
)

// PortfolioService - представление счета: кэш и позиции владельца
type PortfolioService struct {
	accountRepo AccountRepositoryInterface
	tradeRepo   TradeRepositoryInterface
}

// NewPortfolioService создает новый экземпляр сервиса портфеля
func NewPortfolioService(accountRepo AccountRepositoryInterface, tradeRepo TradeRepositoryInterface) *PortfolioService {
	return &PortfolioService{accountRepo: accountRepo, tradeRepo: tradeRepo}
}

// GetPortfolio возвращает баланс и позиции владельца
func (s *PortfolioService) GetPortfolio(ctx context.Context, ownerID string) (*models.Portfolio, error) {
	balance, err := s.accountRepo.GetBalance(ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	holdings, err := s.accountRepo.GetHoldings(ownerID)
	if err != nil {
		return nil, err
	}

	return &models.Portfolio{
		OwnerID:  ownerID,
		Balance:  balance,
		Holdings: holdings,
	}, nil
}

// GetTrades возвращает последние сделки по символу
func (s *PortfolioService) GetTrades(ctx context.Context, symbol string, limit int) ([]*models.Trade, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.tradeRepo.GetBySymbol(symbol, limit)
}
