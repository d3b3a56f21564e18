package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"stockforge/internal/models"
	"stockforge/internal/repository"
	"stockforge/pkg/utils"
)

// Ошибки сервиса ордеров
var (
	ErrInvalidSymbol        = errors.New("invalid symbol format")
	ErrUnknownSymbol        = errors.New("symbol is not traded on this venue")
	ErrInvalidSide          = errors.New("side must be BUY or SELL")
	ErrInvalidKind          = errors.New("order type must be LIMIT or MARKET")
	ErrInvalidQuantity      = errors.New("quantity must be greater than 0")
	ErrInvalidPrice         = errors.New("price must be greater than 0 for LIMIT orders")
	ErrInsufficientFunds    = errors.New("insufficient funds for order cost plus fee")
	ErrInsufficientHoldings = errors.New("insufficient holdings to sell")
	ErrAccountNotFound      = errors.New("account not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrNotOrderOwner        = errors.New("order belongs to another owner")
	ErrOrderNotCancelable   = errors.New("order is already in a terminal state")
	ErrEmptyBook            = errors.New("no resting liquidity to price a MARKET order against")
)

// PlaceOrderRequest - входные параметры размещения заявки
type PlaceOrderRequest struct {
	OwnerID  string  `json:"user_id"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Kind     string  `json:"order_type"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

// PlaceOrderResult - принятая заявка вместе со сделками,
// исполненными немедленно при приеме
type PlaceOrderResult struct {
	Order  *models.Order   `json:"order"`
	Trades []*models.Trade `json:"trades"`
}

// OrderService - бизнес-логика приема и отмены заявок.
//
// Держит контракт леджера: к моменту входа заявки в стакан покупатель
// уже платежеспособен (пессимистичный резерв cost+fee), у продавца
// достаточно бумаг. Порядок строго persist-then-submit: заявка
// попадает в движок только после успешной записи в БД.
type OrderService struct {
	orderRepo   OrderRepositoryInterface
	accountRepo AccountRepositoryInterface
	engine      MatchingEngine
	feed        PriceFeed

	feeRate          float64
	protectiveBuffer float64

	log *zap.SugaredLogger
}

// NewOrderService создает новый экземпляр сервиса ордеров
func NewOrderService(
	orderRepo OrderRepositoryInterface,
	accountRepo AccountRepositoryInterface,
	engine MatchingEngine,
	feed PriceFeed,
	feeRate float64,
	protectiveBuffer float64,
	log *zap.SugaredLogger,
) *OrderService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &OrderService{
		orderRepo:        orderRepo,
		accountRepo:      accountRepo,
		engine:           engine,
		feed:             feed,
		feeRate:          feeRate,
		protectiveBuffer: protectiveBuffer,
		log:              log,
	}
}

// Place принимает заявку
// Выполняет:
// 1. Валидацию всех параметров
// 2. Защитную оценку стоимости (для MARKET BUY)
// 3. Пессимистичный резерв средств покупателя (cost + fee)
//    либо проверку достаточности бумаг продавца
// 4. Сохранение заявки в БД (persist-then-submit)
// 5. Передачу в матчинговое ядро
func (s *OrderService) Place(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResult, error) {
	order, err := s.buildOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	// 2-3. Резерв средств / проверка бумаг
	reserved, err := s.reserve(ctx, order)
	if err != nil {
		return nil, err
	}

	// 4. Сохраняем в БД. При отказе записи компенсируем резерв:
	// непринятая заявка не должна держать чужие деньги
	if err := s.orderRepo.Create(order); err != nil {
		if reserved > 0 {
			if relErr := s.accountRepo.Release(order.OwnerID, reserved); relErr != nil {
				s.log.Errorw("failed to release reservation after persist failure",
					"owner_id", order.OwnerID, "amount", reserved, "error", relErr)
			}
		}
		return nil, fmt.Errorf("persist order: %w", err)
	}

	// 5. Передаем в движок
	trades, err := s.engine.Submit(ctx, order)
	if err != nil {
		// Сделки экономически финальны даже при ошибке расчета;
		// заявка принята, ошибка эскалируется логом
		s.log.Errorw("order accepted but settlement escalated",
			"order_id", order.ID, "owner_id", order.OwnerID, "error", err)
	}

	s.log.Infow("order placed",
		"order_id", order.ID, "owner_id", order.OwnerID, "symbol", order.Symbol,
		"side", order.Side, "type", order.Kind, "quantity", order.Quantity,
		"price", order.Price, "trades", len(trades))

	return &PlaceOrderResult{Order: order, Trades: trades}, nil
}

// buildOrder валидирует запрос и собирает заявку
func (s *OrderService) buildOrder(ctx context.Context, req *PlaceOrderRequest) (*models.Order, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" || req.OwnerID == "" {
		return nil, ErrInvalidSymbol
	}

	side := models.Side(strings.ToUpper(req.Side))
	if side != models.SideBuy && side != models.SideSell {
		return nil, ErrInvalidSide
	}

	kind := models.Kind(strings.ToUpper(req.Kind))
	if kind != models.KindLimit && kind != models.KindMarket {
		return nil, ErrInvalidKind
	}

	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if kind == models.KindLimit && req.Price <= 0 {
		return nil, ErrInvalidPrice
	}

	// Символ должен котироваться фидом
	if _, err := s.feed.ReferencePrice(ctx, symbol); err != nil {
		return nil, ErrUnknownSymbol
	}

	price := req.Price
	if kind == models.KindMarket {
		// Защитная цена MARKET заявки: оценка худшего исполнения для
		// резерва и fallback цены сделки при кроссе двух MARKET
		protective, err := s.protectivePrice(ctx, symbol, side)
		if err != nil {
			return nil, err
		}
		price = protective
	}

	return &models.Order{
		ID:       utils.NewID("ord"),
		OwnerID:  req.OwnerID,
		Symbol:   symbol,
		Side:     side,
		Kind:     kind,
		Price:    price,
		Quantity: req.Quantity,
		Status:   models.StatusPending,
	}, nil
}

// protectivePrice оценивает цену MARKET заявки по вершине стакана,
// с fallback на референсную цену фида при пустой стороне.
// Для BUY оценка завышается на защитный буфер.
func (s *OrderService) protectivePrice(ctx context.Context, symbol string, side models.Side) (float64, error) {
	var top float64
	var ok bool
	if side == models.SideBuy {
		top, ok = s.engine.BestAsk(symbol)
	} else {
		top, ok = s.engine.BestBid(symbol)
	}
	if !ok {
		ref, err := s.feed.ReferencePrice(ctx, symbol)
		if err != nil {
			return 0, ErrEmptyBook
		}
		top = ref
	}
	if side == models.SideBuy {
		top *= 1 + s.protectiveBuffer
	}
	return utils.RoundPrice(top), nil
}

// reserve выполняет леджерную часть приема заявки.
// Возвращает зарезервированную сумму (0 для SELL).
func (s *OrderService) reserve(ctx context.Context, order *models.Order) (float64, error) {
	if order.Side == models.SideBuy {
		cost := order.Price * float64(order.Quantity)
		fee := utils.TradeFee(cost, s.feeRate)
		total := cost + fee

		if err := s.accountRepo.Reserve(order.OwnerID, total); err != nil {
			switch {
			case errors.Is(err, repository.ErrInsufficientFunds):
				return 0, ErrInsufficientFunds
			case errors.Is(err, repository.ErrAccountNotFound):
				return 0, ErrAccountNotFound
			}
			return 0, fmt.Errorf("reserve funds: %w", err)
		}
		order.Fee = fee
		return total, nil
	}

	// SELL: только проверка достаточности бумаг, без резерва
	holding, err := s.accountRepo.GetHolding(order.OwnerID, order.Symbol)
	if err != nil {
		return 0, fmt.Errorf("check holding: %w", err)
	}
	if holding.Quantity < order.Quantity {
		return 0, ErrInsufficientHoldings
	}
	return 0, nil
}

// Cancel снимает заявку владельца со стакана и возвращает резерв.
//
// Рефанд покупателя покрывает только неисполненный остаток:
// remaining*price плюс пропорциональная часть комиссии. Исполненная
// часть уже рассчитана и возврату не подлежит.
func (s *OrderService) Cancel(ctx context.Context, orderID, ownerID string) (*models.Order, error) {
	stored, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if stored.OwnerID != ownerID {
		return nil, ErrNotOrderOwner
	}
	if stored.IsTerminal() {
		return nil, ErrOrderNotCancelable
	}

	order, err := s.engine.Cancel(stored.Symbol, orderID, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.MarkCanceled(orderID); err != nil {
		// Снятие со стакана финально; рассинхрон статуса в БД
		// эскалируется и будет исправлен гидрацией либо оператором
		s.log.Errorw("order removed from book but status update failed",
			"order_id", orderID, "error", err)
		return order, err
	}

	if order.Side == models.SideBuy && order.OwnerID != models.BotOwnerID {
		refund := s.cancelRefund(order)
		if refund > 0 {
			if err := s.accountRepo.Release(ownerID, refund); err != nil {
				s.log.Errorw("cancel refund failed",
					"order_id", orderID, "owner_id", ownerID, "amount", refund, "error", err)
				return order, fmt.Errorf("refund reservation: %w", err)
			}
		}
	}

	s.log.Infow("order canceled",
		"order_id", orderID, "owner_id", ownerID, "symbol", order.Symbol,
		"remaining", order.Remaining())

	return order, nil
}

// cancelRefund вычисляет сумму возврата по снятой BUY заявке:
// остаток по цене заявки плюс неиспользованная доля комиссии
func (s *OrderService) cancelRefund(order *models.Order) float64 {
	remaining := order.Remaining()
	if remaining <= 0 {
		return 0
	}
	refund := order.Price * float64(remaining)
	if order.Quantity > 0 {
		refund += order.Fee * float64(remaining) / float64(order.Quantity)
	}
	return refund
}

// GetOrders возвращает заявки владельца, свежие первыми
func (s *OrderService) GetOrders(ctx context.Context, ownerID string, limit int) ([]*models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.orderRepo.GetByOwner(ownerID, limit)
}

// GetOrder возвращает заявку по идентификатору
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}
