package service

import (
	"context"
	"errors"
	"sync"

	"stockforge/internal/models"
	"stockforge/internal/repository"
)

// ============ Моки репозиториев для тестов сервисов ============

// mockOrderRepo - in-memory реализация OrderRepositoryInterface
type mockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*models.Order

	createErr error
	createLog []string // порядок вызовов для проверки persist-then-submit
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*models.Order)}
}

func (m *mockOrderRepo) Create(order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createLog = append(m.createLog, order.ID)
	if m.createErr != nil {
		return m.createErr
	}
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *mockOrderRepo) GetByID(id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *order
	return &cp, nil
}

func (m *mockOrderRepo) GetByOwner(ownerID string, limit int) ([]*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Order
	for _, o := range m.orders {
		if o.OwnerID == ownerID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) MarkCanceled(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok || order.IsTerminal() {
		return errNotFound
	}
	order.Status = models.StatusCanceled
	return nil
}

// mockAccountRepo - in-memory леджер
type mockAccountRepo struct {
	mu       sync.Mutex
	balances map[string]float64
	holdings map[string]map[string]int64 // owner -> symbol -> qty

	reserveErr error
	releaseErr error
	reserves   []float64
	releases   []float64
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{
		balances: make(map[string]float64),
		holdings: make(map[string]map[string]int64),
	}
}

func (m *mockAccountRepo) Reserve(ownerID string, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reserveErr != nil {
		return m.reserveErr
	}
	bal, ok := m.balances[ownerID]
	if !ok {
		return errAccountMissing
	}
	if bal < amount {
		return errFundsMissing
	}
	m.balances[ownerID] = bal - amount
	m.reserves = append(m.reserves, amount)
	return nil
}

func (m *mockAccountRepo) Release(ownerID string, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.releaseErr != nil {
		return m.releaseErr
	}
	m.balances[ownerID] += amount
	m.releases = append(m.releases, amount)
	return nil
}

func (m *mockAccountRepo) GetBalance(ownerID string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[ownerID]
	if !ok {
		return 0, errAccountMissing
	}
	return bal, nil
}

func (m *mockAccountRepo) GetHolding(ownerID, symbol string) (*models.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	qty := m.holdings[ownerID][symbol]
	return &models.Holding{OwnerID: ownerID, Symbol: symbol, Quantity: qty}, nil
}

func (m *mockAccountRepo) GetHoldings(ownerID string) ([]*models.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Holding
	for symbol, qty := range m.holdings[ownerID] {
		if qty > 0 {
			out = append(out, &models.Holding{OwnerID: ownerID, Symbol: symbol, Quantity: qty})
		}
	}
	return out, nil
}

// mockTradeRepo возвращает заранее заданные сделки
type mockTradeRepo struct {
	trades []*models.Trade
}

func (m *mockTradeRepo) GetBySymbol(symbol string, limit int) ([]*models.Trade, error) {
	return m.trades, nil
}

func (m *mockTradeRepo) GetRecent(limit int) ([]*models.Trade, error) {
	return m.trades, nil
}

// mockEngine фиксирует переданные заявки и отдает заготовленные сделки
type mockEngine struct {
	mu        sync.Mutex
	submitted []*models.Order
	submitLog []string
	trades    []*models.Trade
	submitErr error

	canceled  *models.Order
	cancelErr error

	bestAsk   float64
	bestAskOK bool
	bestBid   float64
	bestBidOK bool
}

func (m *mockEngine) Submit(ctx context.Context, order *models.Order) ([]*models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, order)
	m.submitLog = append(m.submitLog, order.ID)
	return m.trades, m.submitErr
}

func (m *mockEngine) Cancel(symbol, orderID, ownerID string) (*models.Order, error) {
	if m.cancelErr != nil {
		return nil, m.cancelErr
	}
	return m.canceled, nil
}

func (m *mockEngine) Depth(symbol string, n int) *models.Depth {
	return &models.Depth{Symbol: symbol}
}

func (m *mockEngine) BestAsk(symbol string) (float64, bool) { return m.bestAsk, m.bestAskOK }
func (m *mockEngine) BestBid(symbol string) (float64, bool) { return m.bestBid, m.bestBidOK }

// mockFeed отдает фиксированные референсные цены
type mockFeed struct {
	prices map[string]float64
}

func (m *mockFeed) ReferencePrice(ctx context.Context, symbol string) (float64, error) {
	price, ok := m.prices[symbol]
	if !ok {
		return 0, errors.New("unknown symbol")
	}
	return price, nil
}

func (m *mockFeed) Symbols() []string {
	out := make([]string, 0, len(m.prices))
	for s := range m.prices {
		out = append(out, s)
	}
	return out
}

// Моки возвращают сентинелы реального репозитория: сервис маппит
// именно их
var (
	errNotFound       = repository.ErrOrderNotFound
	errAccountMissing = repository.ErrAccountNotFound
	errFundsMissing   = repository.ErrInsufficientFunds
)
