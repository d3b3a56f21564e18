package bot

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"stockforge/internal/config"
	"stockforge/internal/models"
	"stockforge/pkg/utils"
)

// OrderStore - персистентность заявок бота
type OrderStore interface {
	Create(order *models.Order) error
}

// Submitter - вход матчингового ядра
type Submitter interface {
	Submit(ctx context.Context, order *models.Order) ([]*models.Trade, error)
}

// ReferenceSource - источник референсных цен для котирования
type ReferenceSource interface {
	ReferencePrice(ctx context.Context, symbol string) (float64, error)
}

// MarketMaker - бот-провайдер ликвидности.
//
// Каждые cfg.Interval выставляет симметричную лесенку LIMIT заявок
// вокруг референсной цены: cfg.Levels уровней на сторону с шагом
// cfg.SpreadStep и случайным лотом. Владелец заявок - MARKET_MAKER_BOT,
// его ноги расчетов леджер пропускает.
//
// Порядок строго persist-then-submit, как и у пользовательских заявок:
// заявка бота сперва записывается в БД и только затем идет в движок.
type MarketMaker struct {
	cfg    config.MarketMakerConfig
	orders OrderStore
	engine Submitter
	feed   ReferenceSource
	log    *zap.SugaredLogger

	rng   *rand.Rand
	rngMu sync.Mutex

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewMarketMaker создает бота с внедренными коллабораторами
func NewMarketMaker(
	cfg config.MarketMakerConfig,
	orders OrderStore,
	engine Submitter,
	feed ReferenceSource,
	log *zap.SugaredLogger,
) *MarketMaker {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &MarketMaker{
		cfg:    cfg,
		orders: orders,
		engine: engine,
		feed:   feed,
		log:    log,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start запускает по актору на символ.
// Повторный Start без Stop не поддерживается.
func (m *MarketMaker) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	for _, symbol := range m.cfg.Symbols {
		m.wg.Add(1)
		go m.run(ctx, symbol)
	}

	m.log.Infow("market maker started",
		"symbols", m.cfg.Symbols, "interval", m.cfg.Interval,
		"levels", m.cfg.Levels, "spread_step", m.cfg.SpreadStep)
}

// Stop останавливает всех акторов и дожидается их завершения
func (m *MarketMaker) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.log.Infow("market maker stopped")
}

// run - цикл котирования одного символа
func (m *MarketMaker) run(ctx context.Context, symbol string) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	// Первая лесенка сразу, не дожидаясь первого тика
	m.Quote(ctx, symbol)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Quote(ctx, symbol)
		}
	}
}

// Quote выставляет одну лесенку котировок вокруг референсной цены.
// Отказ одного уровня не прерывает остальные.
func (m *MarketMaker) Quote(ctx context.Context, symbol string) {
	ref, err := m.feed.ReferencePrice(ctx, symbol)
	if err != nil {
		m.log.Warnw("reference price unavailable", "symbol", symbol, "error", err)
		return
	}

	for _, order := range m.Ladder(symbol, ref) {
		if ctx.Err() != nil {
			return
		}
		if err := m.orders.Create(order); err != nil {
			m.log.Warnw("failed to persist bot order",
				"symbol", symbol, "side", order.Side, "price", order.Price, "error", err)
			continue
		}
		if _, err := m.engine.Submit(ctx, order); err != nil {
			m.log.Warnw("failed to submit bot order",
				"symbol", symbol, "order_id", order.ID, "error", err)
		}
	}

	m.log.Debugw("ladder placed", "symbol", symbol, "reference", ref, "levels", m.cfg.Levels)
}

// Ladder строит симметричную лесенку заявок вокруг референсной цены:
// уровень i котируется на ref*(1 ± step*i) с доменным округлением.
// Уровни с неположительной ценой отбрасываются.
func (m *MarketMaker) Ladder(symbol string, ref float64) []*models.Order {
	orders := make([]*models.Order, 0, m.cfg.Levels*2)

	for i := 1; i <= m.cfg.Levels; i++ {
		offset := m.cfg.SpreadStep * float64(i)

		bidPrice := utils.RoundPrice(ref * (1 - offset))
		askPrice := utils.RoundPrice(ref * (1 + offset))

		if bidPrice > 0 {
			orders = append(orders, m.newOrder(symbol, models.SideBuy, bidPrice))
		}
		if askPrice > 0 {
			orders = append(orders, m.newOrder(symbol, models.SideSell, askPrice))
		}
	}

	return orders
}

func (m *MarketMaker) newOrder(symbol string, side models.Side, price float64) *models.Order {
	return &models.Order{
		ID:       utils.NewID("ord"),
		OwnerID:  models.BotOwnerID,
		Symbol:   symbol,
		Side:     side,
		Kind:     models.KindLimit,
		Price:    price,
		Quantity: m.lot(),
		Status:   models.StatusPending,
	}
}

// lot возвращает случайный объем в [MinLot, MaxLot]
func (m *MarketMaker) lot() int64 {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	if m.cfg.MaxLot <= m.cfg.MinLot {
		return m.cfg.MinLot
	}
	return m.cfg.MinLot + m.rng.Int63n(m.cfg.MaxLot-m.cfg.MinLot+1)
}
