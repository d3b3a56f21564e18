package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"stockforge/internal/models"
	"stockforge/pkg/utils"
)

// execution - одна сделка вместе с участвующими ордерами.
// Нужна координатору расчетов: к моменту расчета полностью
// исполненный ордер уже покинул стакан.
type execution struct {
	trade *models.Trade
	buy   *models.Order
	sell  *models.Order
}

// Settler - координатор расчетов по сделкам.
// Вызывается ВНУТРИ критической секции символа: матчинг и расчет
// одной заявки атомарны для всех остальных submitter'ов символа.
type Settler interface {
	Settle(ctx context.Context, execs []execution) error
}

// Publisher - канал уведомлений (fire-and-forget).
// Ошибки публикации никогда не блокируют и не откатывают операцию.
type Publisher interface {
	PublishDepth(depth *models.Depth)
	PublishTrades(symbol string, trades []*models.Trade)
}

// Engine - реестр стаканов и точка входа матчингового ядра
//
// Конкурентная модель:
// - создание стакана защищено mu (RWMutex реестра)
// - всю мутацию стакана одного символа сериализует его собственный лок:
//   submit и cancel одного символа взаимно исключены
// - операции по разным символам идут полностью параллельно
// - кросс-символьных транзакций нет
//
// Engine - явный инстанс, внедряемый в коллабораторов. Никаких
// process-wide синглтонов.
type Engine struct {
	mu    sync.RWMutex
	books map[string]*bookState

	settler     Settler
	publisher   Publisher
	depthLevels int
	log         *zap.SugaredLogger
}

// bookState - стакан вместе с его эксклюзивным локом
type bookState struct {
	mu   sync.Mutex
	book *Book
}

// New создает движок с внедренными коллабораторами.
// settler и publisher могут быть nil (движок как чистая библиотека).
func New(settler Settler, publisher Publisher, depthLevels int, log *zap.SugaredLogger) *Engine {
	if depthLevels <= 0 {
		depthLevels = 5
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{
		books:       make(map[string]*bookState),
		settler:     settler,
		publisher:   publisher,
		depthLevels: depthLevels,
		log:         log,
	}
}

// state возвращает (создавая при необходимости) стакан символа
func (e *Engine) state(symbol string) *bookState {
	e.mu.RLock()
	bs, ok := e.books[symbol]
	e.mu.RUnlock()
	if ok {
		return bs
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if bs, ok = e.books[symbol]; ok {
		return bs
	}
	bs = &bookState{book: NewBook(symbol, func() string { return utils.NewID("T") })}
	e.books[symbol] = bs
	return bs
}

// Submit принимает ордер: вставка в стакан, кросс, расчет сделок.
//
// Валидация и резервирование средств - ответственность вызывающего
// (OrderService); сюда ордер попадает уже платежеспособным и
// персистентным (persist-then-submit).
//
// Возвращает сделки данной заявки в порядке исполнения. Ошибка
// расчета НЕ отменяет сделки (они экономически финальны) - она
// возвращается для эскалации после исчерпания retry.
func (e *Engine) Submit(ctx context.Context, order *models.Order) ([]*models.Trade, error) {
	if order.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if order.Kind == models.KindLimit && order.Price <= 0 {
		return nil, ErrInvalidPrice
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	start := time.Now()
	bs := e.state(order.Symbol)

	bs.mu.Lock()
	bs.book.add(order)
	execs := bs.book.match()

	var settleErr error
	if len(execs) > 0 && e.settler != nil {
		// Расчет внутри критической секции: следующая заявка этого
		// символа никогда не матчится против нерассчитанного стакана
		settleErr = e.settler.Settle(ctx, execs)
	}
	depth := bs.book.depth(e.depthLevels)
	bs.mu.Unlock()

	trades := make([]*models.Trade, len(execs))
	for i, ex := range execs {
		trades[i] = ex.trade
	}

	ordersSubmitted.WithLabelValues(order.Symbol, string(order.Side)).Inc()
	tradesMatched.WithLabelValues(order.Symbol).Add(float64(len(trades)))
	matchLatency.WithLabelValues(order.Symbol).Observe(float64(time.Since(start).Microseconds()) / 1000.0)

	e.publish(depth, order.Symbol, trades)

	if settleErr != nil {
		e.log.Errorw("settlement failed after retries",
			"symbol", order.Symbol, "order_id", order.ID, "trades", len(trades), "error", settleErr)
		return trades, settleErr
	}
	return trades, nil
}

// Cancel снимает resting ордер с стакана.
//
// Отменить можно только нетерминальный ордер (PENDING или PARTIAL).
// Возвращает снятый ордер со статусом CANCELED: его Remaining()
// определяет сумму рефанда (никогда не исходный объем).
func (e *Engine) Cancel(symbol, orderID, ownerID string) (*models.Order, error) {
	bs := e.state(symbol)

	bs.mu.Lock()
	entry, ok := bs.book.entries[orderID]
	if !ok {
		bs.mu.Unlock()
		return nil, ErrOrderNotFound
	}
	if entry.order.OwnerID != ownerID {
		bs.mu.Unlock()
		return nil, ErrNotOrderOwner
	}

	order, _ := bs.book.remove(orderID)
	order.Status = models.StatusCanceled
	depth := bs.book.depth(e.depthLevels)
	bs.mu.Unlock()

	ordersCanceled.WithLabelValues(symbol).Inc()
	e.publish(depth, symbol, nil)

	return order, nil
}

// Depth возвращает агрегированный стакан (top-n уровней на сторону)
func (e *Engine) Depth(symbol string, n int) *models.Depth {
	bs := e.state(symbol)
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.book.depth(n)
}

// BestAsk возвращает цену лучшего аска (ok=false если асков нет).
// Используется для защитной оценки MARKET BUY ордеров.
func (e *Engine) BestAsk(symbol string) (float64, bool) {
	bs := e.state(symbol)
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if ask := bs.book.bestAsk(); ask != nil {
		return ask.Price, true
	}
	return 0, false
}

// BestBid возвращает цену лучшего бида (ok=false если бидов нет)
func (e *Engine) BestBid(symbol string) (float64, bool) {
	bs := e.state(symbol)
	bs.mu.Lock()
	defer bs.mu.Unlock()
	if bid := bs.book.bestBid(); bid != nil {
		return bid.Price, true
	}
	return 0, false
}

// Symbols возвращает символы с созданными стаканами
func (e *Engine) Symbols() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.books))
	for s := range e.books {
		out = append(out, s)
	}
	return out
}

// publish рассылает снапшот и сделки подписчикам.
// Fire-and-forget: отказ публикации логируется внутри Publisher
// и никогда не влияет на мутирующую операцию.
func (e *Engine) publish(depth *models.Depth, symbol string, trades []*models.Trade) {
	if e.publisher == nil {
		return
	}
	e.publisher.PublishDepth(depth)
	if len(trades) > 0 {
		e.publisher.PublishTrades(symbol, trades)
	}
}
