package engine

import (
	"container/list"
	"math"
	"time"

	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"

	"stockforge/internal/models"
)

// priceLevel - все resting ордера по одному ключу ранжирования
//
// Ключ - effective цена: лимитная для LIMIT, ±Inf для MARKET, поэтому
// resting MARKET ордера всегда на вершине своей стороны.
// FIFO очередь обеспечивает time priority внутри уровня.
// volume - суммарный остаток (remaining) ордеров уровня.
type priceLevel struct {
	price  float64
	orders *list.List // очередь *models.Order по времени прихода
	volume int64
}

// bookEntry позволяет O(1) удаление ордера из уровня при отмене
type bookEntry struct {
	order *models.Order
	level *priceLevel
	elem  *list.Element
}

// Book - стакан по одному символу
//
// Два red-black дерева уровней цен:
// - bids: по убыванию цены (лучший бид = Left)
// - asks: по возрастанию цены (лучший аск = Left)
// Внутри уровня ордера упорядочены по времени прихода (FIFO).
//
// Book не синхронизирован сам по себе: всю мутацию сериализует
// per-symbol лок в Engine (single-writer discipline).
//
// Инвариант в покое: best_bid.price < best_ask.price, либо одна из
// сторон пуста.
type Book struct {
	symbol  string
	bids    *rbt.Tree[float64, *priceLevel]
	asks    *rbt.Tree[float64, *priceLevel]
	entries map[string]*bookEntry
	nextID  func() string // генератор trade ID
}

// NewBook создает пустой стакан для символа
func NewBook(symbol string, tradeID func() string) *Book {
	return &Book{
		symbol: symbol,
		// Бид-дерево инвертировано: Left() дает максимальную цену
		bids: rbt.NewWith[float64, *priceLevel](func(a, b float64) int {
			switch {
			case a > b:
				return -1
			case a < b:
				return 1
			default:
				return 0
			}
		}),
		asks: rbt.NewWith[float64, *priceLevel](func(a, b float64) int {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			default:
				return 0
			}
		}),
		entries: make(map[string]*bookEntry),
		nextID:  tradeID,
	}
}

// Symbol возвращает символ стакана
func (b *Book) Symbol() string { return b.symbol }

// side возвращает нужное дерево для стороны ордера
func (b *Book) side(s models.Side) *rbt.Tree[float64, *priceLevel] {
	if s == models.SideBuy {
		return b.bids
	}
	return b.asks
}

// add вставляет ордер в стакан с сохранением price-time priority.
//
// Ключ дерева - effective цена, а не order.Price: защитная цена
// MARKET ордера не участвует в ранжировании, иначе более высокий
// LIMIT бид заслонил бы resting MARKET от входящих асков.
func (b *Book) add(order *models.Order) {
	tree := b.side(order.Side)
	key := effectivePrice(order)

	level, found := tree.Get(key)
	if !found {
		level = &priceLevel{price: key, orders: list.New()}
		tree.Put(key, level)
	}

	elem := level.orders.PushBack(order)
	level.volume += order.Remaining()
	b.entries[order.ID] = &bookEntry{order: order, level: level, elem: elem}
}

// remove исключает ордер из стакана (отмена либо полное исполнение)
func (b *Book) remove(orderID string) (*models.Order, bool) {
	entry, ok := b.entries[orderID]
	if !ok {
		return nil, false
	}

	entry.level.orders.Remove(entry.elem)
	entry.level.volume -= entry.order.Remaining()
	if entry.level.orders.Len() == 0 {
		b.side(entry.order.Side).Remove(entry.level.price)
	}
	delete(b.entries, orderID)

	return entry.order, true
}

// bestBid возвращает resting ордер на вершине бидов, либо nil
func (b *Book) bestBid() *models.Order {
	return bestOf(b.bids)
}

// bestAsk возвращает resting ордер на вершине асков, либо nil
func (b *Book) bestAsk() *models.Order {
	return bestOf(b.asks)
}

func bestOf(tree *rbt.Tree[float64, *priceLevel]) *models.Order {
	node := tree.Left()
	if node == nil {
		return nil
	}
	front := node.Value.orders.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*models.Order)
}

// effectivePrice возвращает цену ордера для решения о кроссе.
//
// MARKET ордер маркетабелен против любой цены противоположной стороны:
// его защитная цена в решении о кроссе не участвует.
func effectivePrice(o *models.Order) float64 {
	if o.Kind == models.KindMarket {
		if o.Side == models.SideBuy {
			return math.Inf(1)
		}
		return math.Inf(-1)
	}
	return o.Price
}

// tradePrice определяет цену сделки по maker-price правилу:
// цена = лимитная цена более раннего из двух ордеров.
//
// Если maker - MARKET ордер (лимитной цены нет), сделка идет по
// лимитной цене taker'а; если оба MARKET - по защитной цене maker'а.
func tradePrice(bid, ask *models.Order) float64 {
	maker, taker := bid, ask
	if ask.CreatedAt.Before(bid.CreatedAt) {
		maker, taker = ask, bid
	}
	if maker.Kind == models.KindMarket {
		if taker.Kind != models.KindMarket {
			return taker.Price
		}
		return maker.Price
	}
	return maker.Price
}

// match выполняет алгоритм непрерывного двойного аукциона.
//
// Повторяет кросс вершин стакана, пока best_ask <= best_bid
// (по effective ценам). На каждом кроссе:
// - цена сделки по maker-price правилу
// - объем = min(remaining_buy, remaining_sell)
// - полностью исполненный ордер покидает стакан со статусом FILLED,
//   частично исполненный остается на месте со статусом PARTIAL
//
// Возвращает упорядоченный список исполнений (может быть пустым):
// сделка вместе с указателями на оба затронутых ордера, чтобы
// settlement видел их fill-состояние после кросса.
func (b *Book) match() []execution {
	var execs []execution

	for {
		bid := b.bestBid()
		ask := b.bestAsk()
		if bid == nil || ask == nil {
			break
		}
		if effectivePrice(ask) > effectivePrice(bid) {
			break // кросс невозможен, стакан в покое
		}

		qty := bid.Remaining()
		if ask.Remaining() < qty {
			qty = ask.Remaining()
		}
		price := tradePrice(bid, ask)

		trade := &models.Trade{
			ID:          b.nextID(),
			Symbol:      b.symbol,
			BuyOrderID:  bid.ID,
			SellOrderID: ask.ID,
			BuyerID:     bid.OwnerID,
			SellerID:    ask.OwnerID,
			Price:       price,
			Quantity:    qty,
			ExecutedAt:  time.Now(),
		}
		execs = append(execs, execution{trade: trade, buy: bid, sell: ask})

		b.fill(bid, qty)
		b.fill(ask, qty)
	}

	return execs
}

// fill применяет исполнение к resting ордеру
func (b *Book) fill(order *models.Order, qty int64) {
	entry := b.entries[order.ID]
	entry.level.volume -= qty
	order.FilledQuantity += qty
	order.RefreshStatus()

	if order.Remaining() == 0 {
		b.remove(order.ID)
	}
	// Частично исполненный остаток продолжает resting по той же
	// цене и приоритету
}

// depth возвращает до n агрегированных уровней цен на сторону
func (b *Book) depth(n int) *models.Depth {
	return &models.Depth{
		Symbol: b.symbol,
		Bids:   levelsOf(b.bids, n),
		Asks:   levelsOf(b.asks, n),
	}
}

func levelsOf(tree *rbt.Tree[float64, *priceLevel], n int) []models.PriceLevel {
	levels := make([]models.PriceLevel, 0, n)
	it := tree.Iterator()
	for it.Next() && len(levels) < n {
		lvl := it.Value()
		if math.IsInf(lvl.price, 0) {
			continue // resting MARKET остатки не имеют котируемой цены
		}
		levels = append(levels, models.PriceLevel{
			Price:    lvl.price,
			Quantity: lvl.volume,
			Orders:   lvl.orders.Len(),
		})
	}
	return levels
}
