package engine

import (
	"fmt"
	"testing"
	"time"

	"stockforge/internal/models"
)

// newTestBook создает стакан с детерминированным генератором trade ID
func newTestBook(symbol string) *Book {
	seq := 0
	return NewBook(symbol, func() string {
		seq++
		return fmt.Sprintf("T_%d", seq)
	})
}

// limitOrder создает LIMIT ордер с заданным временем прихода.
// offset разносит ордера по времени для детерминированного приоритета.
func limitOrder(id, owner string, side models.Side, price float64, qty int64, offset time.Duration) *models.Order {
	return &models.Order{
		ID:        id,
		OwnerID:   owner,
		Symbol:    "AAPL",
		Side:      side,
		Kind:      models.KindLimit,
		Price:     price,
		Quantity:  qty,
		Status:    models.StatusPending,
		CreatedAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC).Add(offset),
	}
}

func marketOrder(id, owner string, side models.Side, protective float64, qty int64, offset time.Duration) *models.Order {
	o := limitOrder(id, owner, side, protective, qty, offset)
	o.Kind = models.KindMarket
	return o
}

// ============ Кросс и maker-price правило ============

func TestMatch_FullFillAtMakerPrice(t *testing.T) {
	book := newTestBook("AAPL")

	// Продавец пришел раньше по 185.40, покупатель готов платить 185.60
	book.add(limitOrder("ask_1", "seller", models.SideSell, 185.40, 10, 0))
	book.add(limitOrder("bid_1", "buyer", models.SideBuy, 185.60, 10, time.Second))

	execs := book.match()

	if len(execs) != 1 {
		t.Fatalf("ожидали 1 сделку, получили %d", len(execs))
	}
	trade := execs[0].trade
	if trade.Price != 185.40 {
		t.Errorf("цена сделки должна быть ценой maker'а 185.40, получили %v", trade.Price)
	}
	if trade.Quantity != 10 {
		t.Errorf("ожидали объем 10, получили %d", trade.Quantity)
	}
	if trade.BuyOrderID != "bid_1" || trade.SellOrderID != "ask_1" {
		t.Errorf("сделка ссылается не на те ордера: %+v", trade)
	}

	// Оба ордера полностью исполнены и покинули стакан
	if book.bestBid() != nil || book.bestAsk() != nil {
		t.Error("после полного исполнения стакан должен быть пуст")
	}
	if execs[0].buy.Status != models.StatusFilled || execs[0].sell.Status != models.StatusFilled {
		t.Errorf("оба ордера должны быть FILLED, получили %s / %s",
			execs[0].buy.Status, execs[0].sell.Status)
	}
}

func TestMatch_MakerIsEarlierBid(t *testing.T) {
	book := newTestBook("AAPL")

	// Покупатель пришел раньше по 185.60 - его цена и есть цена сделки
	book.add(limitOrder("bid_1", "buyer", models.SideBuy, 185.60, 10, 0))
	book.add(limitOrder("ask_1", "seller", models.SideSell, 185.40, 10, time.Second))

	execs := book.match()

	if len(execs) != 1 {
		t.Fatalf("ожидали 1 сделку, получили %d", len(execs))
	}
	if execs[0].trade.Price != 185.60 {
		t.Errorf("цена сделки должна быть ценой maker-бида 185.60, получили %v", execs[0].trade.Price)
	}
}

func TestMatch_NoCrossWhenSpreadOpen(t *testing.T) {
	book := newTestBook("AAPL")

	book.add(limitOrder("bid_1", "buyer", models.SideBuy, 185.00, 10, 0))
	book.add(limitOrder("ask_1", "seller", models.SideSell, 185.50, 10, time.Second))

	if execs := book.match(); len(execs) != 0 {
		t.Errorf("при открытом спреде сделок быть не должно, получили %d", len(execs))
	}
	if book.bestBid() == nil || book.bestAsk() == nil {
		t.Error("оба ордера должны остаться в стакане")
	}
}

func TestMatch_PartialFillRestsAtSamePriority(t *testing.T) {
	book := newTestBook("AAPL")

	book.add(limitOrder("ask_1", "seller", models.SideSell, 185.40, 100, 0))
	book.add(limitOrder("bid_1", "buyer", models.SideBuy, 185.40, 30, time.Second))

	execs := book.match()

	if len(execs) != 1 || execs[0].trade.Quantity != 30 {
		t.Fatalf("ожидали одну сделку на 30, получили %+v", execs)
	}

	// Продавец частично исполнен и продолжает resting
	ask := book.bestAsk()
	if ask == nil || ask.ID != "ask_1" {
		t.Fatal("частично исполненный аск должен остаться в стакане")
	}
	if ask.Remaining() != 70 || ask.Status != models.StatusPartial {
		t.Errorf("ожидали остаток 70 в статусе PARTIAL, получили %d / %s", ask.Remaining(), ask.Status)
	}
	if book.bestBid() != nil {
		t.Error("полностью исполненный бид должен покинуть стакан")
	}
}

func TestMatch_TimePriorityWithinLevel(t *testing.T) {
	book := newTestBook("AAPL")

	// Два аска по одной цене: первый по времени исполняется первым
	book.add(limitOrder("ask_old", "s1", models.SideSell, 185.40, 10, 0))
	book.add(limitOrder("ask_new", "s2", models.SideSell, 185.40, 10, time.Second))
	book.add(limitOrder("bid_1", "buyer", models.SideBuy, 185.40, 10, 2*time.Second))

	execs := book.match()

	if len(execs) != 1 {
		t.Fatalf("ожидали 1 сделку, получили %d", len(execs))
	}
	if execs[0].trade.SellOrderID != "ask_old" {
		t.Errorf("первым должен исполниться более ранний аск, получили %s", execs[0].trade.SellOrderID)
	}
	if remaining := book.bestAsk(); remaining == nil || remaining.ID != "ask_new" {
		t.Error("на вершине должен остаться более поздний аск")
	}
}

func TestMatch_MarketBuySweepsLevels(t *testing.T) {
	book := newTestBook("AAPL")

	book.add(limitOrder("ask_1", "s1", models.SideSell, 185.40, 50, 0))
	book.add(limitOrder("ask_2", "s2", models.SideSell, 185.60, 50, time.Second))
	book.add(marketOrder("bid_1", "buyer", models.SideBuy, 195.00, 80, 2*time.Second))

	execs := book.match()

	if len(execs) != 2 {
		t.Fatalf("ожидали 2 сделки по уровням, получили %d", len(execs))
	}
	// Каждая сделка по цене соответствующего resting аска
	if execs[0].trade.Price != 185.40 || execs[0].trade.Quantity != 50 {
		t.Errorf("первая сделка: ожидали 50@185.40, получили %d@%v",
			execs[0].trade.Quantity, execs[0].trade.Price)
	}
	if execs[1].trade.Price != 185.60 || execs[1].trade.Quantity != 30 {
		t.Errorf("вторая сделка: ожидали 30@185.60, получили %d@%v",
			execs[1].trade.Quantity, execs[1].trade.Price)
	}

	// Бид исполнен полностью (50 + 30) и покинул стакан
	if book.bestBid() != nil {
		t.Error("полностью исполненный MARKET бид должен покинуть стакан")
	}
	if ask := book.bestAsk(); ask == nil || ask.Remaining() != 20 {
		t.Error("на втором уровне должен остаться остаток 20")
	}
}

func TestMatch_MarketRemainderRests(t *testing.T) {
	book := newTestBook("AAPL")

	book.add(limitOrder("ask_1", "s1", models.SideSell, 185.40, 50, 0))
	book.add(marketOrder("bid_1", "buyer", models.SideBuy, 195.00, 80, time.Second))

	execs := book.match()

	if len(execs) != 1 || execs[0].trade.Quantity != 50 {
		t.Fatalf("ожидали одну сделку на 50, получили %+v", execs)
	}

	bid := book.bestBid()
	if bid == nil || bid.ID != "bid_1" || bid.Remaining() != 30 {
		t.Fatal("остаток MARKET бида 30 должен остаться в стакане")
	}
	if bid.Status != models.StatusPartial {
		t.Errorf("ожидали статус PARTIAL, получили %s", bid.Status)
	}
}

func TestMatch_TwoMarketOrdersCrossAtMakerProtectivePrice(t *testing.T) {
	book := newTestBook("AAPL")

	// Resting MARKET аск с защитной ценой 180, потом MARKET бид
	book.add(marketOrder("ask_1", "seller", models.SideSell, 180.00, 10, 0))
	book.add(marketOrder("bid_1", "buyer", models.SideBuy, 195.00, 10, time.Second))

	execs := book.match()

	if len(execs) != 1 {
		t.Fatalf("ожидали 1 сделку, получили %d", len(execs))
	}
	if execs[0].trade.Price != 180.00 {
		t.Errorf("оба MARKET: цена сделки должна быть защитной ценой maker'а 180.00, получили %v",
			execs[0].trade.Price)
	}
}

func TestMatch_MarketMakerTakesTakerLimitPrice(t *testing.T) {
	book := newTestBook("AAPL")

	// Resting MARKET бид (maker), затем LIMIT аск (taker)
	book.add(marketOrder("bid_1", "buyer", models.SideBuy, 195.00, 10, 0))
	book.add(limitOrder("ask_1", "seller", models.SideSell, 185.40, 10, time.Second))

	execs := book.match()

	if len(execs) != 1 {
		t.Fatalf("ожидали 1 сделку, получили %d", len(execs))
	}
	if execs[0].trade.Price != 185.40 {
		t.Errorf("maker MARKET против LIMIT taker'а: цена сделки - лимитная цена taker'а 185.40, получили %v",
			execs[0].trade.Price)
	}
}

func TestMatch_RestingMarketOutranksHigherLimitBid(t *testing.T) {
	book := newTestBook("AAPL")

	// Resting MARKET бид с защитной ценой 105, поверх него LIMIT бид
	// с более высокой ценой 110. Защитная цена не участвует в
	// ранжировании: MARKET остается на вершине бидов.
	book.add(marketOrder("bid_mkt", "buyer", models.SideBuy, 105.00, 20, 0))
	book.add(limitOrder("bid_lim", "b2", models.SideBuy, 110.00, 5, time.Second))

	// Аск дороже обоих лимитных цен кроссит только с MARKET бидом
	book.add(limitOrder("ask_1", "seller", models.SideSell, 115.00, 5, 2*time.Second))
	execs := book.match()

	if len(execs) != 1 {
		t.Fatalf("resting MARKET бид должен сматчиться против аска 115, получили %d сделок", len(execs))
	}
	if execs[0].trade.BuyOrderID != "bid_mkt" {
		t.Errorf("кросс должен идти через MARKET бид, получили %s", execs[0].trade.BuyOrderID)
	}
	// maker MARKET, taker LIMIT: цена сделки - лимитная цена taker'а
	if execs[0].trade.Price != 115.00 {
		t.Errorf("ожидали цену сделки 115.00, получили %v", execs[0].trade.Price)
	}

	bid := book.bestBid()
	if bid == nil || bid.ID != "bid_mkt" || bid.Remaining() != 15 {
		t.Fatal("остаток MARKET бида 15 должен сохранить вершину стакана")
	}
}

func TestDepth_SkipsRestingMarketOrders(t *testing.T) {
	book := newTestBook("AAPL")

	book.add(marketOrder("bid_mkt", "buyer", models.SideBuy, 105.00, 20, 0))
	book.add(limitOrder("bid_lim", "b2", models.SideBuy, 101.00, 5, time.Second))

	d := book.depth(10)

	// У resting MARKET остатка нет котируемой цены - в глубину
	// попадают только лимитные уровни
	if len(d.Bids) != 1 {
		t.Fatalf("ожидали 1 лимитный уровень бидов, получили %d", len(d.Bids))
	}
	if d.Bids[0].Price != 101.00 || d.Bids[0].Quantity != 5 {
		t.Errorf("ожидали уровень 101.00 x 5, получили %+v", d.Bids[0])
	}
}

// ============ Отмена и remove ============

func TestRemove(t *testing.T) {
	book := newTestBook("AAPL")

	book.add(limitOrder("bid_1", "buyer", models.SideBuy, 185.00, 10, 0))
	book.add(limitOrder("bid_2", "buyer", models.SideBuy, 185.00, 20, time.Second))

	order, ok := book.remove("bid_1")
	if !ok || order.ID != "bid_1" {
		t.Fatal("remove должен вернуть снятый ордер")
	}

	// Уровень остается с единственным вторым бидом
	depth := book.depth(5)
	if len(depth.Bids) != 1 || depth.Bids[0].Quantity != 20 || depth.Bids[0].Orders != 1 {
		t.Errorf("ожидали уровень 185.00 с объемом 20 и 1 ордером, получили %+v", depth.Bids)
	}

	if _, ok := book.remove("bid_1"); ok {
		t.Error("повторный remove того же ордера должен вернуть false")
	}
}

func TestRemove_LastOrderDropsLevel(t *testing.T) {
	book := newTestBook("AAPL")

	book.add(limitOrder("ask_1", "seller", models.SideSell, 185.40, 10, 0))
	book.remove("ask_1")

	depth := book.depth(5)
	if len(depth.Asks) != 0 {
		t.Errorf("пустой уровень должен удаляться из дерева, получили %+v", depth.Asks)
	}
}

// ============ Depth ============

func TestDepth_AggregatesAndOrders(t *testing.T) {
	book := newTestBook("AAPL")

	book.add(limitOrder("bid_1", "b1", models.SideBuy, 185.00, 100, 0))
	book.add(limitOrder("bid_2", "b2", models.SideBuy, 185.00, 200, time.Second))
	book.add(limitOrder("bid_3", "b3", models.SideBuy, 184.50, 50, 2*time.Second))
	book.add(limitOrder("ask_1", "s1", models.SideSell, 185.60, 150, 3*time.Second))

	depth := book.depth(5)

	if len(depth.Bids) != 2 {
		t.Fatalf("ожидали 2 бид-уровня, получили %d", len(depth.Bids))
	}
	// Биды по убыванию цены
	if depth.Bids[0].Price != 185.00 || depth.Bids[0].Quantity != 300 || depth.Bids[0].Orders != 2 {
		t.Errorf("верхний бид-уровень: ожидали 300@185.00 (2 ордера), получили %+v", depth.Bids[0])
	}
	if depth.Bids[1].Price != 184.50 {
		t.Errorf("второй бид-уровень должен быть 184.50, получили %v", depth.Bids[1].Price)
	}
	if len(depth.Asks) != 1 || depth.Asks[0].Quantity != 150 {
		t.Errorf("ожидали один аск-уровень 150@185.60, получили %+v", depth.Asks)
	}
}

func TestDepth_TruncatesToN(t *testing.T) {
	book := newTestBook("AAPL")

	for i := 0; i < 8; i++ {
		book.add(limitOrder(fmt.Sprintf("bid_%d", i), "b", models.SideBuy,
			180.0+float64(i), 10, time.Duration(i)*time.Second))
	}

	depth := book.depth(5)
	if len(depth.Bids) != 5 {
		t.Fatalf("ожидали 5 уровней, получили %d", len(depth.Bids))
	}
	// Первым идет лучший (максимальный) бид
	if depth.Bids[0].Price != 187.0 {
		t.Errorf("лучший бид должен быть 187.0, получили %v", depth.Bids[0].Price)
	}
}

// Depth отражает остатки, не исходные объемы
func TestDepth_ShowsRemainingAfterPartialFill(t *testing.T) {
	book := newTestBook("AAPL")

	book.add(limitOrder("ask_1", "seller", models.SideSell, 185.40, 100, 0))
	book.add(limitOrder("bid_1", "buyer", models.SideBuy, 185.40, 30, time.Second))
	book.match()

	depth := book.depth(5)
	if len(depth.Asks) != 1 || depth.Asks[0].Quantity != 70 {
		t.Errorf("уровень должен показывать остаток 70, получили %+v", depth.Asks)
	}
}
