package bot

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrSymbolNotQuoted возвращается для символа вне базовой таблицы цен
var ErrSymbolNotQuoted = errors.New("symbol is not quoted by the price feed")

// cacheTTL - срок жизни закэшированной котировки
const cacheTTL = 60 * time.Second

// defaultBasePrices - базовые цены симулируемых бумаг
var defaultBasePrices = map[string]float64{
	"AAPL":  185.0,
	"GOOGL": 141.0,
	"TSLA":  248.0,
	"MSFT":  378.0,
	"AMZN":  155.0,
}

type cachedQuote struct {
	price     float64
	expiresAt time.Time
}

// PriceFeed - симулятор источника референсных цен.
//
// Котировка = базовая цена символа с равномерным шумом ±1%.
// Выданная котировка кэшируется на 60 секунд: в пределах окна все
// потребители видят одну и ту же референсную цену.
type PriceFeed struct {
	mu    sync.Mutex
	base  map[string]float64
	cache map[string]cachedQuote
	rng   *rand.Rand
	now   func() time.Time
}

// NewPriceFeed создает фид с базовой таблицей цен.
// Пустая или nil таблица заменяется дефолтной.
func NewPriceFeed(base map[string]float64) *PriceFeed {
	if len(base) == 0 {
		base = defaultBasePrices
	}
	cp := make(map[string]float64, len(base))
	for s, p := range base {
		cp[s] = p
	}
	return &PriceFeed{
		base:  cp,
		cache: make(map[string]cachedQuote),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
	}
}

// ReferencePrice возвращает референсную цену символа
func (f *PriceFeed) ReferencePrice(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	base, ok := f.base[symbol]
	if !ok {
		return 0, ErrSymbolNotQuoted
	}

	now := f.now()
	if q, ok := f.cache[symbol]; ok && now.Before(q.expiresAt) {
		return q.price, nil
	}

	// Шум ±1% вокруг базовой цены
	noise := 1 + (f.rng.Float64()*2-1)*0.01
	price := base * noise
	f.cache[symbol] = cachedQuote{price: price, expiresAt: now.Add(cacheTTL)}

	return price, nil
}

// Symbols возвращает котируемые символы
func (f *PriceFeed) Symbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.base))
	for s := range f.base {
		out = append(out, s)
	}
	return out
}
