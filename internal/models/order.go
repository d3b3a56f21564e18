package models

import "time"

// Side - сторона ордера
type Side string

// Стороны ордера
const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Kind - тип ордера
type Kind string

// Типы ордеров
const (
	KindLimit  Kind = "LIMIT"
	KindMarket Kind = "MARKET"
)

// Status - статус жизненного цикла ордера
type Status string

// Статусы ордера
//
// Статус является чистой функцией от состояния исполнения:
// PENDING  - filled = 0, не отменен
// PARTIAL  - 0 < filled < quantity
// FILLED   - filled = quantity (терминальный)
// CANCELED - отменен при remaining > 0 (терминальный)
const (
	StatusPending  Status = "PENDING"
	StatusPartial  Status = "PARTIAL"
	StatusFilled   Status = "FILLED"
	StatusCanceled Status = "CANCELED"
)

// BotOwnerID - зарезервированный owner_id маркет-мейкера.
// Сделки этого владельца не затрагивают леджер (у бота нет счета).
const BotOwnerID = "MARKET_MAKER_BOT"

// Order представляет биржевой ордер
//
// Идентичность неизменяема, мутабельно только состояние исполнения
// (FilledQuantity растет монотонно) и статус.
//
// Для LIMIT ордеров Price - лимитная цена. Для MARKET ордеров Price -
// защитная оценочная цена: используется ТОЛЬКО для pre-trade проверки
// баланса, никогда для решения о кроссе.
type Order struct {
	ID             string    `json:"id" db:"id"`
	OwnerID        string    `json:"owner_id" db:"owner_id"`
	Symbol         string    `json:"symbol" db:"symbol"`
	Side           Side      `json:"side" db:"side"`
	Kind           Kind      `json:"kind" db:"kind"`
	Price          float64   `json:"price" db:"price"`
	Quantity       int64     `json:"quantity" db:"quantity"`
	FilledQuantity int64     `json:"filled_quantity" db:"filled_quantity"`
	Fee            float64   `json:"fee" db:"fee"` // зарезервированная комиссия (для BUY)
	Status         Status    `json:"status" db:"status"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Remaining возвращает неисполненный остаток ордера
func (o *Order) Remaining() int64 {
	return o.Quantity - o.FilledQuantity
}

// IsTerminal сообщает, достиг ли ордер терминального статуса
func (o *Order) IsTerminal() bool {
	return o.Status == StatusFilled || o.Status == StatusCanceled
}

// RefreshStatus пересчитывает статус из состояния исполнения.
// Не трогает терминальный CANCELED.
func (o *Order) RefreshStatus() {
	if o.Status == StatusCanceled {
		return
	}
	switch {
	case o.FilledQuantity == 0:
		o.Status = StatusPending
	case o.FilledQuantity < o.Quantity:
		o.Status = StatusPartial
	default:
		o.Status = StatusFilled
	}
}
