package models

import "time"

// Trade представляет исполненную сделку между двумя ордерами
//
// Инварианты:
// - Price равна лимитной цене того из двух ордеров, который пришел
//   раньше (maker-price execution rule)
// - Quantity = min(remaining_buy, remaining_sell) на момент кросса
// - Сумма Quantity всех сделок ордера никогда не превышает его quantity
type Trade struct {
	ID          string    `json:"id" db:"id"`
	Symbol      string    `json:"symbol" db:"symbol"`
	BuyOrderID  string    `json:"buy_order_id" db:"buy_order_id"`
	SellOrderID string    `json:"sell_order_id" db:"sell_order_id"`
	BuyerID     string    `json:"buyer_id" db:"buyer_id"`
	SellerID    string    `json:"seller_id" db:"seller_id"`
	Price       float64   `json:"price" db:"price"`
	Quantity    int64     `json:"quantity" db:"quantity"`
	ExecutedAt  time.Time `json:"executed_at" db:"executed_at"`
}

// Notional возвращает объем сделки в деньгах
func (t *Trade) Notional() float64 {
	return t.Price * float64(t.Quantity)
}

// PriceLevel - агрегированный уровень цены в стакане
//
// Несколько ордеров по одной цене суммируются в один уровень.
// Quantity всегда остаток (remaining), не исходный объем.
type PriceLevel struct {
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
	Orders   int     `json:"orders"`
}

// Depth - внешнее представление стакана (top-N уровней на сторону)
type Depth struct {
	Symbol string       `json:"symbol"`
	Bids   []PriceLevel `json:"bids"`
	Asks   []PriceLevel `json:"asks"`
}
