package models

// Account - денежный счет пользователя
//
// Balance - доступные средства. Резерв под BUY ордер списывается
// с баланса сразу при размещении (пессимистичный hold), поэтому
// отдельное поле reserved не требуется.
type Account struct {
	OwnerID string  `json:"owner_id" db:"owner_id"`
	Balance float64 `json:"balance" db:"balance"`
}

// Holding - позиция пользователя по одному символу
type Holding struct {
	OwnerID  string  `json:"owner_id" db:"owner_id"`
	Symbol   string  `json:"symbol" db:"symbol"`
	Quantity int64   `json:"quantity" db:"quantity"`
	AvgPrice float64 `json:"average_price" db:"average_price"`
}

// Portfolio - сводное представление счета для API
type Portfolio struct {
	OwnerID  string     `json:"owner_id"`
	Balance  float64    `json:"balance"`
	Holdings []*Holding `json:"holdings"`
}
