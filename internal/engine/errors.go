package engine

import "errors"

// Ошибки матчингового ядра
//
// Таксономия:
// - Валидационные ошибки отклоняются до того, как ордер коснется стакана
// - Ошибки отмены возвращаются вызывающему без retry
// Ошибки резервирования (средства/бумаги) живут в сервисном слое и
// никогда не возникают во время матчинга.
var (
	// ErrInvalidQuantity - количество должно быть > 0
	ErrInvalidQuantity = errors.New("order quantity must be positive")

	// ErrInvalidPrice - цена LIMIT ордера должна быть > 0
	ErrInvalidPrice = errors.New("order price must be positive")

	// ErrOrderNotFound - ордер не найден в стакане
	ErrOrderNotFound = errors.New("order not found")

	// ErrNotOrderOwner - попытка отменить чужой ордер
	ErrNotOrderOwner = errors.New("order belongs to another owner")
)
