package websocket

import (
	"time"

	"stockforge/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeDepthUpdate - снапшот агрегированного стакана.
	// Отправляется после каждой мутирующей операции по символу.
	MessageTypeDepthUpdate MessageType = "depthUpdate"

	// MessageTypeTradeEvent - исполненные сделки
	MessageTypeTradeEvent MessageType = "tradeEvent"

	// MessageTypeOrderUpdate - изменение состояния заявки
	// (прием, частичное исполнение, отмена)
	MessageTypeOrderUpdate MessageType = "orderUpdate"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// DepthUpdateMessage - сообщение со снапшотом стакана
type DepthUpdateMessage struct {
	BaseMessage
	Symbol string        `json:"symbol"`
	Data   *models.Depth `json:"data"`
}

// TradeEventMessage - сообщение со сделками одного кросса
type TradeEventMessage struct {
	BaseMessage
	Symbol string          `json:"symbol"`
	Data   []*models.Trade `json:"data"`
}

// OrderUpdateMessage - сообщение об изменении заявки
type OrderUpdateMessage struct {
	BaseMessage
	Data *models.Order `json:"data"`
}

// NewDepthUpdateMessage создает сообщение со снапшотом стакана
func NewDepthUpdateMessage(depth *models.Depth) *DepthUpdateMessage {
	return &DepthUpdateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeDepthUpdate, Timestamp: time.Now()},
		Symbol:      depth.Symbol,
		Data:        depth,
	}
}

// NewTradeEventMessage создает сообщение со сделками
func NewTradeEventMessage(symbol string, trades []*models.Trade) *TradeEventMessage {
	return &TradeEventMessage{
		BaseMessage: BaseMessage{Type: MessageTypeTradeEvent, Timestamp: time.Now()},
		Symbol:      symbol,
		Data:        trades,
	}
}

// NewOrderUpdateMessage создает сообщение об изменении заявки
func NewOrderUpdateMessage(order *models.Order) *OrderUpdateMessage {
	return &OrderUpdateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeOrderUpdate, Timestamp: time.Now()},
		Data:        order,
	}
}
