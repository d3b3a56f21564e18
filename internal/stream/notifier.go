package stream

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"stockforge/internal/models"
	"stockforge/internal/websocket"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// publishTimeout ограничивает ожидание Kafka на одну публикацию
const publishTimeout = 2 * time.Second

// Notifier раздает рыночные события подписчикам: WebSocket hub для
// живых клиентов и Kafka для внешних потребителей.
//
// Реализует контракт издателя движка. Fire-and-forget: любой отказ
// логируется и не влияет на мутирующую операцию.
type Notifier struct {
	hub      *websocket.Hub
	producer *Producer
	log      *zap.SugaredLogger
}

// NewNotifier создает нотификатор. hub и producer могут быть nil.
func NewNotifier(hub *websocket.Hub, producer *Producer, log *zap.SugaredLogger) *Notifier {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Notifier{hub: hub, producer: producer, log: log}
}

// PublishDepth рассылает снапшот стакана WebSocket клиентам
func (n *Notifier) PublishDepth(depth *models.Depth) {
	if n.hub != nil && depth != nil {
		n.hub.BroadcastDepth(depth)
	}
}

// PublishTrades рассылает сделки: hub и, при включенной Kafka, топик
// рыночных событий с ключом партиционирования по символу
func (n *Notifier) PublishTrades(symbol string, trades []*models.Trade) {
	if len(trades) == 0 {
		return
	}
	if n.hub != nil {
		n.hub.BroadcastTrades(symbol, trades)
	}
	if n.producer == nil {
		return
	}

	for _, trade := range trades {
		value, err := json.Marshal(trade)
		if err != nil {
			n.log.Warnw("failed to marshal trade event", "trade_id", trade.ID, "error", err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := n.producer.Send(ctx, []byte(symbol), value); err != nil {
			n.log.Warnw("failed to publish trade event",
				"trade_id", trade.ID, "symbol", symbol, "error", err)
		}
		cancel()
	}
}

// PublishOrderUpdate рассылает изменение заявки WebSocket клиентам
func (n *Notifier) PublishOrderUpdate(order *models.Order) {
	if n.hub != nil && order != nil {
		n.hub.BroadcastOrderUpdate(order)
	}
}

// Close закрывает Kafka продюсер
func (n *Notifier) Close() error {
	return n.producer.Close()
}
