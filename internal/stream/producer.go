package stream

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer публикует рыночные события в Kafka топик.
//
// Nil-receiver безопасен: при невключенной Kafka все методы - no-op,
// вызывающий код не обязан проверять конфигурацию.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer создает продюсер. Пустой список брокеров дает nil
// продюсер (публикация отключена).
func NewProducer(brokers []string, topic string) *Producer {
	if len(brokers) == 0 {
		return nil
	}
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireOne,
			Async:        true, // торговый путь не ждет брокера
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Send публикует одно событие с ключом партиционирования
func (p *Producer) Send(ctx context.Context, key, value []byte) error {
	if p == nil {
		return nil
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

// Close закрывает writer, дожидаясь отправки асинхронного буфера
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
