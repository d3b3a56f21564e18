package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"stockforge/internal/models"
	"stockforge/pkg/retry"
)

// TradeApplier - хранилище, применяющее эффекты одной сделки
// атомарно (одна транзакция): леджер покупателя и продавца,
// перзист fill-состояния обоих ордеров, сама сделка.
//
// Применение обязано быть идемпотентным по trade.ID: повторный
// вызов с той же сделкой - no-op.
type TradeApplier interface {
	ApplyTrade(ctx context.Context, trade *models.Trade, buy, sell *models.Order, fee float64) error
}

// DefaultFeeRate - комиссия за сделку (0.1%), как в проде
const DefaultFeeRate = 0.001

// Coordinator превращает сделки в мутации счетов и перзист статусов
//
// Семантика по сделке:
// - покупателю зачисляются бумаги (пропускается для маркет-мейкера)
// - у продавца списываются бумаги, зачисляется кэш
//   price*qty - fee, где fee = price*qty*feeRate
// - деньги покупателя уже удержаны при приеме ордера (пессимистичный
//   hold), повторная проверка платежеспособности не нужна
//
// Сматченная, но не записанная сделка - тихое расхождение леджера и
// стакана, поэтому отказ записи ретраится с тем же trade.ID
// (идемпотентность), а не отбрасывается.
type Coordinator struct {
	store    TradeApplier
	feeRate  float64
	retryCfg retry.Config
	log      *zap.SugaredLogger
}

// NewCoordinator создает координатор расчетов
func NewCoordinator(store TradeApplier, feeRate float64, log *zap.SugaredLogger) *Coordinator {
	if feeRate <= 0 {
		feeRate = DefaultFeeRate
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	// Запись сделки критична: агрессивный retry (6 попыток, 50ms старт)
	cfg := retry.AggressiveConfig()
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		settlementRetries.Inc()
		log.Warnw("settlement write retry", "attempt", attempt, "delay", delay, "error", err)
	}

	return &Coordinator{
		store:    store,
		feeRate:  feeRate,
		retryCfg: cfg,
		log:      log,
	}
}

// FeeRate возвращает действующую ставку комиссии
func (c *Coordinator) FeeRate() float64 { return c.feeRate }

// Fee вычисляет комиссию для объема сделки
func (c *Coordinator) Fee(notional float64) float64 {
	return notional * c.feeRate
}

// Settle применяет все сделки одной заявки.
//
// Вызывается движком внутри критической секции символа. Каждая
// сделка применяется атомарно; отказ записи ретраится с экспоненциальным
// backoff и тем же trade.ID.
func (c *Coordinator) Settle(ctx context.Context, execs []execution) error {
	for _, ex := range execs {
		fee := c.Fee(ex.trade.Notional())

		err := retry.Do(ctx, func() error {
			return c.store.ApplyTrade(ctx, ex.trade, ex.buy, ex.sell, fee)
		}, c.retryCfg)
		if err != nil {
			settlementFailures.Inc()
			return fmt.Errorf("apply trade %s: %w", ex.trade.ID, err)
		}

		tradesSettled.WithLabelValues(ex.trade.Symbol).Inc()
		c.log.Infow("trade settled",
			"trade_id", ex.trade.ID,
			"symbol", ex.trade.Symbol,
			"price", ex.trade.Price,
			"quantity", ex.trade.Quantity,
			"fee", fee,
		)
	}
	return nil
}
