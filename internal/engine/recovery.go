package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"stockforge/internal/models"
)

// OpenOrderLister - источник нетерминальных ордеров для гидрации
type OpenOrderLister interface {
	ListOpen(ctx context.Context) ([]*models.Order, error)
}

// Hydrator восстанавливает состояние движка после перезапуска процесса
//
// Подход: нетерминальный ордер по определению представляет состояние
// стакана на момент последней успешной записи расчета. Реплей таких
// ордеров в исходном порядке прихода детерминированно воспроизводит
// те же решения о кроссе. Сделки реплея идут через обычный путь
// расчетов - идемпотентность по trade.ID делает повтор безопасным.
//
// Гидрация выполняется один раз, ДО приема внешних заявок и до
// старта маркет-мейкера.
type Hydrator struct {
	store  OpenOrderLister
	engine *Engine
	log    *zap.SugaredLogger
}

// NewHydrator создает менеджер восстановления
func NewHydrator(store OpenOrderLister, engine *Engine, log *zap.SugaredLogger) *Hydrator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Hydrator{store: store, engine: engine, log: log}
}

// HydrationResult содержит результаты процесса восстановления
type HydrationResult struct {
	// OrdersLoaded - количество нетерминальных ордеров в хранилище
	OrdersLoaded int

	// OrdersReplayed - количество успешно переигранных ордеров
	OrdersReplayed int

	// TradesProduced - сделки, произведенные во время реплея
	TradesProduced int

	// Errors - ошибки отдельных ордеров (реплей продолжается)
	Errors []error

	// Took - длительность гидрации
	Took time.Duration
}

// Hydrate выполняет полный процесс восстановления
func (h *Hydrator) Hydrate(ctx context.Context) (*HydrationResult, error) {
	start := time.Now()
	result := &HydrationResult{}

	orders, err := h.store.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}
	result.OrdersLoaded = len(orders)

	// Реплей строго в порядке исходного прихода
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})

	for _, order := range orders {
		trades, err := h.engine.Submit(ctx, order)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Errorf("replay order %s: %w", order.ID, err))
			continue
		}
		result.OrdersReplayed++
		result.TradesProduced += len(trades)
		hydratedOrders.Inc()
	}

	result.Took = time.Since(start)
	h.log.Infow("hydration complete",
		"loaded", result.OrdersLoaded,
		"replayed", result.OrdersReplayed,
		"trades", result.TradesProduced,
		"errors", len(result.Errors),
		"took", result.Took,
	)
	return result, nil
}
