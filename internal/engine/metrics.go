package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики матчингового ядра
// ============================================================
//
// Использование:
// - Grafana дашборды для визуализации
// - Alertmanager для уведомлений о проблемах (рост retry расчетов -
//   первый признак деградации хранилища)

// ============ Счетчики операций ============

// ordersSubmitted - принятые в стакан заявки
var ordersSubmitted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "stockforge",
		Subsystem: "engine",
		Name:      "orders_submitted_total",
		Help:      "Total number of orders accepted into the book",
	},
	[]string{"symbol", "side"},
)

// ordersCanceled - снятые с стакана заявки
var ordersCanceled = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "stockforge",
		Subsystem: "engine",
		Name:      "orders_canceled_total",
		Help:      "Total number of orders canceled",
	},
	[]string{"symbol"},
)

// tradesMatched - сделки, произведенные алгоритмом кросса
var tradesMatched = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "stockforge",
		Subsystem: "engine",
		Name:      "trades_matched_total",
		Help:      "Total number of trades produced by the matching loop",
	},
	[]string{"symbol"},
)

// tradesSettled - успешно рассчитанные сделки
var tradesSettled = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "stockforge",
		Subsystem: "engine",
		Name:      "trades_settled_total",
		Help:      "Total number of trades settled against the ledger",
	},
	[]string{"symbol"},
)

// ============ Метрики латентности ============

// matchLatency - время submit -> завершение матчинга и расчета
// Buckets подобраны под single-process ядро (0.1ms - 500ms)
var matchLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "stockforge",
		Subsystem: "engine",
		Name:      "submit_latency_ms",
		Help:      "Latency of submit including matching and settlement in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 500},
	},
	[]string{"symbol"},
)

// ============ Надежность расчетов ============

// settlementRetries - повторные попытки записи расчета
var settlementRetries = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "stockforge",
		Subsystem: "engine",
		Name:      "settlement_retries_total",
		Help:      "Total number of settlement write retries",
	},
)

// settlementFailures - расчеты, не записанные после всех retry.
// Ненулевое значение требует ручной сверки леджера.
var settlementFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "stockforge",
		Subsystem: "engine",
		Name:      "settlement_failures_total",
		Help:      "Total number of trades that failed to persist after retries",
	},
)

// ============ Восстановление ============

// hydratedOrders - ордера, восстановленные в стакан при старте
var hydratedOrders = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "stockforge",
		Subsystem: "engine",
		Name:      "hydrated_orders_total",
		Help:      "Total number of open orders replayed on startup",
	},
)
