package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты обработки платежа.
const (
	PaymentResultPaid   = "paid"
	PaymentResultFailed = "failed"
	PaymentResultError  = "error"
)

// OrderMetrics содержит метрики сервиса заказов.
type OrderMetrics struct {
	ordersCreated       prometheus.Counter
	transitions         *prometheus.CounterVec
	payments            *prometheus.CounterVec
	inventoryRejections prometheus.Counter
	versionRetries      prometheus.Counter

	operationDuration *prometheus.HistogramVec

	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	activeOperations prometheus.Gauge
}

// NewOrderMetrics создаёт метрики в глобальном реестре.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer создаёт метрики в указанном реестре.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	return &OrderMetrics{
		ordersCreated: counter(registerer, prometheus.CounterOpts{
			Name: "oms_orders_created_total",
			Help: "Total number of orders created",
		}),
		transitions: counterVec(registerer, prometheus.CounterOpts{
			Name: "oms_order_transitions_total",
			Help: "Total number of order status transitions by target status",
		}, "status"),
		payments: counterVec(registerer, prometheus.CounterOpts{
			Name: "oms_order_payments_total",
			Help: "Total number of payment attempts by result",
		}, "result"),
		inventoryRejections: counter(registerer, prometheus.CounterOpts{
			Name: "oms_inventory_rejections_total",
			Help: "Total number of orders rejected because of insufficient inventory",
		}),
		versionRetries: counter(registerer, prometheus.CounterOpts{
			Name: "oms_order_version_retries_total",
			Help: "Total number of retries caused by optimistic locking conflicts",
		}),
		operationDuration: histogramVec(registerer, prometheus.HistogramOpts{
			Name:    "oms_order_operation_duration_seconds",
			Help:    "Duration of order operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, "operation"),
		timelineEvents: counter(registerer, prometheus.CounterOpts{
			Name: "oms_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: counter(registerer, prometheus.CounterOpts{
			Name: "oms_outbox_events_enqueued_total",
			Help: "Total number of outbox events enqueued",
		}),
		activeOperations: gauge(registerer, prometheus.GaugeOpts{
			Name: "oms_order_operations_in_flight",
			Help: "Number of order operations currently in progress",
		}),
	}
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *OrderMetrics) RecordOrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

// RecordTransition учитывает переход заказа в статус.
func (m *OrderMetrics) RecordTransition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

// RecordPayment учитывает результат попытки оплаты.
func (m *OrderMetrics) RecordPayment(result string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(result).Inc()
}

// RecordInventoryRejection учитывает отказ из-за нехватки остатков.
func (m *OrderMetrics) RecordInventoryRejection() {
	if m == nil {
		return
	}
	m.inventoryRejections.Inc()
}

// RecordVersionRetry учитывает повтор после конфликта версий.
func (m *OrderMetrics) RecordVersionRetry() {
	if m == nil {
		return
	}
	m.versionRetries.Inc()
}

// RecordTimelineEvents увеличивает счётчик событий timeline.
func (m *OrderMetrics) RecordTimelineEvents(n int) {
	if m == nil {
		return
	}
	m.timelineEvents.Add(float64(n))
}

// RecordOutboxEvents увеличивает счётчик событий outbox.
func (m *OrderMetrics) RecordOutboxEvents(n int) {
	if m == nil {
		return
	}
	m.outboxEvents.Add(float64(n))
}

// StartOperation отмечает начало операции и возвращает функцию завершения,
// которая записывает длительность.
func (m *OrderMetrics) StartOperation(operation string) func() {
	if m == nil {
		return func() {}
	}
	started := time.Now()
	m.activeOperations.Inc()
	return func() {
		m.activeOperations.Dec()
		m.operationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	}
}
