package kafka

import (
	"encoding/json"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// EventType — тип события в топике уведомлений.
type EventType string

const (
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
	EventTypePaymentProcessed   EventType = "order.payment_processed"

	EventTypeInventoryUpdated EventType = "inventory.updated"
	EventTypeLowStockAlert    EventType = "inventory.low_stock"
)

// Topics для Kafka.
const (
	TopicOrderEvents     = "storefront.order.events"
	TopicInventoryEvents = "storefront.inventory.events"
	TopicNotifications   = "storefront.notifications"
	TopicDeadLetterQueue = "storefront.dlq"
)

// Kafka headers для retry логики.
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent — уведомление о событии заказа.
type OrderEvent struct {
	EventType      EventType `json:"event_type"`
	OrderID        string    `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	CustomerID     int64     `json:"customer_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	PaymentStatus  string    `json:"payment_status"`
	TotalAmount    string    `json:"total_amount"`
	Currency       string    `json:"currency"`
	Timestamp      time.Time `json:"timestamp"`
}

// InventoryEvent — уведомление об изменении остатка товара.
type InventoryEvent struct {
	EventType        EventType `json:"event_type"`
	ProductID        int64     `json:"product_id"`
	ProductName      string    `json:"product_name,omitempty"`
	Quantity         int       `json:"quantity"`
	PreviousQuantity *int      `json:"previous_quantity,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// OutboxEnvelope — формат сообщений, которые публикует outbox.
type OutboxEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewOrderEvent строит уведомление по снимку заказа.
func NewOrderEvent(eventType EventType, order domain.OrderSnapshot) *OrderEvent {
	return &OrderEvent{
		EventType:     eventType,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerID:    order.CustomerID,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		TotalAmount:   order.TotalAmount.Amount().StringFixed(2),
		Currency:      order.TotalAmount.Currency(),
		Timestamp:     time.Now().UTC(),
	}
}

// NewInventoryEvent строит уведомление об остатке.
func NewInventoryEvent(eventType EventType, productID int64, quantity int) *InventoryEvent {
	return &InventoryEvent{
		EventType: eventType,
		ProductID: productID,
		Quantity:  quantity,
		Timestamp: time.Now().UTC(),
	}
}

// IsInventoryEvent сообщает, меняет ли outbox-событие остатки товаров.
func IsInventoryEvent(eventType string) bool {
	switch eventType {
	case domain.OutboxEventInventoryCommitted, domain.OutboxEventInventoryReleased, domain.OutboxEventInventoryChanged:
		return true
	}
	return false
}
