package domain

import (
	"context"
	"time"
)

// PaymentGateway описывает внешний платёжный шлюз.
type PaymentGateway interface {
	// Charge списывает сумму платежа. Отказ шлюза возвращается как ChargeResult{Success: false},
	// ошибка означает инфраструктурный сбой.
	Charge(ctx context.Context, payment Payment) (ChargeResult, error)
}

// Notifier рассылает уведомления о событиях. Ошибки логируются вызывающей стороной
// и не влияют на результат операции.
type Notifier interface {
	NotifyOrderCreated(ctx context.Context, order OrderSnapshot) error
	NotifyOrderStatusChanged(ctx context.Context, order OrderSnapshot, previous OrderStatus) error
	NotifyPaymentProcessed(ctx context.Context, order OrderSnapshot, status PaymentStatus) error
	NotifyInventoryUpdated(ctx context.Context, productID int64, newQuantity, oldQuantity int) error
	NotifyLowStockAlert(ctx context.Context, productID int64, productName string, quantity int) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, orderID string) ([]TimelineEvent, error)
}

// Типы outbox-событий, которые не порождаются агрегатом заказа.
const (
	OutboxEventInventoryCommitted = "InventoryCommitted"
	OutboxEventInventoryReleased  = "InventoryReleased"
	OutboxEventInventoryChanged   = "ProductInventoryChanged"
)

// Типы агрегатов в outbox.
const (
	AggregateOrder   = "order"
	AggregateProduct = "product"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// InventoryChange — payload outbox-событий об изменении остатков.
type InventoryChange struct {
	OrderID    string  `json:"order_id,omitempty"`
	ProductIDs []int64 `json:"product_ids"`
}
