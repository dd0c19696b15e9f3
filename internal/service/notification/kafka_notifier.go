package notification

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

// EventPublisher отправляет JSON-событие в топик. Реализуется *kafka.Producer.
type EventPublisher interface {
	PublishEvent(topic string, key string, event any) error
}

// KafkaNotifier публикует уведомления в топик уведомлений. Ключ сообщения —
// ID заказа или товара, чтобы события одной сущности шли в одну партицию.
type KafkaNotifier struct {
	publisher EventPublisher
	topic     string
}

// NewKafkaNotifier создаёт notifier; пустой topic заменяется kafka.TopicNotifications.
func NewKafkaNotifier(publisher EventPublisher, topic string) *KafkaNotifier {
	if topic == "" {
		topic = kafka.TopicNotifications
	}
	return &KafkaNotifier{publisher: publisher, topic: topic}
}

func (n *KafkaNotifier) NotifyOrderCreated(ctx context.Context, order domain.OrderSnapshot) error {
	return n.publishOrder(ctx, kafka.NewOrderEvent(kafka.EventTypeOrderCreated, order))
}

func (n *KafkaNotifier) NotifyOrderStatusChanged(ctx context.Context, order domain.OrderSnapshot, previous domain.OrderStatus) error {
	event := kafka.NewOrderEvent(kafka.EventTypeOrderStatusChanged, order)
	event.PreviousStatus = string(previous)
	return n.publishOrder(ctx, event)
}

func (n *KafkaNotifier) NotifyPaymentProcessed(ctx context.Context, order domain.OrderSnapshot, status domain.PaymentStatus) error {
	event := kafka.NewOrderEvent(kafka.EventTypePaymentProcessed, order)
	event.PaymentStatus = string(status)
	return n.publishOrder(ctx, event)
}

func (n *KafkaNotifier) NotifyInventoryUpdated(ctx context.Context, productID int64, newQuantity, oldQuantity int) error {
	event := kafka.NewInventoryEvent(kafka.EventTypeInventoryUpdated, productID, newQuantity)
	event.PreviousQuantity = &oldQuantity
	return n.publishInventory(ctx, event)
}

func (n *KafkaNotifier) NotifyLowStockAlert(ctx context.Context, productID int64, productName string, quantity int) error {
	event := kafka.NewInventoryEvent(kafka.EventTypeLowStockAlert, productID, quantity)
	event.ProductName = productName
	return n.publishInventory(ctx, event)
}

func (n *KafkaNotifier) publishOrder(ctx context.Context, event *kafka.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.publisher.PublishEvent(n.topic, event.OrderID, event); err != nil {
		return fmt.Errorf("%w: publish %s: %w", domain.ErrInfrastructure, event.EventType, err)
	}
	return nil
}

func (n *KafkaNotifier) publishInventory(ctx context.Context, event *kafka.InventoryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.publisher.PublishEvent(n.topic, strconv.FormatInt(event.ProductID, 10), event); err != nil {
		return fmt.Errorf("%w: publish %s: %w", domain.ErrInfrastructure, event.EventType, err)
	}
	return nil
}

var (
	_ domain.Notifier = (*KafkaNotifier)(nil)
	_ EventPublisher  = (*kafka.Producer)(nil)
)
