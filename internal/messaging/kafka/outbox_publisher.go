package kafka

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения: события остатков в топик
// остатков, остальные в топик заказов.
type OutboxTopicPublisher struct {
	producer       *Producer
	orderTopic     string
	inventoryTopic string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
// Пустые имена топиков заменяются значениями по умолчанию.
func NewOutboxPublisher(producer *Producer, orderTopic, inventoryTopic string) *OutboxTopicPublisher {
	if orderTopic == "" {
		orderTopic = TopicOrderEvents
	}
	if inventoryTopic == "" {
		inventoryTopic = TopicInventoryEvents
	}
	return &OutboxTopicPublisher{
		producer:       producer,
		orderTopic:     orderTopic,
		inventoryTopic: inventoryTopic,
	}
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return errors.New("kafka outbox publisher is not initialized")
	}

	return p.producer.PublishEvent(p.topicFor(event), MessageKey(event), NewOutboxEnvelope(event))
}

func (p *OutboxTopicPublisher) topicFor(event domain.OutboxMessage) string {
	if IsInventoryEvent(event.EventType) {
		return p.inventoryTopic
	}
	return p.orderTopic
}

// DLQPublisher публикует сообщения, исчерпавшие попытки, в dead letter queue.
type DLQPublisher struct {
	producer *Producer
}

// NewDLQPublisher создаёт publisher для DLQ outbox worker.
func NewDLQPublisher(producer *Producer) *DLQPublisher {
	return &DLQPublisher{producer: producer}
}

func (p *DLQPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return errors.New("kafka dlq publisher is not initialized")
	}
	return p.producer.PublishEvent(TopicDeadLetterQueue, MessageKey(event), NewOutboxEnvelope(event))
}

// NewOutboxEnvelope упаковывает outbox-сообщение в формат публикации.
func NewOutboxEnvelope(event domain.OutboxMessage) OutboxEnvelope {
	payload := json.RawMessage(event.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return OutboxEnvelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       payload,
		PublishedAt:   time.Now().UTC(),
	}
}

// MessageKey — ключ партиционирования: ID агрегата, иначе ID сообщения.
func MessageKey(event domain.OutboxMessage) string {
	if event.AggregateID != "" {
		return event.AggregateID
	}
	return event.ID
}

var (
	_ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
	_ domain.OutboxPublisher = (*DLQPublisher)(nil)
)
