package app

import (
	"context"

	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

// kafkaClients — producer для outbox и уведомлений и consumer сброса кэша.
type kafkaClients struct {
	producer *kafka.Producer
	consumer *kafka.Consumer
	cancel   context.CancelFunc
}

func newKafkaClients(cfg Config, logger *log.Entry) (*kafkaClients, error) {
	producer, err := kafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		return nil, errors.Wrap(err, "create kafka producer")
	}
	logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
	return &kafkaClients{producer: producer}, nil
}

// startConsumer подписывает экземпляр на события остатков, чтобы сбрасывать
// локальный кэш каталога после изменений на других экземплярах.
func (k *kafkaClients) startConsumer(cfg Config, invalidator kafka.CacheInvalidator, logger *log.Entry) error {
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:     cfg.KafkaBrokers,
		GroupID:     cfg.KafkaConsumerGroup,
		Topics:      []string{kafka.TopicInventoryEvents},
		DLQProducer: k.producer,
	}, kafka.NewCatalogInvalidationHandler(invalidator, logger.WithField("component", "catalog-invalidation")))
	if err != nil {
		return errors.Wrap(err, "create kafka consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := consumer.Start(ctx); err != nil {
		cancel()
		return errors.Wrap(err, "start kafka consumer")
	}
	k.consumer = consumer
	k.cancel = cancel
	return nil
}

func (k *kafkaClients) stopConsumer(logger *log.Entry) {
	if k.consumer == nil {
		return
	}
	k.cancel()
	if err := k.consumer.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop kafka consumer")
	}
	k.consumer = nil
}
