package ordering

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// txStep — дополнительная работа в той же единице работы, что и сохранение заказа.
type txStep func(ctx context.Context, tx domain.Repositories) error

// commit атомарно выполняет steps, создаёт или сохраняет заказ и записывает его
// события в outbox и timeline. Возвращает события для рассылки после коммита.
func (s *Service) commit(ctx context.Context, order *domain.Order, create bool, steps ...txStep) ([]domain.Event, error) {
	events := order.PullEvents()

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Repositories) error {
		for _, step := range steps {
			if err := step(ctx, tx); err != nil {
				return err
			}
		}

		if create {
			if err := tx.Orders().Create(ctx, order); err != nil {
				return err
			}
		} else if err := tx.Orders().Save(ctx, order); err != nil {
			return err
		}

		return appendEvents(ctx, tx, events)
	})
	if err != nil {
		return nil, err
	}

	if !create {
		order.AdvanceVersion()
	}
	s.metrics.RecordOutboxEvents(len(events))
	s.metrics.RecordTimelineEvents(len(events))
	return events, nil
}

func appendEvents(ctx context.Context, tx domain.Repositories, events []domain.Event) error {
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal %s event: %w", event.Type, err)
		}
		if _, err := tx.Outbox().Enqueue(ctx, domain.OutboxMessage{
			AggregateType: domain.AggregateOrder,
			AggregateID:   event.OrderID,
			EventType:     string(event.Type),
			Payload:       payload,
			CreatedAt:     event.OccurredAt,
		}); err != nil {
			return err
		}
		if err := tx.Timeline().Append(ctx, domain.TimelineFromEvent(event)); err != nil {
			return err
		}
	}
	return nil
}

// dispatch рассылает уведомления по закоммиченным событиям. Ошибки notifier
// только логируются.
func (s *Service) dispatch(ctx context.Context, order *domain.Order, events []domain.Event) {
	if len(events) == 0 {
		return
	}
	snapshot := order.Snapshot()
	logger := s.logger.WithFields(log.Fields{"order_id": snapshot.ID, "order_number": snapshot.OrderNumber})

	for _, event := range events {
		var err error
		switch {
		case event.Type == domain.EventOrderCreated:
			err = s.notifier.NotifyOrderCreated(ctx, snapshot)
		case event.Type == domain.EventOrderPaymentProcessed:
			err = s.notifier.NotifyPaymentProcessed(ctx, snapshot, event.PaymentStatus)
		case event.IsStatusChange():
			s.metrics.RecordTransition(string(event.Status))
			err = s.notifier.NotifyOrderStatusChanged(ctx, snapshot, event.PreviousStatus)
		}
		if err != nil {
			logger.WithError(err).WithField("event_type", event.Type).Warn("order notification failed")
		}
	}
}
