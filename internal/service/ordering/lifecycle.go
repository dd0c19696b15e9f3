package ordering

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ConfirmOrder переводит заказ в Confirmed.
func (s *Service) ConfirmOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.transition(ctx, "confirm", orderID, func(_ context.Context, order *domain.Order, _ *[]stockChange) ([]txStep, error) {
		return nil, order.Confirm()
	})
}

// ShipOrder отгружает заказ. Сначала проверяется переход (статус и оплата),
// затем наличие товаров на складе.
func (s *Service) ShipOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.transition(ctx, "ship", orderID, func(ctx context.Context, order *domain.Order, _ *[]stockChange) ([]txStep, error) {
		if err := order.Ship(); err != nil {
			return nil, err
		}
		violations, err := s.stockViolations(ctx, order)
		if err != nil {
			return nil, err
		}
		if len(violations) > 0 {
			return nil, domain.NewValidationError(append([]string{"Order cannot be shipped."}, violations...)...)
		}
		return nil, nil
	})
}

// DeliverOrder отмечает заказ доставленным.
func (s *Service) DeliverOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.transition(ctx, "deliver", orderID, func(_ context.Context, order *domain.Order, _ *[]stockChange) ([]txStep, error) {
		return nil, order.Deliver()
	})
}

// CancelOrder отменяет заказ и в той же единице работы возвращает списанные остатки.
func (s *Service) CancelOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.transition(ctx, "cancel", orderID, s.cancel)
}

func (s *Service) cancel(_ context.Context, order *domain.Order, restocked *[]stockChange) ([]txStep, error) {
	if err := order.Cancel(); err != nil {
		return nil, err
	}
	return []txStep{func(ctx context.Context, tx domain.Repositories) error {
		var err error
		*restocked, err = s.releaseStock(ctx, tx, order)
		return err
	}}, nil
}

// UpdateOrderStatus выполняет переход в указанный статус.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	switch status {
	case domain.OrderStatusConfirmed:
		return s.ConfirmOrder(ctx, orderID)
	case domain.OrderStatusShipped:
		return s.ShipOrder(ctx, orderID)
	case domain.OrderStatusDelivered:
		return s.DeliverOrder(ctx, orderID)
	case domain.OrderStatusCancelled:
		return s.CancelOrder(ctx, orderID)
	}

	order, err := s.store.Orders().Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return nil, domain.NewValidationError(fmt.Sprintf("Invalid status transition from %s to %s", order.Status(), status))
}

// mutation меняет загруженный заказ и возвращает шаги для той же единицы работы.
// Возвращённые на склад остатки шаги записывают в restocked.
type mutation func(ctx context.Context, order *domain.Order, restocked *[]stockChange) ([]txStep, error)

// transition загружает заказ, применяет mutation и сохраняет результат.
// При конфликте версий заказ перечитывается и mutation применяется заново.
func (s *Service) transition(ctx context.Context, operation, orderID string, apply mutation) (*domain.Order, error) {
	defer s.metrics.StartOperation(operation)()

	var result *domain.Order
	err := s.withOrderLock(ctx, orderID, func() error {
		return s.retryOnConflict(ctx, operation, orderID, func() error {
			order, err := s.store.Orders().Get(ctx, orderID)
			if err != nil {
				return err
			}
			previous := order.Status()

			var restocked []stockChange
			steps, err := apply(ctx, order, &restocked)
			if err != nil {
				return err
			}

			events, err := s.commit(ctx, order, false, steps...)
			if err != nil {
				return err
			}

			s.logger.WithFields(log.Fields{
				"order_id":  order.ID(),
				"operation": operation,
				"from":      previous,
				"to":        order.Status(),
			}).Info("order status changed")

			s.dispatch(ctx, order, events)
			s.afterStockChange(ctx, restocked, false)
			result = order
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
