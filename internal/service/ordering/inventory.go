package ordering

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
)

// stockChange — изменение остатка одного товара в рамках заказа.
type stockChange struct {
	productID   int64
	productName string
	quantity    int
	previous    int
}

// UpdateInventoryForOrder списывает остатки по всем позициям заказа в одной
// единице работы: либо списываются все позиции, либо ни одна. Повторный вызов
// для заказа с уже списанными остатками ничего не делает.
func (s *Service) UpdateInventoryForOrder(ctx context.Context, order *domain.Order) error {
	defer s.metrics.StartOperation("update_inventory")()

	return s.withOrderLock(ctx, order.ID(), func() error {
		if order.InventoryCommitted() {
			return nil
		}
		if order.Status() == domain.OrderStatusCancelled {
			return &domain.StateError{Current: order.Status(), Attempted: order.Status(), Operation: "commit inventory"}
		}

		working := domain.RestoreOrder(order.Snapshot())
		var changes []stockChange
		events, err := s.commit(ctx, working, false, func(ctx context.Context, tx domain.Repositories) error {
			var err error
			changes, err = s.reserveStock(ctx, tx, working)
			return err
		})
		if err != nil {
			return err
		}

		*order = *working
		s.dispatch(ctx, order, events)
		s.afterStockChange(ctx, changes, true)
		return nil
	})
}

// reserveStock условно уменьшает остатки по каждой позиции и отмечает заказ.
// Хранилище не даёт уйти в минус, поэтому параллельные заказы не пересписывают товар.
func (s *Service) reserveStock(ctx context.Context, tx domain.Repositories, order *domain.Order) ([]stockChange, error) {
	items := order.Items()
	changes := make([]stockChange, 0, len(items))
	productIDs := make([]int64, 0, len(items))

	for _, item := range items {
		remaining, err := tx.Products().AdjustInventory(ctx, item.ProductID(), -item.Quantity())
		switch {
		case errors.Is(err, domain.ErrInsufficientInventory):
			s.metrics.RecordInventoryRejection()
			return nil, domain.NewValidationError(insufficientInventory(item.ProductName(), remaining, item.Quantity()))
		case errors.Is(err, domain.ErrProductNotFound):
			return nil, domain.NewValidationError(productNotFound(item.ProductID()))
		case err != nil:
			return nil, err
		}

		changes = append(changes, stockChange{
			productID:   item.ProductID(),
			productName: item.ProductName(),
			quantity:    remaining,
			previous:    remaining + item.Quantity(),
		})
		productIDs = append(productIDs, item.ProductID())
	}

	order.MarkInventoryCommitted()
	if err := catalog.EnqueueInventoryEvent(ctx, tx.Outbox(), domain.OutboxEventInventoryCommitted, order.ID(), productIDs, s.now()); err != nil {
		return nil, err
	}
	return changes, nil
}

// releaseStock возвращает списанные остатки на склад.
func (s *Service) releaseStock(ctx context.Context, tx domain.Repositories, order *domain.Order) ([]stockChange, error) {
	if !order.InventoryCommitted() {
		return nil, nil
	}

	items := order.Items()
	changes := make([]stockChange, 0, len(items))
	productIDs := make([]int64, 0, len(items))
	for _, item := range items {
		quantity, err := tx.Products().AdjustInventory(ctx, item.ProductID(), item.Quantity())
		if err != nil {
			return nil, fmt.Errorf("restock product %d: %w", item.ProductID(), err)
		}
		changes = append(changes, stockChange{
			productID:   item.ProductID(),
			productName: item.ProductName(),
			quantity:    quantity,
			previous:    quantity - item.Quantity(),
		})
		productIDs = append(productIDs, item.ProductID())
	}

	order.ReleaseInventory()
	if err := catalog.EnqueueInventoryEvent(ctx, tx.Outbox(), domain.OutboxEventInventoryReleased, order.ID(), productIDs, s.now()); err != nil {
		return nil, err
	}
	return changes, nil
}

// afterStockChange сбрасывает кэш каталога и рассылает уведомления об остатках.
// Предупреждение о низком остатке отправляется только после списания.
func (s *Service) afterStockChange(ctx context.Context, changes []stockChange, decremented bool) {
	if len(changes) == 0 {
		return
	}

	ids := make([]int64, 0, len(changes))
	for _, change := range changes {
		ids = append(ids, change.productID)
		logger := s.logger.WithFields(log.Fields{"product_id": change.productID, "quantity": change.quantity})

		if err := s.notifier.NotifyInventoryUpdated(ctx, change.productID, change.quantity, change.previous); err != nil {
			logger.WithError(err).Warn("inventory notification failed")
		}
		if decremented && change.quantity <= s.lowStockThreshold {
			if err := s.notifier.NotifyLowStockAlert(ctx, change.productID, change.productName, change.quantity); err != nil {
				logger.WithError(err).Warn("low stock notification failed")
			}
		}
	}

	if s.catalog != nil {
		s.catalog.Invalidate(ctx, ids...)
	}
}
