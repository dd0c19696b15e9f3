package ordering

import (
	"context"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// GetOrder возвращает заказ по ID.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.store.Orders().Get(ctx, orderID)
}

// ListOrders возвращает страницу заказов по фильтру.
func (s *Service) ListOrders(ctx context.Context, filter domain.OrderFilter) (domain.OrderPage, error) {
	return s.store.Orders().List(ctx, filter)
}

// GetOrderTimeline возвращает историю событий заказа.
func (s *Service) GetOrderTimeline(ctx context.Context, orderID string) ([]domain.TimelineEvent, error) {
	if _, err := s.store.Orders().Get(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.Timeline().List(ctx, orderID)
}

// ListPayments возвращает платёжные записи заказа.
func (s *Service) ListPayments(ctx context.Context, orderID string) ([]domain.Payment, error) {
	if _, err := s.store.Orders().Get(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.Payments().ListByOrder(ctx, orderID)
}
