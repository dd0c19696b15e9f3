package memory

import (
	"context"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type orderRepository struct {
	repos
}

// Create сохраняет новый заказ, если ID и номер ещё не заняты.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := r.lock()
	defer unlock()

	snap := order.Snapshot()
	if _, exists := r.s.orders[snap.ID]; exists {
		return domain.ErrOrderAlreadyExists
	}
	if _, exists := r.s.orderNumbers[snap.OrderNumber]; exists {
		return domain.ErrOrderAlreadyExists
	}

	r.s.orders[snap.ID] = snap
	r.s.orderNumbers[snap.OrderNumber] = snap.ID
	r.record(func() {
		delete(r.s.orders, snap.ID)
		delete(r.s.orderNumbers, snap.OrderNumber)
	})
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unlock := r.rlock()
	defer unlock()

	snap, ok := r.s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return domain.RestoreOrder(snap), nil
}

// List фильтрует, сортирует и режет выборку на страницы.
func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter) (domain.OrderPage, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderPage{}, err
	}
	filter = filter.Normalize()

	unlock := r.rlock()
	matched := make([]domain.OrderSnapshot, 0, len(r.s.orders))
	for _, snap := range r.s.orders {
		if filter.Matches(snap) {
			matched = append(matched, snap)
		}
	}
	unlock()

	domain.SortOrderSnapshots(matched, filter.SortBy, filter.Ascending)

	page := domain.OrderPage{
		TotalCount: len(matched),
		PageNumber: filter.PageNumber,
		PageSize:   filter.PageSize,
	}
	start := filter.Offset()
	if start >= len(matched) {
		return page, nil
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	for _, snap := range matched[start:end] {
		page.Orders = append(page.Orders, domain.RestoreOrder(snap))
	}
	return page, nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking).
func (r *orderRepository) Save(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := r.lock()
	defer unlock()

	current, ok := r.s.orders[order.ID()]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version() {
		return domain.ErrOrderVersionConflict
	}

	snap := order.Snapshot()
	snap.Version = current.Version + 1
	r.s.orders[snap.ID] = snap
	r.record(func() { r.s.orders[current.ID] = current })
	return nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
